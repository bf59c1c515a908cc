package home

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func makeTracks(prefix string, n int) []*proc.Track {
	out := make([]*proc.Track, n)
	for i := range out {
		out[i] = &proc.Track{
			Title:     fmt.Sprintf("%s %d", prefix, i+1),
			URL:       fmt.Sprintf("https://example.com/%s/%d", prefix, i+1),
			Duration:  3 * time.Minute,
			Requester: 42,
		}
	}
	return out
}

func TestRenderQueueNumbering(t *testing.T) {
	s := proc.Snapshot{
		NowQueue: makeTracks("prio", 2),
		Queue:    makeTracks("norm", 3),
	}
	out := renderQueue(s)

	for _, want := range []string{
		"1. [prio 1]",
		"2. [prio 2]",
		"3. [norm 1]",
		"5. [norm 3]",
		"**Priority**",
		"**Non-Priority**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("renderQueue missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Now Playing") {
		t.Errorf("unexpected now playing section:\n%s", out)
	}
}

func TestRenderQueueOverflow(t *testing.T) {
	s := proc.Snapshot{
		NowQueue: makeTracks("prio", queuePriorityShown+2),
		Queue:    makeTracks("norm", queueNormalShown+5),
	}
	out := renderQueue(s)

	if !strings.Contains(out, "... and 2 more.") {
		t.Errorf("priority overflow missing:\n%s", out)
	}
	if !strings.Contains(out, "... and 5 more.") {
		t.Errorf("normal overflow missing:\n%s", out)
	}
	// Normal numbering continues after the full priority queue, not the shown part.
	first := fmt.Sprintf("%d. [norm 1]", queuePriorityShown+3)
	if !strings.Contains(out, first) {
		t.Errorf("expected %q in:\n%s", first, out)
	}
	if strings.Contains(out, fmt.Sprintf("[prio %d]", queuePriorityShown+1)) {
		t.Errorf("hidden priority entry rendered:\n%s", out)
	}
}

func TestRenderQueueNowPlaying(t *testing.T) {
	cur := &proc.Track{
		Title:    "Mix [Live]",
		URL:      "https://example.com/mix",
		Duration: 10 * time.Minute,
		Chapters: []proc.Chapter{
			{Start: 0, Title: "Intro"},
			{Start: 2 * time.Minute, Title: "Second"},
		},
		Requester: 7,
	}
	s := proc.Snapshot{
		Current:   cur,
		StartTime: time.Now(),
		Elapsed:   3 * time.Minute,
		Paused:    true,
	}
	out := renderQueue(s)

	for _, want := range []string{
		"**Now Playing**",
		"[Mix (Live)](<https://example.com/mix>)",
		"3:00 / 10:00",
		"Chapter: Second",
		"<@7>",
		sys.MsgMusicPausedNote,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("renderQueue missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTrackAdded(t *testing.T) {
	tr := &proc.Track{Title: "Song", URL: "https://example.com/s", Duration: 95 * time.Second}

	out := renderTrackAdded("Added to Queue", tr, 9, "")
	if !strings.HasPrefix(out, "### Added to Queue\n") {
		t.Errorf("heading = %q", out)
	}
	if !strings.Contains(out, "(01:35)") || !strings.Contains(out, "<@9>") {
		t.Errorf("unexpected body: %q", out)
	}
	if strings.Contains(out, "-#") {
		t.Errorf("note rendered without one: %q", out)
	}

	live := &proc.Track{Title: "Stream", URL: "https://example.com/live"}
	out = renderTrackAdded("Added to Queue", live, 0, sys.MsgMusicPausedNote)
	if strings.Contains(out, "(Live)") {
		t.Errorf("live track should not show a length: %q", out)
	}
	if !strings.Contains(out, "Requested by: unknown") {
		t.Errorf("missing requester fallback: %q", out)
	}
	if !strings.HasSuffix(out, "-# "+sys.MsgMusicPausedNote) {
		t.Errorf("missing paused note: %q", out)
	}
}

func TestTrackLinkWithoutURL(t *testing.T) {
	if got := trackLink(&proc.Track{Title: "a [b]"}); got != "**a (b)**" {
		t.Errorf("trackLink = %q", got)
	}
}

func TestRenderHistory(t *testing.T) {
	at := time.Unix(1700000000, 0)
	out := renderHistory([]*sys.PlayHistoryEntry{
		{Title: "One", URL: "https://example.com/1", Duration: time.Minute, RequesterID: 5, PlayedAt: at},
		{Title: "Two", URL: "https://example.com/2", RequesterID: 6, PlayedAt: at},
	})
	for _, want := range []string{
		"### Recently Queued",
		"1. [One](<https://example.com/1>) (01:00) | By: <@5> | <t:1700000000:R>",
		"2. [Two](<https://example.com/2>) (Live)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("renderHistory missing %q:\n%s", want, out)
		}
	}
}
