package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const (
	queuePriorityShown = 7
	queueNormalShown   = 8
)

func trackLink(t *proc.Track) string {
	title := strings.NewReplacer("[", "(", "]", ")").Replace(t.Title)
	if t.URL == "" {
		return "**" + title + "**"
	}
	return fmt.Sprintf("[%s](<%s>)", title, t.URL)
}

func mention(id snowflake.ID) string {
	if id == 0 {
		return "unknown"
	}
	return "<@" + id.String() + ">"
}

// renderTrackAdded is the text of the card shown after queueing one track.
func renderTrackAdded(heading string, t *proc.Track, requester snowflake.ID, note string) string {
	var sb strings.Builder
	sb.WriteString("### " + heading + "\n")
	sb.WriteString(trackLink(t))
	if !t.Live() {
		sb.WriteString(" (" + sys.FormatDuration(t.Duration) + ")")
	}
	sb.WriteString("\nRequested by: " + mention(requester))
	if note != "" {
		sb.WriteString("\n-# " + note)
	}
	return sb.String()
}

// renderQueue lists now playing, then priority and normal entries with
// continued numbering.
func renderQueue(s proc.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("### Music Queue\n")

	if s.Current != nil {
		progress := sys.FormatDuration(s.Current.Duration)
		if !s.StartTime.IsZero() || s.PausedOffset != nil {
			progress = sys.FormatProgress(s.Elapsed, s.Current.Duration)
		}
		sb.WriteString("**Now Playing**\n")
		sb.WriteString(trackLink(s.Current) + "\n")
		sb.WriteString(progress + " | By: " + mention(s.Current.Requester))
		if ch, ok := s.Current.ChapterAt(s.Elapsed); ok && ch.Title != "" {
			sb.WriteString("\nChapter: " + ch.Title)
		}
		sb.WriteString("\n")
	}

	writeSection := func(name string, tracks []*proc.Track, shown, offset int) {
		if len(tracks) == 0 {
			return
		}
		sb.WriteString("\n**" + name + "**\n")
		for i, t := range tracks {
			if i >= shown {
				fmt.Fprintf(&sb, "... and %d more.\n", len(tracks)-shown)
				break
			}
			fmt.Fprintf(&sb, "%d. %s (%s) | By: %s\n",
				offset+i+1, trackLink(t), sys.FormatDuration(t.Duration), mention(t.Requester))
		}
	}
	writeSection("Priority", s.NowQueue, queuePriorityShown, 0)
	writeSection("Non-Priority", s.Queue, queueNormalShown, len(s.NowQueue))

	if s.Paused {
		sb.WriteString("\n-# " + sys.MsgMusicPausedNote)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderHistory(entries []*sys.PlayHistoryEntry) string {
	var sb strings.Builder
	sb.WriteString("### Recently Queued\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. [%s](<%s>) (%s) | By: %s | <t:%d:R>\n",
			i+1, sys.Truncate(e.Title, 80), e.URL, sys.FormatDuration(e.Duration),
			mention(e.RequesterID), e.PlayedAt.Unix())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func imageGallery(url string) discord.MediaGalleryComponent {
	return discord.NewMediaGallery(discord.MediaGalleryItem{
		Media: discord.UnfurledMediaItem{URL: url},
	})
}

// trackCard wraps text and the track artwork in one container.
func trackCard(text, thumbnail string) discord.ContainerComponent {
	subs := []discord.ContainerSubComponent{discord.NewTextDisplay(text)}
	if thumbnail != "" {
		subs = append(subs, imageGallery(thumbnail))
	}
	return discord.NewContainer(subs...)
}

// queueCard renders the queue with playback controls.
func queueCard(s proc.Snapshot) discord.ContainerComponent {
	subs := []discord.ContainerSubComponent{discord.NewTextDisplay(renderQueue(s))}
	if s.Current != nil && s.Current.Thumbnail != "" {
		subs = append(subs, imageGallery(s.Current.Thumbnail))
	}
	subs = append(subs,
		discord.NewSeparator(discord.SeparatorSpacingSizeSmall).WithDivider(true),
		controlRow(s.Paused),
	)
	return discord.NewContainer(subs...)
}
