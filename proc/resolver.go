package proc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/lrstanley/go-ytdlp"
)

// resolveFieldSep is the ASCII unit separator, which never appears in titles
// or URLs, unlike tabs.
const resolveFieldSep = "\x1f"

// resolvePrintTemplate is printed once per resolved entry. Chapters are JSON
// and stay last so that the split never cuts into them.
var resolvePrintTemplate = strings.Join([]string{
	"%(webpage_url,url)s", "%(title)s", "%(url)s", "%(duration)s", "%(thumbnail)s",
	"%(uploader,channel)s", "%(genre)s", "%(tags.0)s", "%(upload_date)s", "%(chapters)j",
}, resolveFieldSep)

const resolveFieldCount = 10

// YTDLPResolver resolves queries and URLs through yt-dlp.
type YTDLPResolver struct {
	PlaylistLimit int
}

func NewYTDLPResolver(playlistLimit int) *YTDLPResolver {
	if playlistLimit <= 0 {
		playlistLimit = sys.DefaultPlaylistLimit
	}
	return &YTDLPResolver{PlaylistLimit: playlistLimit}
}

func (r *YTDLPResolver) Resolve(ctx context.Context, query string, playlist bool) ([]*Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}

	cmd := ytdlp.New().
		Print(resolvePrintTemplate).
		NoWarnings().
		IgnoreConfig()

	args := []string{"--skip-download", "--default-search", "ytsearch"}
	if playlist {
		cmd = cmd.
			FlatPlaylist().
			PlaylistItems(fmt.Sprintf("1-%d", r.PlaylistLimit))
		args = append(args, "--yes-playlist", "--ignore-errors")
	} else {
		cmd = cmd.
			Format("bestaudio/best").
			NoPlaylist()
	}

	res, err := cmd.Run(ctx, append(args, query)...)

	var stdout string
	if res != nil {
		stdout = res.Stdout
	}
	tracks := parseResolveOutput(stdout)

	// A playlist with some unavailable entries still yields the rest.
	if err != nil && !(playlist && len(tracks) > 0) {
		return nil, ytdlpError(err, res)
	}
	if !playlist && len(tracks) > 1 {
		tracks = tracks[:1]
	}
	return tracks, nil
}

func (r *YTDLPResolver) RefreshMediaURL(ctx context.Context, pageURL string) (string, error) {
	res, err := ytdlp.New().
		Print("%(url)s").
		Format("bestaudio/best").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", pageURL)
	if err != nil {
		return "", ytdlpError(err, res)
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") {
			return line, nil
		}
	}
	return "", fmt.Errorf("no media URL for %s", pageURL)
}

func ytdlpError(err error, res *ytdlp.Result) error {
	if res == nil {
		return err
	}
	for _, line := range strings.Split(res.Stderr, "\n") {
		if strings.HasPrefix(line, "ERROR:") {
			return fmt.Errorf("%s: %w", strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")), err)
		}
	}
	return err
}

// --- Output parsing ---

func parseResolveOutput(stdout string) []*Track {
	var tracks []*Track
	for _, line := range strings.Split(stdout, "\n") {
		if t, ok := parseResolveLine(line); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

func parseResolveLine(line string) (*Track, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil, false
	}
	ps := strings.SplitN(line, resolveFieldSep, resolveFieldCount)
	if len(ps) < 4 {
		return nil, false
	}
	for len(ps) < resolveFieldCount {
		ps = append(ps, "")
	}
	for i := range ps {
		ps[i] = naField(ps[i])
	}

	t := &Track{
		URL:        ps[0],
		Title:      ps[1],
		MediaURL:   ps[2],
		Duration:   parseSeconds(ps[3]),
		Thumbnail:  ps[4],
		Uploader:   ps[5],
		Genre:      ps[6],
		UploadDate: ps[8],
		Chapters:   parseChapters(ps[9]),
	}
	if ps[7] != "" {
		t.Tags = []string{ps[7]}
	}
	if t.MediaURL == t.URL {
		t.MediaURL = ""
	}
	if t.URL == "" && t.MediaURL == "" {
		return nil, false
	}
	if t.Title == "" {
		t.Title = "Unknown Title"
	}
	return t, true
}

func naField(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" || s == "null" || s == "None" {
		return ""
	}
	return s
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func parseChapters(s string) []Chapter {
	if s == "" || s == "[]" {
		return nil
	}
	var raw []struct {
		StartTime float64 `json:"start_time"`
		Title     string  `json:"title"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	out := make([]Chapter, 0, len(raw))
	for _, c := range raw {
		out = append(out, Chapter{
			Start: time.Duration(c.StartTime * float64(time.Second)),
			Title: c.Title,
		})
	}
	return out
}
