package proc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

const (
	searchTimeout    = 2300 * time.Millisecond
	maxSearchResults = 25
)

type SearchResult struct {
	Title string
	URL   string
}

// Search queries YouTube Music and YouTube in parallel for autocomplete.
// A configured prefix on the query selects which source is listed first.
func Search(ctx context.Context, q string) []SearchResult {
	preferYT, query := splitSourcePrefix(q)
	if query == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		ytm, yt []SearchResult
		seen    = make(map[string]bool)
		wg      sync.WaitGroup
	)
	add := func(dst *[]SearchResult, id string, r SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		*dst = append(*dst, r)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			return
		}
		for _, v := range r.Tracks {
			art := ""
			if len(v.Artists) > 0 {
				art = " - " + v.Artists[0].Name
			}
			add(&ytm, v.VideoID, SearchResult{
				URL:   "https://music.youtube.com/watch?v=" + v.VideoID,
				Title: sourceLabel(ytmusicPrefix(), v.Title, art),
			})
		}
	}()
	go func() {
		defer wg.Done()
		r, err := ytsearch.NewClient(nil).Search(ctx, query)
		if err != nil {
			return
		}
		for _, v := range r.Results {
			add(&yt, v.VideoID, SearchResult{
				URL:   "https://www.youtube.com/watch?v=" + v.VideoID,
				Title: sourceLabel(youtubePrefix(), v.Title, ""),
			})
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	var out []SearchResult
	if preferYT {
		out = append(append(out, yt...), ytm...)
	} else {
		out = append(append(out, ytm...), yt...)
	}
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	return out
}

// splitSourcePrefix strips a leading source prefix from q and reports
// whether plain YouTube was asked for.
func splitSourcePrefix(q string) (bool, string) {
	query := strings.TrimSpace(q)
	ytp, ytmp := youtubePrefix(), ytmusicPrefix()
	// The YouTube Music prefix is checked first when it extends the YouTube one.
	if ytmp != "" && hasPrefixFold(query, ytmp) && (len(ytmp) >= len(ytp) || !hasPrefixFold(query, ytp)) {
		return false, strings.TrimSpace(query[len(ytmp):])
	}
	if ytp != "" && hasPrefixFold(query, ytp) {
		return true, strings.TrimSpace(query[len(ytp):])
	}
	return false, query
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// sourceLabel is the autocomplete name: the source prefix, the title and an
// optional suffix, fitted into Discord's 100 character limit.
func sourceLabel(prefix, title, suffix string) string {
	if prefix != "" {
		prefix += " "
	}
	return sys.TruncateWithPreserve(title, 100, prefix, suffix)
}

func youtubePrefix() string {
	if sys.GlobalConfig != nil {
		return sys.GlobalConfig.YoutubePrefix
	}
	return "[YT]"
}

func ytmusicPrefix() string {
	if sys.GlobalConfig != nil {
		return sys.GlobalConfig.YTMusicPrefix
	}
	return "[YTM]"
}
