package proc

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

type Chapter struct {
	Start time.Duration
	Title string
}

// Track is queued metadata for one piece of audio. MediaURL is whatever the
// resolver saw at queue time and is only used for display; playback always
// re-derives a fresh URL from URL.
type Track struct {
	EntryID    uuid.UUID
	Title      string
	URL        string
	MediaURL   string
	Duration   time.Duration
	Thumbnail  string
	Uploader   string
	Chapters   []Chapter
	Genre      string
	Tags       []string
	UploadDate string
	Requester  snowflake.ID
}

// Live reports whether the track has no known length.
func (t *Track) Live() bool {
	return t.Duration <= 0
}

// ChapterAt returns the chapter covering pos, if any.
func (t *Track) ChapterAt(pos time.Duration) (Chapter, bool) {
	var found Chapter
	ok := false
	for _, c := range t.Chapters {
		if c.Start > pos {
			break
		}
		found, ok = c, true
	}
	return found, ok
}

func (t *Track) clone() *Track {
	c := *t
	c.Chapters = append([]Chapter(nil), t.Chapters...)
	c.Tags = append([]string(nil), t.Tags...)
	return &c
}

// Playable is a short-lived handle created right before streaming.
type Playable struct {
	Track     *Track
	MediaURL  string
	Offset    time.Duration
	FetchedAt time.Time
}
