package proc

import (
	"context"
	"database/sql"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

const historyBuffer = 256

// HistoryLog persists queued tracks to the play_history table. Writes happen
// on a background daemon so LogTrack never blocks the player.
type HistoryLog struct {
	db      *sql.DB
	entries chan *sys.PlayHistoryEntry
	now     func() time.Time
}

func NewHistoryLog(db *sql.DB) *HistoryLog {
	return &HistoryLog{
		db:      db,
		entries: make(chan *sys.PlayHistoryEntry, historyBuffer),
		now:     time.Now,
	}
}

func (h *HistoryLog) LogTrack(guildID snowflake.ID, t *Track) {
	e := NormalizeHistory(guildID, t, h.now())
	select {
	case h.entries <- e:
	default:
		sys.LogWarn(sys.MsgHistoryDropped, e.Title)
	}
}

// Run writes entries until ctx is done, then flushes whatever is still
// buffered.
func (h *HistoryLog) Run(ctx context.Context) {
	for {
		select {
		case e := <-h.entries:
			h.write(context.Background(), e)
		case <-ctx.Done():
			h.flush()
			return
		}
	}
}

func (h *HistoryLog) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n := 0
	for {
		select {
		case e := <-h.entries:
			h.write(ctx, e)
			n++
		default:
			if n > 0 {
				sys.LogHistory(sys.MsgHistoryFlushed, n)
			}
			return
		}
	}
}

func (h *HistoryLog) write(ctx context.Context, e *sys.PlayHistoryEntry) {
	if err := sys.AddPlayHistory(ctx, h.db, e); err != nil {
		sys.LogWarn(sys.MsgHistoryWriteFail, e.Title, err)
	}
}

// Recent returns the newest entries for a guild, optionally bounded by since.
func (h *HistoryLog) Recent(ctx context.Context, guildID snowflake.ID, since time.Time, limit int) ([]*sys.PlayHistoryEntry, error) {
	return sys.GetPlayHistory(ctx, h.db, guildID, since, limit)
}

// NormalizeHistory maps track metadata onto the common history schema.
func NormalizeHistory(guildID snowflake.ID, t *Track, playedAt time.Time) *sys.PlayHistoryEntry {
	e := &sys.PlayHistoryEntry{
		GuildID:     guildID,
		Title:       t.Title,
		URL:         t.URL,
		RequesterID: t.Requester,
		Genre:       t.Genre,
		UploadDate:  t.UploadDate,
		Duration:    t.Duration,
		PlayedAt:    playedAt,
	}
	if e.Title == "" {
		e.Title = "Unknown Title"
	}
	if e.URL == "" {
		e.URL = t.MediaURL
	}
	if e.URL == "" {
		e.URL = "Unknown URL"
	}
	if e.Genre == "" && len(t.Tags) > 0 {
		e.Genre = t.Tags[0]
	}
	if d := e.UploadDate; len(d) == 8 {
		e.UploadDate = d[:4] + "-" + d[4:6] + "-" + d[6:]
	}
	return e
}
