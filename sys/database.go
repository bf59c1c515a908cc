package sys

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

// --- Database Connection & Lifecycle ---

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// Explicitly reference sqlite3 driver to avoid blank identifier
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			genre TEXT,
			upload_date TEXT,
			duration INTEGER DEFAULT 0,
			played_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_guild ON play_history (guild_id, played_at)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Bot Persistence ---

// BotConfig helpers are used by the loader for mode tracking and state.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Play History ---

type PlayHistoryEntry struct {
	ID          int64
	GuildID     snowflake.ID
	Title       string
	URL         string
	RequesterID snowflake.ID
	Genre       string
	UploadDate  string
	Duration    time.Duration
	PlayedAt    time.Time
}

func AddPlayHistory(ctx context.Context, db *sql.DB, e *PlayHistoryEntry) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO play_history (guild_id, title, url, requester_id, genre, upload_date, duration, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.GuildID.String(), e.Title, e.URL, e.RequesterID.String(), e.Genre, e.UploadDate,
		int64(e.Duration/time.Second), e.PlayedAt.UTC())
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// GetPlayHistory returns entries newest first. A zero guildID matches every
// guild and a zero since disables the time filter.
func GetPlayHistory(ctx context.Context, db *sql.DB, guildID snowflake.ID, since time.Time, limit int) ([]*PlayHistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, guild_id, title, url, requester_id, COALESCE(genre, ''), COALESCE(upload_date, ''), duration, played_at
		FROM play_history WHERE 1 = 1`
	var args []any
	if guildID != 0 {
		query += " AND guild_id = ?"
		args = append(args, guildID.String())
	}
	if !since.IsZero() {
		query += " AND played_at >= ?"
		args = append(args, since.UTC())
	}
	query += " ORDER BY played_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*PlayHistoryEntry
	for rows.Next() {
		var e PlayHistoryEntry
		var gID, reqID string
		var secs int64
		if err := rows.Scan(&e.ID, &gID, &e.Title, &e.URL, &reqID, &e.Genre, &e.UploadDate, &secs, &e.PlayedAt); err != nil {
			return nil, err
		}
		e.GuildID, _ = snowflake.Parse(gID)
		e.RequesterID, _ = snowflake.Parse(reqID)
		e.Duration = time.Duration(secs) * time.Second
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func GetPlayHistoryCount(ctx context.Context, db *sql.DB, guildID snowflake.ID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM play_history WHERE guild_id = ?", guildID.String()).Scan(&count)
	return count, err
}
