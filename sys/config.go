package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

// --- Configuration & Environment ---

type Config struct {
	Token          string
	GuildID        string
	DatabasePath   string
	OwnerIDs       []string
	MusicChannelID snowflake.ID
	LogFile        string
	Silent         bool

	PlaylistLimit          int
	MaxConsecutiveFailures int
	ResolveTimeout         time.Duration

	YoutubePrefix string
	YTMusicPrefix string
}

const (
	DefaultPlaylistLimit          = 50
	DefaultMaxConsecutiveFailures = 5
	DefaultResolveTimeout         = 45 * time.Second
)

var GlobalConfig *Config

// LoadConfig reads .env and the process environment. The config is returned
// even when validation fails so offline tools (such as the history command)
// can still find the database.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))

	cfg := &Config{
		Token:                  os.Getenv("DISCORD_TOKEN"),
		GuildID:                os.Getenv("GUILD_ID"),
		DatabasePath:           dbPath,
		OwnerIDs:               splitList(os.Getenv("OWNER_IDS")),
		LogFile:                os.Getenv("LOG_FILE"),
		Silent:                 silent,
		PlaylistLimit:          DefaultPlaylistLimit,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		ResolveTimeout:         DefaultResolveTimeout,
		YoutubePrefix:          envOr("VOICE_YT_PREFIX", "[YT]"),
		YTMusicPrefix:          envOr("VOICE_YTM_PREFIX", "[YTM]"),
	}

	var parseErr error
	if v := os.Getenv("MUSIC_CHANNEL_ID"); v != "" {
		id, err := snowflake.Parse(v)
		if err != nil {
			parseErr = fmt.Errorf(MsgConfigInvalidChannel, err)
		}
		cfg.MusicChannelID = id
	}
	if n, err := envInt("PLAYLIST_LIMIT"); err != nil {
		parseErr = err
	} else if n > 0 {
		cfg.PlaylistLimit = n
	}
	if n, err := envInt("MAX_CONSECUTIVE_FAILURES"); err != nil {
		parseErr = err
	} else if n > 0 {
		cfg.MaxConsecutiveFailures = n
	}
	if v := os.Getenv("RESOLVE_TIMEOUT"); v != "" {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			parseErr = fmt.Errorf(MsgConfigInvalidNumber, "RESOLVE_TIMEOUT", err)
		} else if d > 0 {
			cfg.ResolveTimeout = d
		}
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg

	if parseErr != nil {
		return cfg, parseErr
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf(MsgConfigInvalidGuild)
	}
	return nil
}

// IsOwner reports whether userID is listed in OWNER_IDS.
func (c *Config) IsOwner(userID snowflake.ID) bool {
	if c == nil {
		return false
	}
	id := userID.String()
	for _, o := range c.OwnerIDs {
		if o == id {
			return true
		}
	}
	return false
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "jukebox"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "jukebox"
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}

// --- Helpers ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf(MsgConfigInvalidNumber, key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseSecondsOrDuration accepts "45" as seconds or any time.ParseDuration string.
func parseSecondsOrDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
