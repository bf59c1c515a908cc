package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgHiBlack)

	// Component colors
	databaseColor = color.New()
	loaderColor   = color.New(color.FgCyan)
	voiceColor    = color.New(color.FgMagenta)
	musicColor    = color.New(color.FgMagenta)
	historyColor  = color.New(color.FgBlue)

	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	Logger            *slog.Logger

	logMu     sync.Mutex
	logWriter *lumberjack.Logger
)

const LevelFatal = slog.LevelError + 4

func init() {
	InitLogger(false, "")
}

// InitLogger installs the coloured handler as the slog default. When logPath is
// non-empty, output is mirrored (without ANSI codes) into a rotating log file.
func InitLogger(silent bool, logPath string) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}

	var writer io.Writer = os.Stdout
	if logPath != "" {
		logWriter = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logWriter))
	}

	color.NoColor = false

	Logger = slog.New(NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	}))
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	path := ""
	logMu.Lock()
	if logWriter != nil {
		path = logWriter.Filename
	}
	logMu.Unlock()
	InitLogger(silent, path)
}

// CloseLogger flushes and closes the rotating log file, if any.
func CloseLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

// LogFatal logs and panics so deferred cleanup in main still runs.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), LevelFatal, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogLoader(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "loader"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogMusic(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "music"))
}

func LogHistory(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "history"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	var levelStr string
	var levelColor *color.Color
	switch {
	case r.Level >= LevelFatal:
		levelStr, levelColor = "FATAL", fatalColor
	case r.Level >= slog.LevelError:
		levelStr, levelColor = "ERROR", errorColor
	case r.Level >= slog.LevelWarn:
		levelStr, levelColor = "WARN", warnColor
	case r.Level >= slog.LevelInfo:
		levelStr, levelColor = "INFO", infoColor
	default:
		levelStr, levelColor = "DEBUG", debugColor
	}

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(h.w, "%s", ts.Format(DefaultTimeFormat))

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(getComponentColor(component), fmt.Sprintf("[%s] %s", component, r.Message)))
		return nil
	}

	displayMsg := fmt.Sprintf("[%s] %s", levelStr, r.Message)
	if levelStr == "INFO" && strings.HasPrefix(r.Message, "[") {
		if idx := strings.Index(r.Message, "]"); idx > 0 && idx < 20 {
			displayMsg = r.Message
		}
	}
	fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, displayMsg))
	return nil
}

func (h *BotLogHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(_ string) slog.Handler      { return h }

// --- Formatting Helpers ---

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "LOADER":
		return loaderColor
	case "VOICE":
		return voiceColor
	case "MUSIC":
		return musicColor
	case "HISTORY":
		return historyColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]
	return c.Sprint(strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq))
}

// --- ANSI Stripper ---

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type StripANSIWriter struct {
	w io.Writer
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{w: w}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	_, err = s.w.Write(ansiPattern.ReplaceAll(p, nil))
	return len(p), err
}
