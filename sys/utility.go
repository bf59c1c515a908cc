package sys

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sho0pi/naturaltime"
)

// ============================================================================
// String Utilities
// ============================================================================

// Truncate truncates a string to the specified length with ellipsis at the end.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// TruncateCenter truncates a string keeping both the start and end.
func TruncateCenter(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	k := (maxLen - 3) / 2
	return string(r[:k]) + "..." + string(r[len(r)-k:])
}

// TruncateWithPreserve truncates text while preserving a prefix and suffix.
func TruncateWithPreserve(text string, maxLen int, prefix, suffix string) string {
	rp, rs := []rune(prefix), []rune(suffix)
	fixedLen := len(rp) + len(rs)
	if fixedLen >= maxLen-10 {
		return TruncateCenter(prefix+text+suffix, maxLen)
	}
	return prefix + TruncateCenter(text, maxLen-fixedLen) + suffix
}

// ============================================================================
// Time Utilities
// ============================================================================

// FormatDuration renders a track length as mm:ss or h:mm:ss. Zero means a
// live or unknown length.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "Live"
	}
	return clock(d)
}

// FormatProgress renders "elapsed / total", clamping elapsed into [0, total].
func FormatProgress(elapsed, total time.Duration) string {
	if total <= 0 {
		return "Live"
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	if total >= time.Hour {
		return hourClock(elapsed) + " / " + hourClock(total)
	}
	return shortClock(elapsed) + " / " + shortClock(total)
}

// shortClock is m:ss with unpadded minutes.
func shortClock(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func clock(d time.Duration) string {
	secs := int64(d / time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func hourClock(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

var ErrInvalidTimeFormat = errors.New("invalid time format")

// maxSeekSeconds is the largest second count a time.Duration can hold.
const maxSeekSeconds = math.MaxInt64 / int64(time.Second)

// ParseTime parses "ss", "mm:ss" or "hh:mm:ss" into a duration.
func ParseTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidTimeFormat
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, ErrInvalidTimeFormat
	}

	var total int64
	for _, p := range parts {
		if p == "" {
			return 0, ErrInvalidTimeFormat
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, ErrInvalidTimeFormat
		}
		if n > maxSeekSeconds || total > (maxSeekSeconds-n)/60 {
			return 0, ErrInvalidTimeFormat
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

var (
	sinceParser     *naturaltime.Parser
	sinceParserErr  error
	sinceParserOnce sync.Once
)

// ParseSince turns "90m", "2h" or natural language such as "yesterday" or
// "last week" into a point in the past relative to now.
func ParseSince(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}

	if d, err := time.ParseDuration(input); err == nil {
		if d < 0 {
			d = -d
		}
		return now.Add(-d), nil
	}

	sinceParserOnce.Do(func() {
		sinceParser, sinceParserErr = naturaltime.New()
	})
	if sinceParserErr != nil {
		return time.Time{}, sinceParserErr
	}

	result, err := sinceParser.ParseDate(input, now)
	if err == nil && result != nil {
		if result.After(now) {
			return now, nil
		}
		return *result, nil
	}
	return time.Time{}, fmt.Errorf("could not parse time: %s", input)
}
