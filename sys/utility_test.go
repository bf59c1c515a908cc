package sys

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "Live"},
		{5 * time.Second, "00:05"},
		{65 * time.Second, "01:05"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour, "1:00:00"},
		{3661 * time.Second, "1:01:01"},
		{1500 * time.Millisecond, "00:01"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name           string
		elapsed, total time.Duration
		want           string
	}{
		{"live", 10 * time.Second, 0, "Live"},
		{"start", 0, 3 * time.Minute, "0:00 / 3:00"},
		{"middle", 75 * time.Second, 3 * time.Minute, "1:15 / 3:00"},
		{"clamped", 5 * time.Minute, 3 * time.Minute, "3:00 / 3:00"},
		{"negative", -time.Second, 3 * time.Minute, "0:00 / 3:00"},
		{"long minutes", 9*time.Minute + 5*time.Second, 59 * time.Minute, "9:05 / 59:00"},
		{"hours", 90 * time.Second, 2 * time.Hour, "0:01:30 / 2:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatProgress(tt.elapsed, tt.total); got != tt.want {
				t.Errorf("FormatProgress(%v, %v) = %q, want %q", tt.elapsed, tt.total, got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"0", 0},
		{"45", 45 * time.Second},
		{"1:30", 90 * time.Second},
		{"01:02:03", 3723 * time.Second},
		{" 2:00 ", 2 * time.Minute},
		{"9223372035", 9223372035 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "abc", "1:2:3:4", "1::2", "-5", "1.5",
		"99999999999999", "9223372037", "153722867:0:0", "9223372036854775807"} {
		if _, err := ParseTime(bad); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Errorf("ParseTime(%q) error = %v, want ErrInvalidTimeFormat", bad, err)
		}
	}
}

func TestParseSinceDuration(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("90m", now)
	if err != nil {
		t.Fatalf("ParseSince: %v", err)
	}
	if want := now.Add(-90 * time.Minute); !got.Equal(want) {
		t.Errorf("ParseSince(90m) = %v, want %v", got, want)
	}

	got, err = ParseSince("", now)
	if err != nil || !got.IsZero() {
		t.Errorf("ParseSince(\"\") = %v, %v, want zero time", got, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := TruncateCenter("abcdefghij", 7); got != "ab...ij" {
		t.Errorf("TruncateCenter = %q", got)
	}
	if got := TruncateWithPreserve("a very long track title indeed", 24, "[", "]"); len([]rune(got)) > 24 {
		t.Errorf("TruncateWithPreserve length = %d", len([]rune(got)))
	}
}
