package utils

import (
	"testing"
	"time"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal string", "example.com", "example.com"},
		{"with control chars", "exam\x00ple.com", "example.com"},
		{"with newline", "example.com\n", "example.com"},
		{"with whitespace", "  example.com  ", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeString(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{100 * time.Millisecond, "100ms"},
		{2 * time.Second, "2.00s"},
		{2*time.Minute + 30*time.Second, "2m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.duration.String(), func(t *testing.T) {
			result := FormatDuration(tt.duration)
			if result != tt.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, result, tt.expected)
			}
		})
	}
}

func TestFormatTimestamp_UTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	ts := time.Date(2024, 3, 1, 20, 30, 15, 250_000_000, loc)

	got := FormatTimestamp(ts)
	if got != "2024-03-01T12:30:15.250Z" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
}

func TestSince(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	orig := Now
	Now = func() time.Time { return fixed }
	defer func() { Now = orig }()

	if got := Since(fixed.Add(-10 * time.Second)); got != 10*time.Second {
		t.Errorf("Since() = %v, want 10s", got)
	}
}
