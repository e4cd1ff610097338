package labeler

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimestampFormats(t *testing.T) {
	anchor := time.Date(2026, 1, 5, 17, 44, 0, 0, time.UTC)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2026-01-05T17:44:22.123456Z", time.Date(2026, 1, 5, 17, 44, 22, 123456000, time.UTC)},
		{"2026-01-05T19:44:22+02:00", time.Date(2026, 1, 5, 17, 44, 22, 0, time.UTC)},
		{"2026-01-05T17:44:22.5", time.Date(2026, 1, 5, 17, 44, 22, 500000000, time.UTC)},
		{"2026-01-05 17:44:22", time.Date(2026, 1, 5, 17, 44, 22, 0, time.UTC)},
		{"2026-01-05 17:44:22,250", time.Date(2026, 1, 5, 17, 44, 22, 250000000, time.UTC)},
		{"1767635062", time.Unix(1767635062, 0)},
		{"1767635062.25", time.Unix(1767635062, 250000000)},
		{"17:44:22.123", time.Date(2026, 1, 5, 17, 44, 22, 123000000, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseTimestamp(c.raw, anchor, time.UTC)
		if err != nil {
			t.Fatalf("%q: %v", c.raw, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%q: got %v want %v", c.raw, got, c.want)
		}
	}
}

func TestParseTimestampCrossesMidnight(t *testing.T) {
	anchor := time.Date(2026, 1, 5, 23, 59, 50, 0, time.UTC)
	got, err := ParseTimestamp("00:00:05.000", anchor, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 1, 6, 0, 0, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}

	anchor = time.Date(2026, 1, 6, 0, 0, 10, 0, time.UTC)
	got, err = ParseTimestamp("23:59:58", anchor, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want = time.Date(2026, 1, 5, 23, 59, 58, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseTimestampErrors(t *testing.T) {
	if _, err := ParseTimestamp("", time.Now(), nil); !errors.Is(err, errEmptyTimestamp) {
		t.Fatalf("expected empty error, got %v", err)
	}
	if _, err := ParseTimestamp("12:00:00", time.Time{}, nil); !errors.Is(err, errNoAnchor) {
		t.Fatalf("expected anchor error, got %v", err)
	}
	if _, err := ParseTimestamp("Jan 5th", time.Now(), nil); !errors.Is(err, errUnknownFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}
