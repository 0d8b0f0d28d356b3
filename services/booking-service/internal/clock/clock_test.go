package clock

import (
	"errors"
	"testing"
	"time"
)

func TestAt(t *testing.T) {
	cases := []struct {
		date, clock string
		want        string
	}{
		{"2025-06-15", "3:00 PM", "2025-06-15T20:00:00.000Z"},
		{"2025-06-15", "12:00 AM", "2025-06-15T05:00:00.000Z"},
		{"2025-06-15", "12:30 PM", "2025-06-15T17:30:00.000Z"},
		{"2025-07-01", "10:00 AM", "2025-07-01T15:00:00.000Z"},
		{"2025-12-31", "11:45 PM", "2026-01-01T04:45:00.000Z"},
		{"2025-06-15", "9:05AM", "2025-06-15T14:05:00.000Z"},
	}
	for _, tc := range cases {
		got, err := At(tc.date, tc.clock)
		if err != nil {
			t.Fatalf("At(%q, %q): %v", tc.date, tc.clock, err)
		}
		if s := got.Format("2006-01-02T15:04:05.000Z"); s != tc.want {
			t.Fatalf("At(%q, %q) = %s, want %s", tc.date, tc.clock, s, tc.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, s := range []string{"15:00", "3 PM", "3:00 pm", "13:00 PM", "0:30 AM", "3:60 PM", "", "03:00:00 PM"} {
		if _, _, err := Parse(s); !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("Parse(%q): expected ErrInvalidTime, got %v", s, err)
		}
	}
}

func TestAtRejectsBadDate(t *testing.T) {
	if _, err := At("15/06/2025", "3:00 PM"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestFormatMatchesParse(t *testing.T) {
	instant := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	s := Format(instant)
	if s != "3:00 PM" {
		t.Fatalf("expected 3:00 PM, got %q", s)
	}
	back, err := At("2025-06-15", s)
	if err != nil || !back.Equal(instant) {
		t.Fatalf("round trip: got %s (%v)", back, err)
	}
}
