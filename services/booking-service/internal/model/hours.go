package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayHours is the normalized opening window for one weekday. Open and Close
// are "HH:MM" wall-clock strings.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	IsOpen bool   `json:"is_open"`
}

// storedDay accepts both shapes found in locations.hours:
// {open, close, closed} and {open, close, is_open}.
type storedDay struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed *bool  `json:"closed"`
	IsOpen *bool  `json:"is_open"`
}

func (d *DayHours) UnmarshalJSON(b []byte) error {
	var raw storedDay
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Open = strings.TrimSpace(raw.Open)
	d.Close = strings.TrimSpace(raw.Close)
	switch {
	case raw.IsOpen != nil:
		d.IsOpen = *raw.IsOpen
	case raw.Closed != nil:
		d.IsOpen = !*raw.Closed
	default:
		d.IsOpen = d.Open != "" && d.Close != ""
	}
	return nil
}

// WeekHours maps a weekday to its hours. Days absent from the map are closed.
type WeekHours map[time.Weekday]DayHours

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DecodeHours reads the jsonb hours column. Keys are English weekday names
// in any case; unknown keys are ignored.
func DecodeHours(b []byte) (WeekHours, error) {
	if len(b) == 0 || string(b) == "null" {
		return WeekHours{}, nil
	}
	var raw map[string]DayHours
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode hours: %w", err)
	}
	out := make(WeekHours, len(raw))
	for k, v := range raw {
		if day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(k))]; ok {
			out[day] = v
		}
	}
	return out, nil
}

func (w WeekHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]DayHours, len(w))
	for day, h := range w {
		out[strings.ToLower(day.String())] = h
	}
	return json.Marshal(out)
}

func (w *WeekHours) UnmarshalJSON(b []byte) error {
	h, err := DecodeHours(b)
	if err != nil {
		return err
	}
	*w = h
	return nil
}

// Window returns the opening window of date's weekday expressed in loc.
func (w WeekHours) Window(date time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	h, ok := w[date.Weekday()]
	if !ok || !h.IsOpen {
		return time.Time{}, time.Time{}, false
	}
	openH, openM, err := parseHHMM(h.Open)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closeH, closeM, err := parseHHMM(h.Close)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, openH, openM, 0, 0, loc)
	end := time.Date(y, m, d, closeH, closeM, 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
