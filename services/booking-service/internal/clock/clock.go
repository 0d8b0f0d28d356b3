package clock

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Zone is the wall-clock zone appointments are booked in. The offset is fixed
// at UTC-5 with no daylight saving and is not configurable.
var Zone = time.FixedZone("UTC-5", -5*60*60)

const DateLayout = "2006-01-02"

var (
	ErrInvalidTime = errors.New("invalid time")
	ErrInvalidDate = errors.New("invalid date")
)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM)$`)

// Parse reads a 12-hour "H:MM AM/PM" string and returns the 24-hour hour and
// minute. 24-hour strings such as "15:00" are rejected.
func Parse(s string) (int, int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	switch {
	case m[3] == "AM" && hour == 12:
		hour = 0
	case m[3] == "PM" && hour != 12:
		hour += 12
	}
	return hour, minute, nil
}

// Format renders t in Zone as "H:MM AM/PM", the form Parse accepts.
func Format(t time.Time) string {
	return t.In(Zone).Format("3:04 PM")
}

// ParseDate reads a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// At combines a calendar date and a 12-hour clock string into an instant,
// interpreted in Zone and returned in UTC.
func At(date, clock string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := Parse(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, hour, minute, 0, 0, Zone).UTC(), nil
}
