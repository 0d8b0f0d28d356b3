package availability

import (
	"time"

	"github.com/citaplus/citaplus/services/booking-service/internal/clock"
	"github.com/citaplus/citaplus/services/booking-service/internal/model"
)

// DefaultDuration applies when a service has no stored duration.
const DefaultDuration = 60 * time.Minute

// AvailableSlots returns slot start times within [windowStart, windowEnd) where a booking of
// length duration would not overlap any of the busy intervals.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []model.Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) || windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []model.Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// Suggest lists start times for date inside the location's opening hours,
// stepped by the service duration and rendered as "H:MM AM/PM".
func Suggest(hours model.WeekHours, date time.Time, duration time.Duration, busy []model.Interval, now time.Time) []string {
	if duration <= 0 {
		duration = DefaultDuration
	}
	start, end, ok := hours.Window(date, clock.Zone)
	if !ok {
		return []string{}
	}
	slots := AvailableSlots(start, end, duration, duration, busy, now)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, clock.Format(s))
	}
	return out
}
