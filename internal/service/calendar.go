package service

import (
	"math/rand/v2"
	"time"
)

const (
	CalendarSlots   = 28
	windowStartHour = 9
	windowEndHour   = 21
	minLeadTime     = 2 * time.Hour
)

// BuildCalendar returns one posting slot per day for four weeks. Each slot
// falls on a random minute in [09:00, 21:00) local time and never earlier
// than two hours from now.
func BuildCalendar(now time.Time, loc *time.Location, rng *rand.Rand) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	earliest := now.Add(minLeadTime).In(loc)

	y, m, d := earliest.Date()
	slots := make([]time.Time, 0, CalendarSlots)

	for day := 0; len(slots) < CalendarSlots; day++ {
		start := time.Date(y, m, d+day, windowStartHour, 0, 0, 0, loc)
		end := time.Date(y, m, d+day, windowEndHour, 0, 0, 0, loc)

		if start.Before(earliest) {
			start = earliest.Truncate(time.Minute)
			if start.Before(earliest) {
				start = start.Add(time.Minute)
			}
		}

		window := int(end.Sub(start) / time.Minute)
		if window <= 0 {
			continue
		}
		slots = append(slots, start.Add(time.Duration(rng.IntN(window))*time.Minute))
	}

	return slots
}
