package calculator

import "time"

// DaysBetween returns the number of whole days from start to end, floored, never negative.
func DaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}
