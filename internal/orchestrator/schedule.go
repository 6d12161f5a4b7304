package orchestrator

import "time"

// firstDinnerPercent is the share of the month's dinners selected in phase 1.
const firstDinnerPercent = 67

// DaysInMonth returns the number of days in t's calendar month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// DinnerSplit returns how many dinners phases 1 and 2 select for a month of
// the given length: ceil(days*0.67) and the remainder.
func DinnerSplit(days int) (first, second int) {
	if days <= 0 {
		return 0, 0
	}
	first = (days*firstDinnerPercent + 99) / 100
	return first, days - first
}
