package recurrence

import (
	"time"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/utils"
)

// addMonths returns the month n months after (year, month).
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	idx := year*12 + int(month-1) + n
	return idx / 12, time.Month(idx%12 + 1)
}

// clampedDate builds the civil date (year, month, day), pulling day back to the
// last day of the month when the month is shorter.
func clampedDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, min(day, utils.DaysIn(year, month)), 0, 0, 0, 0, time.UTC)
}

// nthWeekday resolves the n-th (1..4) or last (n == -1) weekday wd of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) (time.Time, bool) {
	dim := utils.DaysIn(year, month)

	if n == models.LastWeekOfMonth {
		lastWd := time.Date(year, month, dim, 0, 0, 0, 0, time.UTC).Weekday()
		day := dim - (int(lastWd)-int(wd)+7)%7
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}

	firstWd := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	day := 1 + (int(wd)-int(firstWd)+7)%7 + 7*(n-1)
	if day > dim {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}
