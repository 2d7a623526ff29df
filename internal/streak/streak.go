// Package streak summarizes CompletionRecord history into streak statistics.
package streak

import (
	"slices"
	"time"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/utils"
)

// Calculate derives streak statistics from records, bucketing completions by
// their calendar date in loc. now decides what "today" is; a nil loc means time.Local.
func Calculate(records []models.CompletionRecord, loc *time.Location, now time.Time) models.StreakInfo {
	if loc == nil {
		loc = time.Local
	}

	resolved := 0
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range records {
		if r.Action.Resolves() {
			resolved++
		}
		if r.Action != models.ActionCompleted {
			continue
		}
		d := utils.CivilDate(r.Timestamp, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}

	info := models.StreakInfo{TotalCompletions: len(dates)}
	if len(dates) == 0 {
		return info
	}
	if resolved > 0 {
		info.CompletionRate = float64(len(dates)) / float64(resolved)
	}

	// newest first
	slices.SortFunc(dates, func(a, b time.Time) int { return b.Compare(a) })

	today := utils.CivilDate(now, loc)
	if utils.DaysBetween(dates[0], today) <= 1 {
		info.CurrentStreak = runLength(dates)
	}

	for i := 0; i < len(dates); {
		n := runLength(dates[i:])
		info.LongestStreak = max(info.LongestStreak, n)
		i += n
	}
	return info
}

// runLength counts consecutive days at the head of dates, which must be
// distinct and sorted newest first.
func runLength(dates []time.Time) int {
	n := 1
	for n < len(dates) && utils.DaysBetween(dates[n], dates[n-1]) == 1 {
		n++
	}
	return n
}
