// Package recurrence computes the next fire instants of a recurring alarm.
//
// Every function here is pure: the only notion of "now" is the from argument.
// Calendar arithmetic runs on civil dates (midnight UTC values) and wall-clock
// times are attached in the alarm's location at the very end, so an alarm keeps
// its local time of day across DST transitions.
package recurrence

import (
	"iter"
	"slices"
	"time"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/utils"
)

// DistantFuture is returned for a one-time schedule whose moment has passed.
// Callers are expected to disable the alarm when they see it.
var DistantFuture = time.Date(4001, time.January, 1, 0, 0, 0, 0, time.UTC)

// IsDistantFuture reports whether t is the expired one-time sentinel.
func IsDistantFuture(t time.Time) bool {
	return !t.Before(DistantFuture)
}

// maxCandidates bounds the date scan. Every well-formed schedule resolves
// within two candidates; the bound only guards against malformed data.
const maxCandidates = 512

// NextFireDate returns the earliest fire instant strictly after from.
//
// Degenerate schedules (no weekdays, no days of month, non-positive interval,
// no times of day) return from unchanged. An expired one-time schedule returns
// DistantFuture.
func NextFireDate(s models.Schedule, times []models.TimeOfDay, loc *time.Location, from time.Time) time.Time {
	return NextFireDates(s, times, loc, from)[0]
}

// NextFireDates returns every fire instant on the next qualifying date that is
// strictly after from, sorted ascending. Its first element equals NextFireDate.
// Degenerate and expired inputs yield a single element, as NextFireDate would.
func NextFireDates(s models.Schedule, times []models.TimeOfDay, loc *time.Location, from time.Time) []time.Time {
	tods := validTimes(times)
	if loc == nil || len(tods) == 0 {
		return []time.Time{from}
	}

	dates, ok := candidates(s, loc, from)
	if !ok {
		return []time.Time{from}
	}

	n := 0
	for date := range dates {
		if out := instantsAfter(date, tods, loc, from); len(out) > 0 {
			return out
		}
		if n++; n >= maxCandidates {
			break
		}
	}

	if s.Kind == models.ScheduleOneTime {
		return []time.Time{DistantFuture}
	}
	return []time.Time{from}
}

// candidates yields qualifying civil dates, ascending, starting on or after
// from's local date. ok is false when the schedule is degenerate.
func candidates(s models.Schedule, loc *time.Location, from time.Time) (iter.Seq[time.Time], bool) {
	day := utils.CivilDate(from, loc)

	switch s.Kind {
	case models.ScheduleWeekly:
		return weekly(s, day)
	case models.ScheduleMonthlyByDate:
		return monthlyByDate(s, day)
	case models.ScheduleMonthlyRelative:
		return monthlyRelative(s, day)
	case models.ScheduleAnnual:
		return annual(s, day)
	case models.ScheduleCustomDays:
		return customDays(s, loc, day)
	case models.ScheduleOneTime:
		if s.FireDate.IsZero() {
			return nil, false
		}
		fire := utils.CivilDate(s.FireDate, loc)
		return func(yield func(time.Time) bool) {
			if !fire.Before(day) {
				yield(fire)
			}
		}, true
	}
	return nil, false
}

// weekly scans the Monday-aligned week containing day, then every interval-th
// week after it.
func weekly(s models.Schedule, day time.Time) (iter.Seq[time.Time], bool) {
	var selected [8]bool
	found := false
	for _, d := range s.DaysOfWeek {
		if d.Valid() {
			selected[d] = true
			found = true
		}
	}
	if !found || s.Interval < 1 {
		return nil, false
	}

	sinceMonday := (int(day.Weekday()) + 6) % 7
	weekStart := day.AddDate(0, 0, -sinceMonday)

	return func(yield func(time.Time) bool) {
		for week := weekStart; ; week = week.AddDate(0, 0, 7*s.Interval) {
			for i := range 7 {
				d := week.AddDate(0, 0, i)
				if d.Before(day) || !selected[models.WeekdayFromTime(d.Weekday())] {
					continue
				}
				if !yield(d) {
					return
				}
			}
		}
	}, true
}

func monthlyByDate(s models.Schedule, day time.Time) (iter.Seq[time.Time], bool) {
	var days []int
	for _, d := range s.DaysOfMonth {
		if d >= 1 && d <= 31 {
			days = append(days, d)
		}
	}
	if len(days) == 0 || s.Interval < 1 {
		return nil, false
	}
	slices.Sort(days)

	return func(yield func(time.Time) bool) {
		for m := 0; ; m += s.Interval {
			year, month := addMonths(day.Year(), day.Month(), m)
			last := time.Time{}
			for _, d := range days {
				date := clampedDate(year, month, d)
				if date.Equal(last) || date.Before(day) {
					continue
				}
				last = date
				if !yield(date) {
					return
				}
			}
		}
	}, true
}

func monthlyRelative(s models.Schedule, day time.Time) (iter.Seq[time.Time], bool) {
	valid := s.WeekOfMonth == models.LastWeekOfMonth || (s.WeekOfMonth >= 1 && s.WeekOfMonth <= 4)
	if !valid || !s.DayOfWeek.Valid() || s.Interval < 1 {
		return nil, false
	}
	wd := s.DayOfWeek.Time()

	return func(yield func(time.Time) bool) {
		for m := 0; ; m += s.Interval {
			year, month := addMonths(day.Year(), day.Month(), m)
			date, ok := nthWeekday(year, month, wd, s.WeekOfMonth)
			if !ok || date.Before(day) {
				continue
			}
			if !yield(date) {
				return
			}
		}
	}, true
}

func annual(s models.Schedule, day time.Time) (iter.Seq[time.Time], bool) {
	if s.Month < time.January || s.Month > time.December || s.DayOfMonth < 1 || s.Interval < 1 {
		return nil, false
	}

	return func(yield func(time.Time) bool) {
		for year := day.Year(); ; year += s.Interval {
			date := clampedDate(year, s.Month, s.DayOfMonth)
			if date.Before(day) {
				continue
			}
			if !yield(date) {
				return
			}
		}
	}, true
}

// customDays anchors on StartDate's local date. The first candidate is the
// cycle boundary after the one containing day, and a future anchor counts as
// cycle zero, so the anchor date itself never fires.
func customDays(s models.Schedule, loc *time.Location, day time.Time) (iter.Seq[time.Time], bool) {
	if s.IntervalDays < 1 || s.StartDate.IsZero() {
		return nil, false
	}
	anchor := utils.CivilDate(s.StartDate, loc)

	cycle := 0
	if elapsed := utils.DaysBetween(anchor, day); elapsed >= 0 {
		cycle = elapsed / s.IntervalDays
	}
	first := anchor.AddDate(0, 0, (cycle+1)*s.IntervalDays)

	return func(yield func(time.Time) bool) {
		for d := first; ; d = d.AddDate(0, 0, s.IntervalDays) {
			if !yield(d) {
				return
			}
		}
	}, true
}

// instantsAfter attaches each time of day to date in loc and keeps those after from.
func instantsAfter(date time.Time, times []models.TimeOfDay, loc *time.Location, from time.Time) []time.Time {
	var out []time.Time
	for _, tod := range times {
		if inst := tod.On(date, loc); inst.After(from) {
			out = append(out, inst)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

func validTimes(times []models.TimeOfDay) []models.TimeOfDay {
	out := make([]models.TimeOfDay, 0, len(times))
	for _, t := range times {
		if t.Valid() {
			out = append(out, t)
		}
	}
	return out
}
