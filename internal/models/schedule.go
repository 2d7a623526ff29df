package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/chime/internal/constants"
)

// ScheduleKind discriminates the Schedule union.
type ScheduleKind string

const (
	ScheduleWeekly          ScheduleKind = "weekly"
	ScheduleMonthlyByDate   ScheduleKind = "monthly-date"
	ScheduleMonthlyRelative ScheduleKind = "monthly-relative"
	ScheduleAnnual          ScheduleKind = "annual"
	ScheduleCustomDays      ScheduleKind = "custom-days"
	ScheduleOneTime         ScheduleKind = "one-time"
)

// LastWeekOfMonth selects the last occurrence of a weekday in MonthlyRelative schedules.
const LastWeekOfMonth = -1

// Schedule is a tagged union; only the fields belonging to Kind are meaningful.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	// Interval counts weeks (Weekly), months (MonthlyByDate, MonthlyRelative) or years (Annual).
	Interval int `json:"interval,omitempty"`

	DaysOfWeek  []Weekday `json:"days_of_week,omitempty"`
	DaysOfMonth []int     `json:"days_of_month,omitempty"`

	WeekOfMonth int     `json:"week_of_month,omitempty"` // 1..4 or LastWeekOfMonth
	DayOfWeek   Weekday `json:"day_of_week,omitempty"`

	Month      time.Month `json:"month,omitempty"`
	DayOfMonth int        `json:"day_of_month,omitempty"`

	IntervalDays int       `json:"interval_days,omitempty"`
	StartDate    time.Time `json:"start_date,omitzero"`

	FireDate time.Time `json:"fire_date,omitzero"`
}

func Weekly(interval int, days ...Weekday) Schedule {
	return Schedule{Kind: ScheduleWeekly, Interval: interval, DaysOfWeek: days}
}

func MonthlyByDate(interval int, days ...int) Schedule {
	return Schedule{Kind: ScheduleMonthlyByDate, Interval: interval, DaysOfMonth: days}
}

func MonthlyRelative(weekOfMonth int, day Weekday, interval int) Schedule {
	return Schedule{Kind: ScheduleMonthlyRelative, WeekOfMonth: weekOfMonth, DayOfWeek: day, Interval: interval}
}

func Annual(month time.Month, day, interval int) Schedule {
	return Schedule{Kind: ScheduleAnnual, Month: month, DayOfMonth: day, Interval: interval}
}

func CustomDays(intervalDays int, start time.Time) Schedule {
	return Schedule{Kind: ScheduleCustomDays, IntervalDays: intervalDays, StartDate: start}
}

func OneTime(fireDate time.Time) Schedule {
	return Schedule{Kind: ScheduleOneTime, FireDate: fireDate}
}

// Validate rejects schedules a user should not be able to create. The recurrence
// calculator tolerates everything Validate rejects by returning its input unchanged.
func (s Schedule) Validate() error {
	switch s.Kind {
	case ScheduleWeekly:
		if len(s.DaysOfWeek) == 0 {
			return fmt.Errorf("weekdays must be specified for weekly schedule")
		}
		for _, d := range s.DaysOfWeek {
			if !d.Valid() {
				return fmt.Errorf("invalid weekday %d (expected 1-7, 1=Sunday)", int(d))
			}
		}
		return validateInterval(s.Interval, "weeks")
	case ScheduleMonthlyByDate:
		if len(s.DaysOfMonth) == 0 {
			return fmt.Errorf("days of month must be specified for monthly schedule")
		}
		for _, d := range s.DaysOfMonth {
			if d < 1 || d > 31 {
				return fmt.Errorf("invalid day of month %d (expected 1-31)", d)
			}
		}
		return validateInterval(s.Interval, "months")
	case ScheduleMonthlyRelative:
		if s.WeekOfMonth != LastWeekOfMonth && (s.WeekOfMonth < 1 || s.WeekOfMonth > 4) {
			return fmt.Errorf("week of month must be 1-4 or -1 (last), got %d", s.WeekOfMonth)
		}
		if !s.DayOfWeek.Valid() {
			return fmt.Errorf("invalid weekday %d (expected 1-7, 1=Sunday)", int(s.DayOfWeek))
		}
		return validateInterval(s.Interval, "months")
	case ScheduleAnnual:
		if s.Month < time.January || s.Month > time.December {
			return fmt.Errorf("invalid month %d", int(s.Month))
		}
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return fmt.Errorf("invalid day of month %d (expected 1-31)", s.DayOfMonth)
		}
		return validateInterval(s.Interval, "years")
	case ScheduleCustomDays:
		if s.StartDate.IsZero() {
			return fmt.Errorf("start date is required for custom-days schedule")
		}
		return validateInterval(s.IntervalDays, "days")
	case ScheduleOneTime:
		if s.FireDate.IsZero() {
			return fmt.Errorf("fire date is required for one-time schedule")
		}
		return nil
	default:
		return fmt.Errorf("unknown schedule kind %q", s.Kind)
	}
}

func validateInterval(n int, unit string) error {
	if n < 1 {
		return fmt.Errorf("interval must be at least 1 %s, got %d", unit, n)
	}
	return nil
}

// Describe returns a human-readable summary of the schedule.
func (s Schedule) Describe() string {
	switch s.Kind {
	case ScheduleWeekly:
		days := make([]string, len(s.DaysOfWeek))
		for i, d := range s.DaysOfWeek {
			days[i] = d.String()[:3]
		}
		return every(s.Interval, "week") + " on " + strings.Join(days, ", ")
	case ScheduleMonthlyByDate:
		days := make([]string, len(s.DaysOfMonth))
		for i, d := range s.DaysOfMonth {
			days[i] = fmt.Sprintf("%d", d)
		}
		return every(s.Interval, "month") + " on day " + strings.Join(days, ", ")
	case ScheduleMonthlyRelative:
		ord := "last"
		if s.WeekOfMonth != LastWeekOfMonth {
			ord = [...]string{"", "1st", "2nd", "3rd", "4th"}[clampOrdinal(s.WeekOfMonth)]
		}
		return fmt.Sprintf("%s on the %s %s", every(s.Interval, "month"), ord, s.DayOfWeek)
	case ScheduleAnnual:
		return fmt.Sprintf("%s on %s %d", every(s.Interval, "year"), s.Month, s.DayOfMonth)
	case ScheduleCustomDays:
		return fmt.Sprintf("%s from %s", every(s.IntervalDays, "day"), s.StartDate.Format(constants.DateFormat))
	case ScheduleOneTime:
		return fmt.Sprintf("Once on %s", s.FireDate.Format(constants.DateFormat))
	default:
		return string(s.Kind)
	}
}

func every(n int, unit string) string {
	if n == 1 {
		return "Every " + unit
	}
	return fmt.Sprintf("Every %d %ss", n, unit)
}

func clampOrdinal(n int) int {
	if n < 1 || n > 4 {
		return 0
	}
	return n
}
