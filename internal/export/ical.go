// Package export renders alarms as an iCalendar feed so other calendar
// clients can show them.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/recurrence"
)

const ProductID = "-//julianstephens//chime//EN"

const floatingFormat = "20060102T150405"

var weekdays = [...]rrule.Weekday{
	models.Sunday:    rrule.SU,
	models.Monday:    rrule.MO,
	models.Tuesday:   rrule.TU,
	models.Wednesday: rrule.WE,
	models.Thursday:  rrule.TH,
	models.Friday:    rrule.FR,
	models.Saturday:  rrule.SA,
}

// Calendar builds a VCALENDAR with one VEVENT per alarm time of day. Disabled
// alarms and alarms with nothing left to fire are omitted.
func Calendar(alarms []models.Alarm, now time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, a := range alarms {
		if !a.IsEnabled || recurrence.IsDistantFuture(a.NextFireDate) {
			continue
		}
		loc, err := a.Location()
		if err != nil {
			return nil, fmt.Errorf("alarm %s: %w", a.ID, err)
		}
		for _, tod := range a.TimesOfDay {
			start := recurrence.NextFireDate(a.Schedule, []models.TimeOfDay{tod}, loc, a.NextFireDate.Add(-time.Nanosecond))
			if recurrence.IsDistantFuture(start) {
				continue
			}
			cal.Children = append(cal.Children, event(a, tod, start.In(loc), now).Component)
		}
	}
	return cal, nil
}

// Write encodes the calendar for alarms to w.
func Write(w io.Writer, alarms []models.Alarm, now time.Time) error {
	cal, err := Calendar(alarms, now)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func event(a models.Alarm, tod models.TimeOfDay, start, now time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%02d%02d@chime", a.ID, tod.Hour, tod.Minute))
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetText(ical.PropSummary, a.Title)
	ev.Props.SetText(ical.PropDescription, a.Schedule.Describe())
	setStart(ev, start)

	if rule := RecurrenceRule(a.Schedule, start); rule != nil {
		ev.Props.SetRecurrenceRule(rule)
	}

	reminder := ical.NewComponent(ical.CompAlarm)
	reminder.Props.SetText(ical.PropAction, "DISPLAY")
	reminder.Props.SetText(ical.PropDescription, a.Title)
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.SetValueType(ical.ValueDuration)
	trigger.Value = "PT0S"
	reminder.Props.Set(trigger)
	ev.Children = append(ev.Children, reminder)

	return ev
}

// setStart writes DTSTART. "Local" has no IANA name to put in TZID, so those
// alarms get a floating time that follows whatever zone the client is in.
func setStart(ev *ical.Event, start time.Time) {
	if start.Location() != time.Local {
		ev.Props.SetDateTime(ical.PropDateTimeStart, start)
		return
	}
	prop := ical.NewProp(ical.PropDateTimeStart)
	prop.SetValueType(ical.ValueDateTime)
	prop.Value = start.Format(floatingFormat)
	ev.Props.Set(prop)
}

// RecurrenceRule maps a schedule onto an RRULE anchored at start, which must be
// an occurrence of the schedule. It returns nil for one-time schedules.
//
// Days past the 28th are clamped to the month's last day by the engine while
// RRULE skips short months, so a single such day is expressed as the last of
// BYMONTHDAY=28..d. Day 31 is always BYMONTHDAY=-1. A 29th or 30th mixed with
// other days is emitted as-is and skips short months.
func RecurrenceRule(s models.Schedule, start time.Time) *rrule.ROption {
	opt := &rrule.ROption{Dtstart: start, Interval: max(s.Interval, 1), Wkst: rrule.MO}

	switch s.Kind {
	case models.ScheduleWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range s.DaysOfWeek {
			if d.Valid() {
				opt.Byweekday = append(opt.Byweekday, weekdays[d])
			}
		}
	case models.ScheduleMonthlyByDate:
		opt.Freq = rrule.MONTHLY
		if len(s.DaysOfMonth) == 1 {
			opt.Bymonthday, opt.Bysetpos = clampedDay(s.DaysOfMonth[0])
			break
		}
		for _, d := range s.DaysOfMonth {
			if d == 31 {
				d = -1
			}
			opt.Bymonthday = append(opt.Bymonthday, d)
		}
	case models.ScheduleMonthlyRelative:
		if !s.DayOfWeek.Valid() {
			return nil
		}
		opt.Freq = rrule.MONTHLY
		opt.Byweekday = []rrule.Weekday{weekdays[s.DayOfWeek].Nth(s.WeekOfMonth)}
	case models.ScheduleAnnual:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(s.Month)}
		opt.Bymonthday, opt.Bysetpos = clampedDay(s.DayOfMonth)
	case models.ScheduleCustomDays:
		opt.Freq = rrule.DAILY
		opt.Interval = max(s.IntervalDays, 1)
	default:
		return nil
	}
	return opt
}

func clampedDay(d int) (days, setpos []int) {
	switch {
	case d == 31:
		return []int{-1}, nil
	case d <= 28:
		return []int{d}, nil
	}
	for day := 28; day <= d; day++ {
		days = append(days, day)
	}
	return days, []int{-1}
}
