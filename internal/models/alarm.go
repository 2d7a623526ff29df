package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/chime/internal/utils"
)

type Alarm struct {
	ID                     string      `json:"id"`
	Title                  string      `json:"title"`
	TimesOfDay             []TimeOfDay `json:"times_of_day"`
	Schedule               Schedule    `json:"schedule"`
	Timezone               string      `json:"timezone"` // IANA name or "Local"
	NextFireDate           time.Time   `json:"next_fire_date"`
	IsEnabled              bool        `json:"is_enabled"`
	SnoozeCount            int         `json:"snooze_count"`
	IsPendingConfirmation  bool        `json:"is_pending_confirmation"`
	PendingSince           *time.Time  `json:"pending_since,omitempty"`
	LastFiredDate          *time.Time  `json:"last_fired_date,omitempty"`
	FollowUpIntervalMillis int64       `json:"follow_up_interval_millis"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

func (a *Alarm) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("alarm title cannot be empty")
	}
	if len(a.TimesOfDay) == 0 {
		return fmt.Errorf("alarm needs at least one time of day")
	}
	for _, t := range a.TimesOfDay {
		if !t.Valid() {
			return fmt.Errorf("invalid time of day %02d:%02d", t.Hour, t.Minute)
		}
	}
	if !utils.ValidateTimezone(a.Timezone) {
		return fmt.Errorf("invalid timezone %q", a.Timezone)
	}
	if a.FollowUpIntervalMillis <= 0 {
		return fmt.Errorf("follow-up interval must be positive")
	}
	if err := a.Schedule.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}

// Location resolves the alarm's timezone.
func (a *Alarm) Location() (*time.Location, error) {
	loc, err := utils.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

func (a *Alarm) IsOneTime() bool {
	return a.Schedule.Kind == ScheduleOneTime
}

// SortTimes orders TimesOfDay ascending and drops duplicates.
func (a *Alarm) SortTimes() {
	slices.SortFunc(a.TimesOfDay, func(x, y TimeOfDay) int { return x.Minutes() - y.Minutes() })
	a.TimesOfDay = slices.Compact(a.TimesOfDay)
}

// Clone returns a deep copy so callers can mutate the snapshot freely.
func (a Alarm) Clone() Alarm {
	c := a
	c.TimesOfDay = slices.Clone(a.TimesOfDay)
	c.Schedule.DaysOfWeek = slices.Clone(a.Schedule.DaysOfWeek)
	c.Schedule.DaysOfMonth = slices.Clone(a.Schedule.DaysOfMonth)
	if a.PendingSince != nil {
		t := *a.PendingSince
		c.PendingSince = &t
	}
	if a.LastFiredDate != nil {
		t := *a.LastFiredDate
		c.LastFiredDate = &t
	}
	return c
}

// FormatTimes renders TimesOfDay as a comma separated list.
func (a *Alarm) FormatTimes() string {
	s := ""
	for i, t := range a.TimesOfDay {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}
