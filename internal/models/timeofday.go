package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/chime/internal/constants"
)

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On places t on the given calendar date in loc. The date's own zone is ignored.
// A wall time inside a DST gap moves forward by the length of the gap, so 02:30 on a
// spring-forward night becomes 03:30. An ambiguous fall-back time resolves to its first occurrence.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	inst := time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
	iy, im, id := inst.Date()
	if iy == y && im == m && id == d && inst.Hour() == t.Hour && inst.Minute() == t.Minute {
		return inst
	}
	wall := time.Date(y, m, d, t.Hour, t.Minute, 0, 0, time.UTC)
	_, before := inst.Add(-12 * time.Hour).Zone()
	return wall.Add(-time.Duration(before) * time.Second).In(loc)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
