package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday uses the canonical boundary encoding 1=Sunday..7=Saturday.
type Weekday int

const (
	Sunday Weekday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// WeekdayFromTime converts a time.Weekday (0=Sunday) to the canonical encoding.
func WeekdayFromTime(wd time.Weekday) Weekday {
	return Weekday(wd) + 1
}

// Time converts the canonical encoding back to a time.Weekday.
func (w Weekday) Time() time.Weekday {
	return time.Weekday(w - 1)
}

func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return w.Time().String()
}

// ParseWeekday accepts a full or three-letter English day name, or a number 1-7 (1=Sunday).
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, fmt.Errorf("weekday number must be 1-7 (1=Sunday), got %d", n)
		}
		return w, nil
	}
	for w := Sunday; w <= Saturday; w++ {
		name := strings.ToLower(w.String())
		if s == name || s == name[:3] {
			return w, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}
