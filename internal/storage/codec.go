package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/models"
)

// EncodeTimes serializes times of day as a JSON array of "HH:MM" strings.
func EncodeTimes(times []models.TimeOfDay) (string, error) {
	if times == nil {
		times = []models.TimeOfDay{}
	}
	b, err := json.Marshal(times)
	if err != nil {
		return "", fmt.Errorf("encoding times of day: %w", err)
	}
	return string(b), nil
}

func DecodeTimes(raw string) ([]models.TimeOfDay, error) {
	var times []models.TimeOfDay
	if err := json.Unmarshal([]byte(raw), &times); err != nil {
		return nil, fmt.Errorf("decoding times of day: %w", err)
	}
	return times, nil
}

func EncodeSchedule(s models.Schedule) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding schedule: %w", err)
	}
	return string(b), nil
}

func DecodeSchedule(raw string) (models.Schedule, error) {
	var s models.Schedule
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return models.Schedule{}, fmt.Errorf("decoding schedule: %w", err)
	}
	return s, nil
}

// FormatTimestamp renders t in UTC with a fixed width so that text
// comparison orders instants chronologically.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(constants.TimestampFormat, s)
	if err != nil {
		// rows written by hand or by older builds
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// FormatNullableTimestamp maps a nil instant to SQL NULL.
func FormatNullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTimestamp(*t)
}

func ParseNullableTimestamp(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
