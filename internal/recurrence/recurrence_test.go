package recurrence

import (
	"testing"
	"time"

	"github.com/julianstephens/chime/internal/models"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func tod(h, m int) models.TimeOfDay {
	return models.TimeOfDay{Hour: h, Minute: m}
}

func TestNextFireDate(t *testing.T) {
	nine := []models.TimeOfDay{tod(9, 0)}

	tests := []struct {
		name     string
		schedule models.Schedule
		times    []models.TimeOfDay
		from     time.Time
		want     time.Time
	}{
		{
			name:     "weekly same day slot already passed",
			schedule: models.Weekly(1, models.Wednesday),
			times:    nine,
			from:     at(2025, 1, 15, 10, 0),
			want:     at(2025, 1, 22, 9, 0),
		},
		{
			name:     "weekly same day slot still ahead",
			schedule: models.Weekly(1, models.Wednesday),
			times:    nine,
			from:     at(2025, 1, 15, 8, 0),
			want:     at(2025, 1, 15, 9, 0),
		},
		{
			name:     "weekly later in the week",
			schedule: models.Weekly(1, models.Monday, models.Friday),
			times:    nine,
			from:     at(2025, 1, 15, 10, 0),
			want:     at(2025, 1, 17, 9, 0),
		},
		{
			name:     "weekly sunday closes the monday aligned week",
			schedule: models.Weekly(1, models.Sunday),
			times:    nine,
			from:     at(2025, 1, 15, 10, 0),
			want:     at(2025, 1, 19, 9, 0),
		},
		{
			name:     "weekly every other week jumps from the current week start",
			schedule: models.Weekly(2, models.Monday),
			times:    nine,
			from:     at(2025, 1, 15, 10, 0),
			want:     at(2025, 1, 27, 9, 0),
		},
		{
			name:     "weekly every other week from its last day",
			schedule: models.Weekly(2, models.Monday, models.Sunday),
			times:    nine,
			from:     at(2025, 1, 19, 10, 0),
			want:     at(2025, 1, 27, 9, 0),
		},
		{
			name:     "weekly later time of day today",
			schedule: models.Weekly(1, models.Wednesday),
			times:    []models.TimeOfDay{tod(9, 0), tod(18, 0)},
			from:     at(2025, 1, 15, 10, 0),
			want:     at(2025, 1, 15, 18, 0),
		},
		{
			name:     "monthly day 31 clamps to february 28",
			schedule: models.MonthlyByDate(1, 31),
			times:    nine,
			from:     at(2025, 1, 31, 10, 0),
			want:     at(2025, 2, 28, 9, 0),
		},
		{
			name:     "monthly day 31 clamps to april 30",
			schedule: models.MonthlyByDate(1, 31),
			times:    nine,
			from:     at(2025, 4, 1, 0, 0),
			want:     at(2025, 4, 30, 9, 0),
		},
		{
			name:     "monthly clamp in a leap february",
			schedule: models.MonthlyByDate(1, 30, 31),
			times:    nine,
			from:     at(2024, 2, 1, 0, 0),
			want:     at(2024, 2, 29, 9, 0),
		},
		{
			name:     "monthly picks the nearest of several days",
			schedule: models.MonthlyByDate(1, 15, 1),
			times:    nine,
			from:     at(2025, 1, 10, 0, 0),
			want:     at(2025, 1, 15, 9, 0),
		},
		{
			name:     "monthly interval skips months",
			schedule: models.MonthlyByDate(3, 15),
			times:    nine,
			from:     at(2025, 1, 20, 0, 0),
			want:     at(2025, 4, 15, 9, 0),
		},
		{
			name:     "last friday of february",
			schedule: models.MonthlyRelative(models.LastWeekOfMonth, models.Friday, 1),
			times:    nine,
			from:     at(2025, 2, 1, 0, 0),
			want:     at(2025, 2, 28, 9, 0),
		},
		{
			name:     "second tuesday rolls to next month",
			schedule: models.MonthlyRelative(2, models.Tuesday, 1),
			times:    nine,
			from:     at(2025, 3, 12, 0, 0),
			want:     at(2025, 4, 8, 9, 0),
		},
		{
			name:     "first sunday already fired today",
			schedule: models.MonthlyRelative(1, models.Sunday, 1),
			times:    nine,
			from:     at(2025, 3, 2, 10, 0),
			want:     at(2025, 4, 6, 9, 0),
		},
		{
			name:     "annual feb 29 in a common year",
			schedule: models.Annual(time.February, 29, 1),
			times:    nine,
			from:     at(2025, 1, 1, 0, 0),
			want:     at(2025, 2, 28, 9, 0),
		},
		{
			name:     "annual feb 29 in a leap year",
			schedule: models.Annual(time.February, 29, 1),
			times:    nine,
			from:     at(2024, 1, 1, 0, 0),
			want:     at(2024, 2, 29, 9, 0),
		},
		{
			name:     "annual passed this year",
			schedule: models.Annual(time.February, 29, 1),
			times:    nine,
			from:     at(2025, 3, 1, 0, 0),
			want:     at(2026, 2, 28, 9, 0),
		},
		{
			name:     "annual every four years",
			schedule: models.Annual(time.July, 4, 4),
			times:    nine,
			from:     at(2025, 7, 5, 0, 0),
			want:     at(2029, 7, 4, 9, 0),
		},
		{
			name:     "custom days second cycle boundary",
			schedule: models.CustomDays(7, at(2025, 1, 1, 0, 0)),
			times:    nine,
			from:     at(2025, 1, 10, 0, 0),
			want:     at(2025, 1, 15, 9, 0),
		},
		{
			name:     "custom days future anchor fires one interval after it",
			schedule: models.CustomDays(3, at(2025, 2, 1, 0, 0)),
			times:    nine,
			from:     at(2025, 1, 10, 0, 0),
			want:     at(2025, 2, 4, 9, 0),
		},
		{
			name:     "custom days on a boundary moves to the next boundary",
			schedule: models.CustomDays(7, at(2025, 1, 1, 0, 0)),
			times:    nine,
			from:     at(2025, 1, 8, 7, 0),
			want:     at(2025, 1, 15, 9, 0),
		},
		{
			name:     "one time later today",
			schedule: models.OneTime(at(2025, 3, 15, 0, 0)),
			times:    []models.TimeOfDay{tod(9, 0), tod(18, 0)},
			from:     at(2025, 3, 15, 10, 0),
			want:     at(2025, 3, 15, 18, 0),
		},
		{
			name:     "one time in the past",
			schedule: models.OneTime(at(2025, 3, 15, 0, 0)),
			times:    nine,
			from:     at(2025, 4, 1, 0, 0),
			want:     DistantFuture,
		},
		{
			name:     "one time earlier today",
			schedule: models.OneTime(at(2025, 3, 15, 0, 0)),
			times:    nine,
			from:     at(2025, 3, 15, 10, 0),
			want:     DistantFuture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFireDate(tt.schedule, tt.times, time.UTC, tt.from)
			if !got.Equal(tt.want) {
				t.Errorf("NextFireDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFireDate_Degenerate(t *testing.T) {
	from := at(2025, 1, 15, 10, 0)
	nine := []models.TimeOfDay{tod(9, 0)}

	tests := []struct {
		name     string
		schedule models.Schedule
		times    []models.TimeOfDay
		loc      *time.Location
	}{
		{name: "empty days of week", schedule: models.Weekly(1), times: nine, loc: time.UTC},
		{name: "out of range weekdays only", schedule: models.Weekly(1, 0, 8), times: nine, loc: time.UTC},
		{name: "zero week interval", schedule: models.Weekly(0, models.Monday), times: nine, loc: time.UTC},
		{name: "empty days of month", schedule: models.MonthlyByDate(1), times: nine, loc: time.UTC},
		{name: "negative month interval", schedule: models.MonthlyByDate(-1, 5), times: nine, loc: time.UTC},
		{name: "fifth week of month", schedule: models.MonthlyRelative(5, models.Monday, 1), times: nine, loc: time.UTC},
		{name: "zero custom interval", schedule: models.CustomDays(0, from), times: nine, loc: time.UTC},
		{name: "no times of day", schedule: models.Weekly(1, models.Monday), times: nil, loc: time.UTC},
		{name: "nil location", schedule: models.Weekly(1, models.Monday), times: nine, loc: nil},
		{name: "unknown kind", schedule: models.Schedule{Kind: "hourly"}, times: nine, loc: time.UTC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextFireDate(tt.schedule, tt.times, tt.loc, from); !got.Equal(from) {
				t.Errorf("NextFireDate() = %v, want input %v unchanged", got, from)
			}
		})
	}
}

func TestNextFireDate_DST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	tests := []struct {
		name     string
		schedule models.Schedule
		time     models.TimeOfDay
		from     time.Time
		want     time.Time
	}{
		{
			name:     "weekly keeps local time across spring forward",
			schedule: models.Weekly(1, models.Sunday),
			time:     tod(9, 0),
			from:     time.Date(2025, 3, 2, 10, 0, 0, 0, ny),
			want:     time.Date(2025, 3, 9, 13, 0, 0, 0, time.UTC),
		},
		{
			name:     "custom days keeps local time across fall back",
			schedule: models.CustomDays(1, time.Date(2025, 10, 1, 0, 0, 0, 0, ny)),
			time:     tod(9, 0),
			from:     time.Date(2025, 11, 1, 10, 0, 0, 0, ny),
			want:     time.Date(2025, 11, 2, 14, 0, 0, 0, time.UTC),
		},
		{
			name:     "time inside the spring forward gap moves forward",
			schedule: models.Weekly(1, models.Sunday),
			time:     tod(2, 30),
			from:     time.Date(2025, 3, 8, 12, 0, 0, 0, ny),
			want:     time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFireDate(tt.schedule, []models.TimeOfDay{tt.time}, ny, tt.from)
			if !got.Equal(tt.want) {
				t.Errorf("NextFireDate() = %v, want %v", got.UTC(), tt.want)
			}
		})
	}
}

func TestNextFireDate_UsesAlarmTimezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	// Tuesday 20:00 UTC is already Wednesday 05:00 in Tokyo.
	from := time.Date(2025, 1, 14, 20, 0, 0, 0, time.UTC)
	got := NextFireDate(models.Weekly(1, models.Wednesday), []models.TimeOfDay{tod(9, 0)}, tokyo, from)
	want := time.Date(2025, 1, 15, 9, 0, 0, 0, tokyo)
	if !got.Equal(want) {
		t.Errorf("NextFireDate() = %v, want %v", got, want)
	}
}

func TestNextFireDates(t *testing.T) {
	times := []models.TimeOfDay{tod(18, 0), tod(7, 0), tod(12, 0)}
	s := models.Weekly(1, models.Wednesday)

	got := NextFireDates(s, times, time.UTC, at(2025, 1, 15, 6, 0))
	want := []time.Time{at(2025, 1, 15, 7, 0), at(2025, 1, 15, 12, 0), at(2025, 1, 15, 18, 0)}
	assertTimes(t, got, want)

	got = NextFireDates(s, times, time.UTC, at(2025, 1, 15, 10, 0))
	want = []time.Time{at(2025, 1, 15, 12, 0), at(2025, 1, 15, 18, 0)}
	assertTimes(t, got, want)

	got = NextFireDates(s, times, time.UTC, at(2025, 1, 15, 19, 0))
	want = []time.Time{at(2025, 1, 22, 7, 0), at(2025, 1, 22, 12, 0), at(2025, 1, 22, 18, 0)}
	assertTimes(t, got, want)
}

func TestNextFireDates_Expired(t *testing.T) {
	got := NextFireDates(models.OneTime(at(2025, 3, 15, 0, 0)), []models.TimeOfDay{tod(9, 0)}, time.UTC, at(2025, 4, 1, 0, 0))
	if len(got) != 1 || !IsDistantFuture(got[0]) {
		t.Errorf("NextFireDates() = %v, want [DistantFuture]", got)
	}
}

// Every non-degenerate, unexpired schedule must land strictly after from.
func TestNextFireDate_StrictlyAfterFrom(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	anchor := time.Date(2024, 12, 30, 0, 0, 0, 0, ny)
	times := []models.TimeOfDay{tod(0, 0), tod(2, 30), tod(23, 59)}

	schedules := []models.Schedule{
		models.Weekly(1, models.Sunday, models.Thursday),
		models.Weekly(3, models.Saturday),
		models.MonthlyByDate(1, 31),
		models.MonthlyByDate(2, 1, 29, 30),
		models.MonthlyRelative(models.LastWeekOfMonth, models.Sunday, 1),
		models.MonthlyRelative(4, models.Monday, 2),
		models.Annual(time.February, 29, 1),
		models.Annual(time.March, 9, 1),
		models.CustomDays(5, anchor),
		models.CustomDays(1, anchor.AddDate(0, 2, 0)),
	}

	for _, s := range schedules {
		for from := anchor; from.Before(anchor.AddDate(1, 0, 0)); from = from.Add(37 * time.Hour) {
			all := NextFireDates(s, times, ny, from)
			if len(all) == 0 {
				t.Fatalf("%s: no instants from %v", s.Describe(), from)
			}
			next := NextFireDate(s, times, ny, from)
			if !next.Equal(all[0]) {
				t.Fatalf("%s: NextFireDate %v != NextFireDates[0] %v", s.Describe(), next, all[0])
			}
			for i, inst := range all {
				if !inst.After(from) {
					t.Fatalf("%s: instant %v not after %v", s.Describe(), inst, from)
				}
				if i > 0 && !inst.After(all[i-1]) {
					t.Fatalf("%s: instants not ascending: %v", s.Describe(), all)
				}
				if inst.In(ny).YearDay() != all[0].In(ny).YearDay() {
					t.Fatalf("%s: instants span several dates: %v", s.Describe(), all)
				}
			}
		}
	}
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d instants %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("instant %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNthWeekday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		wd    time.Weekday
		n     int
		want  int
		ok    bool
	}{
		{2025, time.February, time.Friday, models.LastWeekOfMonth, 28, true},
		{2025, time.February, time.Saturday, 1, 1, true},
		{2025, time.March, time.Tuesday, 2, 11, true},
		{2024, time.February, time.Thursday, models.LastWeekOfMonth, 29, true},
		{2025, time.June, time.Monday, 4, 23, true},
		{2025, time.June, time.Monday, 6, 0, false},
	}

	for _, tt := range tests {
		got, ok := nthWeekday(tt.year, tt.month, tt.wd, tt.n)
		if ok != tt.ok {
			t.Errorf("nthWeekday(%d, %s, %s, %d) ok = %v, want %v", tt.year, tt.month, tt.wd, tt.n, ok, tt.ok)
			continue
		}
		if ok && got.Day() != tt.want {
			t.Errorf("nthWeekday(%d, %s, %s, %d) = %d, want %d", tt.year, tt.month, tt.wd, tt.n, got.Day(), tt.want)
		}
	}
}

func TestAddMonths(t *testing.T) {
	y, m := addMonths(2025, time.November, 3)
	if y != 2026 || m != time.February {
		t.Errorf("addMonths() = %d-%s, want 2026-February", y, m)
	}
	y, m = addMonths(2025, time.December, 0)
	if y != 2025 || m != time.December {
		t.Errorf("addMonths() = %d-%s, want 2025-December", y, m)
	}
}
