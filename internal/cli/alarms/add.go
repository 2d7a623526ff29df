package alarms

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/recurrence"
	"github.com/julianstephens/chime/internal/utils"
)

type AlarmAddCmd struct {
	Title     string `arg:"" help:"Alarm title."`
	Times     string `help:"Comma-separated times of day (HH:MM)." required:""`
	Weekly    string `help:"Weekdays for a weekly alarm (e.g. mon,wed,fri or 2,4,6 with 1=Sunday)."`
	MonthDays string `help:"Days of the month for a monthly alarm (e.g. 1,15,31). Short months clamp to their last day."`
	Nth       string `help:"Relative monthly day as <week>:<weekday>, week 1-4 or last (e.g. 2:tue, last:fri)."`
	Yearly    string `help:"Month and day for an annual alarm (MM-DD)."`
	EveryDays int    `help:"Repeat every N days."`
	Start     string `help:"Anchor date for --every-days (YYYY-MM-DD). Defaults to today."`
	Date      string `help:"Date for a one-time alarm (YYYY-MM-DD)."`
	Interval  int    `help:"Repeat every N weeks, months or years." default:"1"`
	Timezone  string `help:"IANA timezone. Defaults to the timezone setting."`
	FollowUp  int    `help:"Minutes between follow-up reminders. Defaults to the follow_up_interval_min setting."`
	Disabled  bool   `help:"Create the alarm disabled."`

	now func() time.Time
}

func (c *AlarmAddCmd) Validate() error {
	set := 0
	for _, given := range []bool{c.Weekly != "", c.MonthDays != "", c.Nth != "", c.Yearly != "", c.EveryDays != 0, c.Date != ""} {
		if given {
			set++
		}
	}
	if set == 0 {
		return fmt.Errorf("must specify one of --weekly, --month-days, --nth, --yearly, --every-days or --date")
	}
	if set > 1 {
		return fmt.Errorf("only one schedule flag may be given")
	}
	if c.Start != "" && c.EveryDays == 0 {
		return fmt.Errorf("--start only applies to --every-days")
	}
	if c.FollowUp < 0 {
		return fmt.Errorf("--follow-up must be positive")
	}
	return nil
}

// BuildSchedule turns the schedule flags into a Schedule. Dates are read in loc.
func (c *AlarmAddCmd) BuildSchedule(loc *time.Location, now time.Time) (models.Schedule, error) {
	switch {
	case c.Weekly != "":
		days, err := cli.ParseWeekdays(c.Weekly)
		if err != nil {
			return models.Schedule{}, err
		}
		return models.Weekly(c.Interval, days...), nil

	case c.MonthDays != "":
		days, err := cli.ParseInts(c.MonthDays)
		if err != nil {
			return models.Schedule{}, err
		}
		return models.MonthlyByDate(c.Interval, days...), nil

	case c.Nth != "":
		week, day, ok := strings.Cut(c.Nth, ":")
		if !ok {
			return models.Schedule{}, fmt.Errorf("invalid --nth %q (expected <week>:<weekday>)", c.Nth)
		}
		n := models.LastWeekOfMonth
		if !strings.EqualFold(week, "last") {
			var err error
			if n, err = strconv.Atoi(week); err != nil {
				return models.Schedule{}, fmt.Errorf("invalid week of month %q", week)
			}
		}
		wd, err := models.ParseWeekday(day)
		if err != nil {
			return models.Schedule{}, err
		}
		return models.MonthlyRelative(n, wd, c.Interval), nil

	case c.Yearly != "":
		t, err := time.Parse("01-02", c.Yearly)
		if err != nil {
			return models.Schedule{}, fmt.Errorf("invalid --yearly %q (expected MM-DD): %w", c.Yearly, err)
		}
		return models.Annual(t.Month(), t.Day(), c.Interval), nil

	case c.EveryDays != 0:
		start := now
		if c.Start != "" {
			var err error
			if start, err = utils.ParseDateInLocation(c.Start, loc); err != nil {
				return models.Schedule{}, fmt.Errorf("invalid --start: %w", err)
			}
		}
		return models.CustomDays(c.EveryDays, utils.CivilDate(start, loc)), nil

	default:
		date, err := utils.ParseDateInLocation(c.Date, loc)
		if err != nil {
			return models.Schedule{}, fmt.Errorf("invalid --date: %w", err)
		}
		return models.OneTime(utils.CivilDate(date, loc)), nil
	}
}

func (c *AlarmAddCmd) Run(ctx *cli.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)

	tz := c.Timezone
	if tz == "" {
		tz = settings.Timezone
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}

	times, err := cli.ParseTimes(c.Times)
	if err != nil {
		return err
	}
	schedule, err := c.BuildSchedule(loc, now)
	if err != nil {
		return err
	}

	followUp := c.FollowUp
	if followUp == 0 {
		followUp = settings.FollowUpIntervalMin
	}

	alarm := models.Alarm{
		ID:                     uuid.New().String(),
		Title:                  c.Title,
		TimesOfDay:             times,
		Schedule:               schedule,
		Timezone:               tz,
		IsEnabled:              !c.Disabled,
		FollowUpIntervalMillis: int64(followUp) * int64(time.Minute/time.Millisecond),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	alarm.SortTimes()
	if err := alarm.Validate(); err != nil {
		return err
	}

	alarm.NextFireDate = recurrence.NextFireDate(alarm.Schedule, alarm.TimesOfDay, loc, now)
	if recurrence.IsDistantFuture(alarm.NextFireDate) {
		return fmt.Errorf("schedule has no occurrence after %s", now.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat))
	}

	if err := ctx.Store.AddAlarm(context.Background(), alarm); err != nil {
		return fmt.Errorf("failed to add alarm: %w", err)
	}

	fmt.Printf("✓ Alarm added: %s at %s (%s)\n", alarm.Title, alarm.FormatTimes(), alarm.Schedule.Describe())
	fmt.Printf("  ID:        %s\n", alarm.ID)
	fmt.Printf("  Next fire: %s\n", FormatInstant(alarm.NextFireDate, loc))
	return nil
}

// FormatInstant renders t in loc for display.
func FormatInstant(t time.Time, loc *time.Location) string {
	if recurrence.IsDistantFuture(t) {
		return "never"
	}
	return t.In(loc).Format("Mon " + constants.DateFormat + " " + constants.TimeFormat + " MST")
}
