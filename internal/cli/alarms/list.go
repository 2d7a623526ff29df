package alarms

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/models"
)

type AlarmListCmd struct {
	All bool `help:"Include disabled alarms."`
}

func (c *AlarmListCmd) Run(ctx *cli.Context) error {
	alarms, err := ctx.Store.GetAllAlarms(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}
	if !c.All {
		alarms = slices.DeleteFunc(alarms, func(a models.Alarm) bool { return !a.IsEnabled })
	}

	if len(alarms) == 0 {
		fmt.Println("No alarms configured.")
		return nil
	}

	slices.SortFunc(alarms, func(a, b models.Alarm) int { return a.NextFireDate.Compare(b.NextFireDate) })

	fmt.Println(headerRow(
		cli.Cell("ID", 8), cli.Cell("Title", 24), cli.Cell("Times", 14),
		cli.Cell("Schedule", 28), cli.Cell("Next", 22), "State"))
	fmt.Println(strings.Repeat("-", 118))

	for _, a := range alarms {
		next := "invalid timezone"
		if loc, err := a.Location(); err == nil {
			next = FormatInstant(a.NextFireDate, loc)
		}
		fmt.Println(strings.Join([]string{
			cli.Cell(cli.ShortID(a.ID), 8),
			cli.Cell(a.Title, 24),
			cli.Cell(a.FormatTimes(), 14),
			cli.Cell(a.Schedule.Describe(), 28),
			cli.Cell(next, 22),
			cli.StateLabel(a),
		}, ""))
	}
	return nil
}

// headerRow joins header cells into one styled row.
func headerRow(cells ...string) string {
	return cli.HeaderStyle.Render(strings.Join(cells, ""))
}

type AlarmShowCmd struct {
	ID      string `arg:"" help:"Alarm ID or unique ID prefix."`
	Records int    `help:"Number of recent history records to show." default:"10"`
}

func (c *AlarmShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	a, err := cli.ResolveAlarm(bg, ctx.Store, c.ID)
	if err != nil {
		return err
	}
	loc, err := a.Location()
	if err != nil {
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(a.Title))
	fmt.Printf("  ID:         %s\n", a.ID)
	fmt.Printf("  State:      %s\n", cli.StateLabel(a))
	fmt.Printf("  Times:      %s\n", a.FormatTimes())
	fmt.Printf("  Schedule:   %s\n", a.Schedule.Describe())
	fmt.Printf("  Timezone:   %s\n", a.Timezone)
	fmt.Printf("  Next fire:  %s\n", FormatInstant(a.NextFireDate, loc))
	if a.LastFiredDate != nil {
		fmt.Printf("  Last fired: %s\n", FormatInstant(*a.LastFiredDate, loc))
	}
	if a.SnoozeCount > 0 {
		fmt.Printf("  Snoozed:    %d time(s)\n", a.SnoozeCount)
	}
	if a.IsPendingConfirmation && a.PendingSince != nil {
		fmt.Printf("  Pending:    since %s\n", FormatInstant(*a.PendingSince, loc))
	}
	fmt.Printf("  Follow-ups: every %s\n", time.Duration(a.FollowUpIntervalMillis)*time.Millisecond)

	records, err := ctx.Store.GetCompletionRecords(bg, a.ID, c.Records)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	fmt.Println("\nRecent history:")
	for _, r := range records {
		fmt.Printf("  %s  %s\n", r.Timestamp.In(loc).Format("2006-01-02 15:04"), r.Action)
	}
	return nil
}
