package history

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/export"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/streak"
	"github.com/julianstephens/chime/internal/utils"
)

var actionStyles = map[models.Action]func(...string) string{
	models.ActionCompleted:           cli.SuccessStyle.Render,
	models.ActionMissed:              cli.DangerStyle.Render,
	models.ActionSkipped:             cli.MutedStyle.Render,
	models.ActionSnoozed:             cli.WarningStyle.Render,
	models.ActionPendingConfirmation: cli.WarningStyle.Render,
}

type HistoryCmd struct {
	ID    string `arg:"" optional:"" help:"Alarm ID or unique ID prefix. Omit for recent activity across all alarms."`
	Limit int    `short:"n" help:"Maximum number of records to show (0 for all)." default:"20"`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	if c.ID == "" {
		return c.recent(bg, ctx)
	}
	a, err := cli.ResolveAlarm(bg, ctx.Store, c.ID)
	if err != nil {
		return err
	}
	loc, err := a.Location()
	if err != nil {
		return err
	}

	records, err := ctx.Store.GetCompletionRecords(bg, a.ID, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("No history for %s.\n", a.Title)
		return nil
	}

	fmt.Println(cli.HeaderStyle.Render("History for " + a.Title))
	for _, r := range records {
		fmt.Printf("  %s  %s\n", r.Timestamp.In(loc).Format(stampFormat), renderAction(r.Action))
	}
	return nil
}

const stampFormat = "Mon 2006-01-02 15:04"

func renderAction(action models.Action) string {
	if render, ok := actionStyles[action]; ok {
		return render(string(action))
	}
	return string(action)
}

// recent lists the newest records of every alarm, each stamped in its alarm's timezone.
func (c *HistoryCmd) recent(bg context.Context, ctx *cli.Context) error {
	records, err := ctx.Store.QueryRecent(bg, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	alarms, err := ctx.Store.GetAllAlarms(bg)
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}
	byID := make(map[string]models.Alarm, len(alarms))
	for _, a := range alarms {
		byID[a.ID] = a
	}

	fmt.Println(cli.HeaderStyle.Render("Recent activity"))
	for _, r := range records {
		a, ok := byID[r.AlarmID]
		title, loc := r.AlarmID, time.Local
		if ok {
			title = a.Title
			if l, err := a.Location(); err == nil {
				loc = l
			}
		}
		fmt.Printf("  %s  %s%s\n", r.Timestamp.In(loc).Format(stampFormat), cli.Cell(title, 24), renderAction(r.Action))
	}
	return nil
}

type StreakCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *StreakCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	a, err := cli.ResolveAlarm(bg, ctx.Store, c.ID)
	if err != nil {
		return err
	}
	loc, err := a.Location()
	if err != nil {
		return err
	}

	records, err := ctx.Store.GetCompletionRecords(bg, a.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	info := streak.Calculate(records, loc, time.Now())

	fmt.Println(cli.HeaderStyle.Render(a.Title))
	fmt.Printf("  Current streak:    %d day(s)\n", info.CurrentStreak)
	fmt.Printf("  Longest streak:    %d day(s)\n", info.LongestStreak)
	fmt.Printf("  Total completions: %d\n", info.TotalCompletions)
	fmt.Printf("  Completion rate:   %.0f%%\n", info.CompletionRate*100)
	return nil
}

type ExportCmd struct {
	Output string `short:"o" help:"Write the calendar to this file instead of stdout."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	alarms, err := ctx.Store.GetAllAlarms(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}

	if c.Output == "" {
		return export.Write(os.Stdout, alarms, time.Now())
	}

	path := utils.ExpandPath(c.Output)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.Write(f, alarms, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("✓ Exported alarms to %s\n", path)
	return nil
}
