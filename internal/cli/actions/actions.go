package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/lifecycle"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/recurrence"
)

type transitionFunc func(c *lifecycle.Coordinator, ctx context.Context, id string) (models.Alarm, error)

// apply resolves ref and runs op on it through the coordinator.
func apply(ctx *cli.Context, ref string, op transitionFunc) (before, after models.Alarm, err error) {
	bg := context.Background()
	before, err = cli.ResolveAlarm(bg, ctx.Store, ref)
	if err != nil {
		return before, after, err
	}
	coord, err := ctx.Coordinator(bg)
	if err != nil {
		return before, after, err
	}
	after, err = op(coord, bg, before.ID)
	if errors.Is(err, lifecycle.ErrDisabled) {
		return before, after, fmt.Errorf("%q is disabled, enable it first", before.Title)
	}
	return before, after, err
}

func nextLine(a models.Alarm) string {
	loc, err := a.Location()
	if err != nil {
		return ""
	}
	if recurrence.IsDistantFuture(a.NextFireDate) {
		return "  No further occurrences."
	}
	return "  Next: " + a.NextFireDate.In(loc).Format("Mon 2006-01-02 15:04 MST")
}

type FireCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

// Run fires the alarm by hand the way the daemon does when its timer
// expires, entering pending confirmation if that setting is on.
func (c *FireCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	_, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).Fire)
	if err != nil {
		return err
	}
	if settings.TrackConfirmation {
		coord, err := ctx.Coordinator(context.Background())
		if err != nil {
			return err
		}
		if a, err = coord.EnterPending(context.Background(), a.ID); err != nil {
			return err
		}
		fmt.Printf("✓ Fired: %s (awaiting confirmation)\n", a.Title)
	} else {
		fmt.Printf("✓ Fired: %s\n", a.Title)
	}
	fmt.Println(nextLine(a))
	return nil
}

type SnoozeCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *SnoozeCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)
	_, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).Snooze)
	if err != nil {
		return err
	}
	until := time.Now().Add(time.Duration(settings.SnoozeMin) * time.Minute)
	fmt.Printf("✓ Snoozed: %s until %s (snooze #%d)\n", a.Title, until.Format("15:04"), a.SnoozeCount)
	return nil
}

type StopCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *StopCmd) Run(ctx *cli.Context) error {
	_, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).Stop)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Completed: %s\n", a.Title)
	fmt.Println(nextLine(a))
	return nil
}

type DoneCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	before, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).ConfirmDone)
	if err != nil {
		return err
	}
	if !before.IsPendingConfirmation {
		fmt.Printf("%s is not awaiting confirmation.\n", a.Title)
		return nil
	}
	fmt.Printf("✓ Confirmed: %s\n", a.Title)
	return nil
}

type DismissCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *DismissCmd) Run(ctx *cli.Context) error {
	before, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).CancelPending)
	if err != nil {
		return err
	}
	if !before.IsPendingConfirmation {
		fmt.Printf("%s is not awaiting confirmation.\n", a.Title)
		return nil
	}
	fmt.Printf("✓ Dismissed: %s (no completion recorded)\n", a.Title)
	return nil
}

type SkipCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *SkipCmd) Run(ctx *cli.Context) error {
	_, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).Skip)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Skipped: %s\n", a.Title)
	fmt.Println(nextLine(a))
	return nil
}

type MissedCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *MissedCmd) Run(ctx *cli.Context) error {
	before, a, err := apply(ctx, c.ID, (*lifecycle.Coordinator).MarkMissed)
	if err != nil {
		return err
	}
	if a.NextFireDate.Equal(before.NextFireDate) {
		fmt.Printf("%s is not overdue.\n", a.Title)
		return nil
	}
	fmt.Printf("✓ Marked missed: %s\n", a.Title)
	fmt.Println(nextLine(a))
	return nil
}
