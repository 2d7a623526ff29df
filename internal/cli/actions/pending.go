package actions

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/models"
)

type PendingCmd struct {
	Interactive bool `short:"i" help:"Confirm or dismiss each pending alarm interactively."`
}

func (c *PendingCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	alarms, err := ctx.Store.GetAllAlarms(bg)
	if err != nil {
		return fmt.Errorf("failed to get alarms: %w", err)
	}
	pending := slices.DeleteFunc(alarms, func(a models.Alarm) bool { return !a.IsPendingConfirmation })

	if len(pending) == 0 {
		fmt.Println("Nothing awaiting confirmation.")
		return nil
	}

	slices.SortFunc(pending, func(a, b models.Alarm) int { return pendingSince(a).Compare(pendingSince(b)) })

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("%d alarm(s) awaiting confirmation:", len(pending))))
	for _, a := range pending {
		fmt.Printf("  %s  %s  %s\n",
			cli.ShortID(a.ID),
			cli.Cell(a.Title, 24),
			cli.MutedStyle.Render("since "+formatAgo(time.Since(pendingSince(a)))))
	}

	if !c.Interactive {
		return nil
	}

	coord, err := ctx.Coordinator(bg)
	if err != nil {
		return err
	}
	for _, a := range pending {
		choice := "later"
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Did you do %q?", a.Title)).
				Options(
					huh.NewOption("Done", "done"),
					huh.NewOption("Dismiss (don't record)", "dismiss"),
					huh.NewOption("Ask me later", "later"),
				).
				Value(&choice),
		)).Run()
		if err != nil {
			return err
		}

		switch choice {
		case "done":
			if _, err := coord.ConfirmDone(bg, a.ID); err != nil {
				return err
			}
			fmt.Printf("✓ Confirmed: %s\n", a.Title)
		case "dismiss":
			if _, err := coord.CancelPending(bg, a.ID); err != nil {
				return err
			}
			fmt.Printf("✓ Dismissed: %s\n", a.Title)
		}
	}
	return nil
}

func pendingSince(a models.Alarm) time.Time {
	if a.PendingSince == nil {
		return a.UpdatedAt
	}
	return *a.PendingSince
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
