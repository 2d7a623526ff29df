package alarms

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/chime/internal/cli"
)

type AlarmDeleteCmd struct {
	ID  string `arg:"" help:"Alarm ID or unique ID prefix."`
	Yes bool   `short:"y" help:"Delete without asking for confirmation."`
}

func (c *AlarmDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	a, err := cli.ResolveAlarm(bg, ctx.Store, c.ID)
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q and its history?", a.Title)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed),
		)).Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Store.DeleteAlarm(bg, a.ID); err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
	if coord, err := ctx.Coordinator(bg); err == nil {
		coord.Forget(bg, a)
	}

	fmt.Printf("✓ Alarm deleted: %s at %s\n", a.Title, a.FormatTimes())
	return nil
}
