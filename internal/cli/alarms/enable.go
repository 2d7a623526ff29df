package alarms

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/lifecycle"
)

type AlarmEnableCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *AlarmEnableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.ID, true)
}

type AlarmDisableCmd struct {
	ID string `arg:"" help:"Alarm ID or unique ID prefix."`
}

func (c *AlarmDisableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.ID, false)
}

func setEnabled(ctx *cli.Context, ref string, enabled bool) error {
	bg := context.Background()
	a, err := cli.ResolveAlarm(bg, ctx.Store, ref)
	if err != nil {
		return err
	}
	coord, err := ctx.Coordinator(bg)
	if err != nil {
		return err
	}

	updated, err := coord.SetEnabled(bg, a.ID, enabled)
	if err != nil {
		if errors.Is(err, lifecycle.ErrExpired) {
			return fmt.Errorf("cannot enable %q: its date has passed", a.Title)
		}
		return err
	}
	a = updated

	if !enabled {
		fmt.Printf("✓ Alarm disabled: %s\n", a.Title)
		return nil
	}
	loc, err := a.Location()
	if err != nil {
		return err
	}
	fmt.Printf("✓ Alarm enabled: %s (next %s)\n", a.Title, FormatInstant(a.NextFireDate, loc))
	return nil
}
