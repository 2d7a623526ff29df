package alarms

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/recurrence"
)

type AlarmNextCmd struct {
	ID    string `arg:"" help:"Alarm ID or unique ID prefix."`
	Count int    `short:"n" help:"Number of upcoming occurrences to show." default:"5"`

	now func() time.Time
}

func (c *AlarmNextCmd) Run(ctx *cli.Context) error {
	a, err := cli.ResolveAlarm(context.Background(), ctx.Store, c.ID)
	if err != nil {
		return err
	}
	loc, err := a.Location()
	if err != nil {
		return err
	}

	from := time.Now()
	if c.now != nil {
		from = c.now()
	}

	fmt.Printf("Upcoming occurrences of %s (%s):\n", a.Title, a.Schedule.Describe())
	shown := 0
	for shown < c.Count {
		next := recurrence.NextFireDate(a.Schedule, a.TimesOfDay, loc, from)
		if recurrence.IsDistantFuture(next) || !next.After(from) {
			break
		}
		fmt.Printf("  %s\n", FormatInstant(next, loc))
		from = next
		shown++
	}
	if shown == 0 {
		fmt.Println("  none")
	}
	return nil
}
