package system

import (
	"fmt"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/migration"
)

type MigrateCmd struct {
	Check bool `help:"Report pending migrations without applying them. Exits non-zero when the schema is behind."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if c.Check {
		return c.check(ctx)
	}

	count, err := ctx.Store.Migrate(func(msg string) {
		fmt.Println(cli.MutedStyle.Render("  " + msg))
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	current, _, err := ctx.Store.SchemaVersion()
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Printf("Schema is up to date (version %d).\n", current)
		return nil
	}
	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Applied %d migration(s), schema now at version %d.", count, current)))
	return nil
}

func (c *MigrateCmd) check(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return err
	}
	fmt.Printf("Schema version %d, latest %d.\n", current, latest)
	return migration.Status{Current: current, Latest: latest}.Check()
}
