package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/storage"
	"github.com/julianstephens/chime/internal/storage/postgres"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Yes    bool   `short:"y" help:"Do not ask before deleting with --force."`
	Source string `help:"Source database path or connection string to copy alarms and history from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	// If force flag is provided, delete existing database
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if !c.Yes {
				confirmed := false
				err := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Delete %s and every alarm in it?", dbPath)).
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
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized chime storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Migrating data from: %s\n", c.Source)
		if err := c.migrateData(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("Migration completed successfully!")
	}

	return nil
}

func (c *InitCmd) migrateData(ctx *cli.Context, sourcePath string) error {
	if postgres.IsConnString(sourcePath) {
		if _, err := postgres.ValidateConnString(sourcePath); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return err
		}
	}
	sourceStore, err := cli.OpenStore(sourcePath, false)
	if err != nil {
		return err
	}
	if err := sourceStore.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer sourceStore.Close()

	return copyStore(context.Background(), sourceStore, ctx.Store)
}

// copyStore copies settings, alarms and their completion history.
func copyStore(ctx context.Context, src, dst storage.Provider) error {
	fmt.Println("  Migrating settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := dst.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	fmt.Println("  Migrating alarms...")
	alarms, err := src.GetAllAlarms(ctx)
	if err != nil {
		return fmt.Errorf("failed to get alarms from source: %w", err)
	}
	records := 0
	for _, a := range alarms {
		if err := dst.AddAlarm(ctx, a); err != nil {
			return fmt.Errorf("failed to add alarm %s: %w", a.ID, err)
		}
		history, err := src.GetCompletionRecords(ctx, a.ID, 0)
		if err != nil {
			return fmt.Errorf("failed to get history for alarm %s: %w", a.ID, err)
		}
		// oldest first so the log keeps its order
		for i := len(history) - 1; i >= 0; i-- {
			if err := dst.Append(ctx, history[i]); err != nil {
				return fmt.Errorf("failed to add record %s: %w", history[i].ID, err)
			}
		}
		records += len(history)
	}
	fmt.Printf("    Migrated %d alarms\n", len(alarms))
	fmt.Printf("    Migrated %d completion records\n", records)
	return nil
}
