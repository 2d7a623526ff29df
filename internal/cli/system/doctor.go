package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/config"
	"github.com/julianstephens/chime/internal/daemon"
	"github.com/julianstephens/chime/internal/events"
	"github.com/julianstephens/chime/internal/keyring"
	"github.com/julianstephens/chime/internal/migration"
	"github.com/julianstephens/chime/internal/notifier"
	"github.com/julianstephens/chime/internal/recurrence"
	"github.com/julianstephens/chime/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(ctx *cli.Context) error
	// warnOnly checks report a problem without failing the command.
	warnOnly bool
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
}

var checks = []check{
	{name: "Database reachable", run: checkDBReachable},
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Alarm data", run: checkAlarms, needsDB: true},
	{name: "Clock/timezone", run: checkClockTimezone, needsDB: true},
	{name: "Tray app", run: checkTray, warnOnly: true},
	{name: "OS keyring", run: checkKeyring, warnOnly: true},
	{name: "Redis", run: checkRedis},
	{name: "Kafka", run: checkKafka, warnOnly: true},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := true

	for i, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		var skip skipped
		switch {
		case errors.As(err, &skip):
			fmt.Printf("⊘ %s: SKIPPED (%s)\n", c.name, string(skip))
		case err != nil && c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		case err != nil:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
			if i == 0 {
				dbReachable = false
			}
		default:
			fmt.Printf("✓ %s: OK\n", c.name)
		}
	}

	fmt.Println()
	if hasError {
		return errors.New("one or more checks failed")
	}
	fmt.Println("All checks passed.")
	return nil
}

// skipped is returned by checks that do not apply to this setup.
type skipped string

func (s skipped) Error() string { return string(s) }

func configOf(ctx *cli.Context) *config.Config {
	if ctx.Config != nil {
		return ctx.Config
	}
	d := config.Default()
	return &d
}

func checkDBReachable(ctx *cli.Context) error {
	_, _, err := ctx.Store.SchemaVersion()
	return err
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return err
	}
	return migration.Status{Current: current, Latest: latest}.Check()
}

// checkAlarms validates every stored alarm and looks for enabled alarms
// whose schedule can no longer fire.
func checkAlarms(ctx *cli.Context) error {
	alarms, err := ctx.Store.GetAllAlarms(context.Background())
	if err != nil {
		return err
	}
	var problems []error
	for _, a := range alarms {
		if err := a.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("%s (%s): %w", cli.ShortID(a.ID), a.Title, err))
			continue
		}
		if a.IsEnabled && recurrence.IsDistantFuture(a.NextFireDate) {
			problems = append(problems, fmt.Errorf("%s (%s): enabled but has no future occurrence", cli.ShortID(a.ID), a.Title))
		}
		if a.IsPendingConfirmation && a.PendingSince == nil {
			problems = append(problems, fmt.Errorf("%s (%s): pending without a pending-since time", cli.ShortID(a.ID), a.Title))
		}
	}
	return errors.Join(problems...)
}

func checkClockTimezone(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}
	if _, err := utils.LoadLocation(settings.Timezone); err != nil {
		return fmt.Errorf("timezone setting %q does not load: %w", settings.Timezone, err)
	}
	if time.Now().Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", time.Now().Format(time.RFC3339))
	}
	return nil
}

func checkTray(ctx *cli.Context) error {
	if err := notifier.TrayStatus(); err != nil {
		if errors.Is(err, notifier.ErrTrayNotRunning) {
			return errors.New("chime-tray is not running; alarms will fire without notifications")
		}
		return err
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if !configOf(ctx).Database.UseKeyring {
		return skipped("database.use_keyring is off")
	}
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	if _, err := keyring.GetConnectionString(); err != nil {
		return err
	}
	return nil
}

func checkRedis(ctx *cli.Context) error {
	cfg := configOf(ctx)
	if !cfg.Redis.Enabled {
		return skipped("redis.enabled is off")
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w, err := daemon.Wire(c, cfg, settings)
	if err != nil {
		return err
	}
	w.Close()
	return nil
}

func checkKafka(ctx *cli.Context) error {
	cfg := configOf(ctx)
	if !cfg.Kafka.Enabled {
		return skipped("kafka.enabled is off")
	}
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return events.Ping(c, cfg.Kafka.Brokers)
}
