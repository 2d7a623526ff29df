package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/cli/actions"
	"github.com/julianstephens/chime/internal/cli/alarms"
	"github.com/julianstephens/chime/internal/cli/history"
	"github.com/julianstephens/chime/internal/cli/settings"
	"github.com/julianstephens/chime/internal/cli/system"
	"github.com/julianstephens/chime/internal/config"
	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/errors"
	"github.com/julianstephens/chime/internal/logger"
	"github.com/julianstephens/chime/internal/utils"
)

var CLI struct {
	Version    kong.VersionFlag
	Config     string `help:"Database path or PostgreSQL connection string. Overrides database.path from the config file. For PostgreSQL, credentials must NOT be embedded in the connection string; use the OS keyring, PGPASSWORD or .pgpass instead." type:"string"`
	ConfigFile string `help:"YAML configuration file." type:"string" default:"${config_file}"`
	Debug      bool   `help:"Log debug output to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Initialize chime storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Run     system.RunCmd     `cmd:"" help:"Run the alarm daemon in the foreground."`
	Alarm   struct {
		Add     alarms.AlarmAddCmd     `cmd:"" help:"Add a new alarm."`
		List    alarms.AlarmListCmd    `cmd:"" help:"List alarms." default:"1"`
		Show    alarms.AlarmShowCmd    `cmd:"" help:"Show an alarm and its recent history."`
		Next    alarms.AlarmNextCmd    `cmd:"" help:"Show an alarm's upcoming occurrences."`
		Enable  alarms.AlarmEnableCmd  `cmd:"" help:"Enable an alarm."`
		Disable alarms.AlarmDisableCmd `cmd:"" help:"Disable an alarm."`
		Delete  alarms.AlarmDeleteCmd  `cmd:"" help:"Delete an alarm and its history."`
	} `cmd:"" help:"Manage alarms."`
	Fire     actions.FireCmd      `cmd:"" help:"Fire an alarm now, as its timer would."`
	Snooze   actions.SnoozeCmd    `cmd:"" help:"Snooze an alerting alarm."`
	Stop     actions.StopCmd      `cmd:"" help:"Stop an alerting alarm and record it completed."`
	Done     actions.DoneCmd      `cmd:"" help:"Confirm a pending alarm as done."`
	Dismiss  actions.DismissCmd   `cmd:"" help:"Dismiss a pending alarm without recording it."`
	Skip     actions.SkipCmd      `cmd:"" help:"Skip an alarm's upcoming occurrence."`
	Missed   actions.MissedCmd    `cmd:"" help:"Record an overdue alarm as missed."`
	Pending  actions.PendingCmd   `cmd:"" help:"List alarms awaiting confirmation."`
	History  history.HistoryCmd   `cmd:"" help:"Show an alarm's completion history."`
	Streak   history.StreakCmd    `cmd:"" help:"Show an alarm's streak statistics."`
	Export   history.ExportCmd    `cmd:"" help:"Export alarms as an iCalendar feed."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
	Keyring  struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the database connection string or the Redis password in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show a stored secret, password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a stored secret."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check OS keyring availability and which secrets are stored." default:"1"`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
}

// commands that open the store themselves or must work before it exists
var skipLoad = map[string]bool{
	"init":    true,
	"migrate": true,
	"doctor":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Recurring alarms with snooze, follow-ups and streaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_file": constants.DefaultDaemonConfig,
		},
	)
	command := strings.Fields(ctx.Command())[0]

	cfg, err := config.Load(utils.ExpandPath(CLI.ConfigFile))
	if err != nil {
		errors.Fatal(err)
	}

	logCfg := logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: filepath.Dir(utils.ExpandPath(constants.DefaultConfigPath)),
	}
	if command == "run" {
		logCfg.FileName = "chimed.log"
		logCfg.Level = cfg.Logging.Level
		logCfg.Stderr = cfg.Logging.Stderr
		logCfg.Format = cfg.Logging.Format
	}
	logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	logCfg.MaxBackups = cfg.Logging.MaxBackups
	logCfg.MaxAgeDays = cfg.Logging.MaxAgeDays
	if err := logger.Init(logCfg); err != nil {
		errors.Fatal(err)
	}

	appCtx := &cli.Context{Config: cfg}

	if command != "keyring" {
		dbPath := CLI.Config
		if dbPath == "" {
			dbPath = cfg.Database.Path
		}
		store, err := cli.OpenStore(dbPath, cfg.Database.UseKeyring && CLI.Config == "")
		if err != nil {
			errors.Fatal(err)
		}
		appCtx.Store = store

		if !skipLoad[command] {
			if err := store.Load(); err != nil {
				errors.Fatal(err)
			}
		}
	}

	err = ctx.Run(appCtx)
	appCtx.Close()
	if appCtx.Store != nil {
		if cerr := appCtx.Store.Close(); cerr != nil {
			logger.Warn("Failed to close store", "error", cerr)
		}
	}
	errors.Fatal(err)
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log: %v\n", err)
	}
}
