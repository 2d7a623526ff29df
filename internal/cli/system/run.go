package system

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/julianstephens/chime/internal/cli"
	"github.com/julianstephens/chime/internal/config"
	"github.com/julianstephens/chime/internal/daemon"
	"github.com/julianstephens/chime/internal/logger"
)

// RunCmd runs the alarm daemon in the foreground until interrupted.
type RunCmd struct {
	NoNotify bool `help:"Do not post tray notifications."`

	parent context.Context
}

func (c *RunCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	if c.NoNotify {
		copied := *cfg
		copied.Daemon.Notify = false
		cfg = &copied
	}

	parent := c.parent
	if parent == nil {
		parent = context.Background()
	}
	runCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(runCtx, cfg, ctx.Store)
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	logger.Info("Starting chime daemon", "db", ctx.Store.GetConfigPath(), "sweep_interval", cfg.Daemon.SweepInterval)
	return d.Run(runCtx)
}
