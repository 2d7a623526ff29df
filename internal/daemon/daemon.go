// Package daemon runs the long-lived chime process: it arms timers for every
// alarm, reacts when they expire and sweeps for missed occurrences.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/chime/internal/config"
	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/events"
	"github.com/julianstephens/chime/internal/followup"
	"github.com/julianstephens/chime/internal/keyring"
	"github.com/julianstephens/chime/internal/lifecycle"
	"github.com/julianstephens/chime/internal/lock"
	"github.com/julianstephens/chime/internal/logger"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/notifier"
	"github.com/julianstephens/chime/internal/platform"
	"github.com/julianstephens/chime/internal/storage"
	"github.com/julianstephens/chime/internal/sweeper"
)

// Notifier delivers an alert to the user.
type Notifier interface {
	NotifyAlarm(ctx context.Context, a models.Alarm, kind notifier.Kind) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyAlarm(context.Context, models.Alarm, notifier.Kind) error { return nil }

type Option func(*Daemon)

// WithNotifier replaces the tray notifier.
func WithNotifier(n Notifier) Option { return func(d *Daemon) { d.notifier = n } }

// WithCoordinatorOptions appends options used when building the coordinator.
func WithCoordinatorOptions(opts ...lifecycle.Option) Option {
	return func(d *Daemon) { d.coordOpts = append(d.coordOpts, opts...) }
}

type Daemon struct {
	store     storage.Provider
	settings  models.Settings
	coord     *lifecycle.Coordinator
	timers    *platform.TimerScheduler
	sweeper   *sweeper.Sweeper
	notifier  Notifier
	coordOpts []lifecycle.Option
	wiring    *Wiring
}

// Wiring is the coordinator configuration shared by the daemon and one-shot
// CLI commands: durations from settings plus the optional redis lock and
// kafka sink from the config file.
type Wiring struct {
	Options []lifecycle.Option
	Grace   time.Duration
	closers []func() error
}

// Wire connects to the optional backends cfg enables. Close releases them.
func Wire(ctx context.Context, cfg *config.Config, settings models.Settings) (*Wiring, error) {
	models.ApplyDefaultSettings(&settings)

	w := &Wiring{Grace: cfg.Daemon.MissedGrace}
	if w.Grace <= 0 {
		w.Grace = time.Duration(settings.MissedGraceMin) * time.Minute
	}
	w.Options = []lifecycle.Option{
		lifecycle.WithSnoozeDuration(time.Duration(settings.SnoozeMin) * time.Minute),
		lifecycle.WithFollowUpCount(settings.FollowUpCount),
		lifecycle.WithMissedGrace(w.Grace),
	}

	if cfg.Redis.Enabled {
		password := cfg.Redis.Password
		if password == "" {
			if pw, err := keyring.Get(keyring.AccountRedis); err == nil {
				password = pw
			}
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		w.closers = append(w.closers, client.Close)
		w.Options = append(w.Options, lifecycle.WithLocker(lock.NewRedisLocker(client, cfg.Redis.LockTTL, cfg.Redis.LockWait)))
		logger.Info("Using redis alarm locks", "addr", cfg.Redis.Addr)
	}

	if cfg.Kafka.Enabled {
		sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout)
		w.closers = append(w.closers, sink.Close)
		w.Options = append(w.Options, lifecycle.WithSink(sink))
		logger.Info("Publishing completion records to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	return w, nil
}

// Close releases the redis client and kafka writer, if any.
func (w *Wiring) Close() {
	for _, c := range w.closers {
		if err := c(); err != nil {
			logger.Warn("Failed to close backend", "error", err)
		}
	}
	w.closers = nil
}

// New builds a daemon over an already loaded store. The caller keeps
// ownership of the store; Shutdown releases everything else.
func New(ctx context.Context, cfg *config.Config, store storage.Provider, opts ...Option) (*Daemon, error) {
	settings, err := store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)

	d := &Daemon{store: store, settings: settings}
	if cfg.Daemon.Notify && settings.NotificationsEnabled {
		d.notifier = notifier.New()
	} else {
		d.notifier = nopNotifier{}
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wiring, err = Wire(ctx, cfg, settings)
	if err != nil {
		return nil, err
	}
	d.timers = platform.NewTimerScheduler(d.handleSlot)

	coordOpts := append([]lifecycle.Option{lifecycle.WithScheduler(d.timers)}, d.wiring.Options...)
	d.coord = lifecycle.New(store, append(coordOpts, d.coordOpts...)...)
	d.sweeper = sweeper.New(store, d.coord, cfg.Daemon.SweepInterval, d.wiring.Grace)
	return d, nil
}

// Coordinator exposes the daemon's coordinator, which arms timers on every transition.
func (d *Daemon) Coordinator() *lifecycle.Coordinator { return d.coord }

// Start records anything missed while the daemon was down, arms every
// enabled alarm and starts the periodic sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	res, err := d.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("initial sweep failed: %w", err)
	}
	logger.Info("Daemon started", "alarms", res.Checked, "missed", res.Missed, "armed", len(d.timers.Armed()))
	return d.sweeper.Start()
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		d.Shutdown()
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	<-ctx.Done()
	logger.Info("Shutting down daemon")
	d.Shutdown()
	return nil
}

// Shutdown stops the sweeper, cancels every timer and closes the optional
// redis and kafka clients. It is safe to call more than once.
func (d *Daemon) Shutdown() {
	d.sweeper.Stop()
	d.timers.Close()
	d.wiring.Close()
}

// Armed lists the slots currently waiting to fire.
func (d *Daemon) Armed() []platform.ArmedSlot { return d.timers.Armed() }

func (d *Daemon) handleSlot(ctx context.Context, slotID string) {
	slot, err := followup.ParseSlotID(slotID)
	if err != nil {
		logger.Warn("Ignoring unknown slot", "slot", slotID, "error", err)
		return
	}

	switch slot.Kind {
	case constants.SlotKindAlarm:
		d.fire(ctx, slot.AlarmID)
	case constants.SlotKindSnooze:
		a, ok := d.fetch(ctx, slot.AlarmID)
		if !ok || !a.IsEnabled || a.SnoozeCount == 0 {
			return
		}
		d.notify(ctx, a, notifier.KindSnooze)
	case constants.SlotKindFollowUp:
		a, ok := d.fetch(ctx, slot.AlarmID)
		if !ok || !a.IsPendingConfirmation {
			return
		}
		d.notify(ctx, a, notifier.KindFollowUp)
	}
}

// fire alerts for an occurrence. With confirmation tracking the alarm moves
// straight to pending so its follow-ups are armed; otherwise it stays
// alerting until the user stops, snoozes or skips it, or the sweeper marks it missed.
func (d *Daemon) fire(ctx context.Context, id string) {
	a, err := d.coord.Fire(ctx, id)
	if err != nil {
		if errors.Is(err, lifecycle.ErrDisabled) || errors.Is(err, lifecycle.ErrNotFound) {
			logger.Debug("Skipping fire", "alarm_id", id, "error", err)
			return
		}
		logger.Error("Failed to fire alarm", "alarm_id", id, "error", err)
		return
	}
	d.notify(ctx, a, notifier.KindAlarm)

	if !d.settings.TrackConfirmation {
		return
	}
	if _, err := d.coord.EnterPending(ctx, id); err != nil {
		logger.Error("Failed to enter pending confirmation", "alarm_id", id, "error", err)
	}
}

func (d *Daemon) fetch(ctx context.Context, id string) (models.Alarm, bool) {
	a, err := d.store.FetchByID(ctx, id)
	if err != nil {
		logger.Error("Failed to load alarm", "alarm_id", id, "error", err)
		return models.Alarm{}, false
	}
	if a == nil {
		return models.Alarm{}, false
	}
	return *a, true
}

func (d *Daemon) notify(ctx context.Context, a models.Alarm, kind notifier.Kind) {
	if err := d.notifier.NotifyAlarm(ctx, a, kind); err != nil {
		if errors.Is(err, notifier.ErrTrayNotRunning) {
			logger.Debug("Tray not running, alert not delivered", "alarm_id", a.ID, "kind", kind)
			return
		}
		logger.Warn("Failed to deliver alert", "alarm_id", a.ID, "kind", kind, "error", err)
	}
}
