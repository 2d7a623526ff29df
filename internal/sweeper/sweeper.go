// Package sweeper periodically reconciles armed timers with the store and
// records occurrences that passed without any action.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/chime/internal/lifecycle"
	"github.com/julianstephens/chime/internal/logger"
	"github.com/julianstephens/chime/internal/models"
)

// Coordinator is the part of lifecycle.Coordinator the sweeper drives.
type Coordinator interface {
	MarkMissed(ctx context.Context, id string) (models.Alarm, error)
	Rearm(ctx context.Context, a models.Alarm)
}

// Result summarizes one sweep.
type Result struct {
	Checked int
	Missed  int
	Failed  int
}

type Sweeper struct {
	store    lifecycle.AlarmStore
	coord    Coordinator
	cron     *cron.Cron
	interval time.Duration
	grace    time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func New(store lifecycle.AlarmStore, coord Coordinator, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		coord:    coord,
		cron:     cron.New(),
		interval: interval,
		grace:    grace,
		timeout:  time.Minute,
		now:      time.Now,
	}
}

// Start schedules Sweep every interval. It does not run an initial sweep.
func (s *Sweeper) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}

	cronExpr := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(cronExpr, s.run); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	logger.Info("Sweeper started", "interval", s.interval, "grace", s.grace)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.Sweep(ctx)
	if err != nil {
		logger.Error("Sweep failed", "error", err)
		return
	}
	logger.Debug("Sweep completed", "checked", res.Checked, "missed", res.Missed, "failed", res.Failed)
}

// Sweep marks overdue enabled alarms as missed and re-arms every enabled
// alarm from its stored state. Per-alarm failures are counted and logged.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	alarms, err := s.store.FetchAllEnabled(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading enabled alarms: %w", err)
	}

	var res Result
	now := s.now()
	for _, a := range alarms {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		if a.NextFireDate.Add(s.grace).Before(now) {
			updated, err := s.coord.MarkMissed(ctx, a.ID)
			if err != nil {
				res.Failed++
				logger.Warn("Failed to mark alarm missed", "alarm_id", a.ID, "error", err)
				continue
			}
			if !updated.NextFireDate.Equal(a.NextFireDate) || updated.IsEnabled != a.IsEnabled {
				res.Missed++
				logger.Info("Marked occurrence missed", "alarm_id", a.ID, "was_due", a.NextFireDate, "next", updated.NextFireDate)
			}
			a = updated
		}

		s.coord.Rearm(ctx, a)
	}
	return res, nil
}
