package lifecycle

import (
	"context"
	"time"

	"github.com/julianstephens/chime/internal/followup"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/recurrence"
)

// Fire handles the platform trigger for an alarm occurrence. If the previous
// occurrence is still awaiting confirmation it is auto-completed first. The
// alarm is then Alerting until the caller snoozes, stops or enters pending.
func (c *Coordinator) Fire(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "fire", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsEnabled {
			return nil, ErrDisabled
		}
		return autoComplete(a), nil
	})
}

// Snooze defers an alerting alarm by the configured snooze duration.
func (c *Coordinator) Snooze(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "snooze", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsEnabled {
			return nil, ErrDisabled
		}
		a.SnoozeCount++
		return &change{
			actions:   []models.Action{models.ActionSnoozed},
			armSnooze: now.Add(c.snooze),
		}, nil
	})
}

// Stop completes an alerting alarm directly, without confirmation tracking.
func (c *Coordinator) Stop(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "stop", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsEnabled {
			return nil, ErrDisabled
		}
		wasPending := a.IsPendingConfirmation
		clearPending(a)
		a.SnoozeCount = 0
		a.LastFiredDate = &now
		if err := advance(a, now); err != nil {
			return nil, err
		}
		return &change{
			actions:         []models.Action{models.ActionCompleted},
			rearm:           true,
			cancelSnooze:    true,
			cancelFollowUps: wasPending,
		}, nil
	})
}

// EnterPending moves a fired alarm into pending confirmation. Recurrence
// advances immediately regardless of confirmation; a one-time alarm is disabled.
// A still-pending previous occurrence is auto-completed first.
func (c *Coordinator) EnterPending(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "enter-pending", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsEnabled {
			return nil, ErrDisabled
		}

		var actions []models.Action
		if a.IsPendingConfirmation {
			actions = append(actions, models.ActionCompleted)
		}

		a.IsPendingConfirmation = true
		a.PendingSince = &now
		a.LastFiredDate = &now
		a.SnoozeCount = 0
		if err := advance(a, now); err != nil {
			return nil, err
		}

		return &change{
			actions:         append(actions, models.ActionPendingConfirmation),
			rearm:           true,
			cancelSnooze:    true,
			cancelFollowUps: true,
			armFollowUps:    followup.Schedule(now, a.FollowUpIntervalMillis, c.followUps),
		}, nil
	})
}

// ConfirmDone resolves a pending alarm as completed. It is a no-op when the
// alarm is not pending.
func (c *Coordinator) ConfirmDone(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "confirm-done", id, func(a *models.Alarm, now time.Time) (*change, error) {
		return autoComplete(a), nil
	})
}

// CancelPending discards the pending state without recording a completion.
// It is a no-op when the alarm is not pending.
func (c *Coordinator) CancelPending(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "cancel-pending", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsPendingConfirmation {
			return nil, nil
		}
		clearPending(a)
		return &change{cancelFollowUps: true}, nil
	})
}

// AutoCompletePending resolves a pending alarm silently when its next
// occurrence fires. It is a no-op when the alarm is not pending.
func (c *Coordinator) AutoCompletePending(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "auto-complete", id, func(a *models.Alarm, now time.Time) (*change, error) {
		return autoComplete(a), nil
	})
}

// Skip records the upcoming (or currently alerting) occurrence as skipped and
// moves on to the one after it.
func (c *Coordinator) Skip(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "skip", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsEnabled {
			return nil, ErrDisabled
		}
		a.SnoozeCount = 0
		if err := advance(a, now); err != nil {
			return nil, err
		}
		return &change{
			actions:      []models.Action{models.ActionSkipped},
			rearm:        true,
			cancelSnooze: true,
		}, nil
	})
}

// MarkMissed records an overdue occurrence that nobody acted on and advances
// past it. An occurrence is overdue once the grace period after its fire
// instant has passed; a snoozed alarm only once its snooze has also run out
// by the grace period. A pending previous occurrence is auto-completed first,
// as the overdue occurrence counts as having fired.
func (c *Coordinator) MarkMissed(ctx context.Context, id string) (models.Alarm, error) {
	return c.transition(ctx, "mark-missed", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if !a.IsEnabled || !a.NextFireDate.Add(c.grace).Before(now) {
			return nil, nil
		}
		if a.SnoozeCount > 0 && !a.UpdatedAt.Add(c.snooze+c.grace).Before(now) {
			return nil, nil
		}

		var actions []models.Action
		wasPending := a.IsPendingConfirmation
		if wasPending {
			clearPending(a)
			actions = append(actions, models.ActionCompleted)
		}
		a.SnoozeCount = 0
		if err := advance(a, now); err != nil {
			return nil, err
		}
		return &change{
			actions:         append(actions, models.ActionMissed),
			rearm:           true,
			cancelSnooze:    true,
			cancelFollowUps: wasPending,
		}, nil
	})
}

// SetEnabled turns an alarm on or off. Enabling recomputes nextFireDate from
// now and fails with ErrExpired when nothing is left to fire. Disabling drops
// any snooze or pending confirmation without recording anything.
func (c *Coordinator) SetEnabled(ctx context.Context, id string, enabled bool) (models.Alarm, error) {
	return c.transition(ctx, "set-enabled", id, func(a *models.Alarm, now time.Time) (*change, error) {
		if a.IsEnabled == enabled {
			return nil, nil
		}
		if !enabled {
			wasPending := a.IsPendingConfirmation
			a.IsEnabled = false
			a.SnoozeCount = 0
			clearPending(a)
			return &change{rearm: true, cancelSnooze: true, cancelFollowUps: wasPending}, nil
		}

		loc, err := a.Location()
		if err != nil {
			return nil, err
		}
		next := recurrence.NextFireDate(a.Schedule, a.TimesOfDay, loc, now)
		if recurrence.IsDistantFuture(next) || !next.After(now) {
			return nil, ErrExpired
		}
		a.IsEnabled = true
		a.NextFireDate = next
		return &change{rearm: true}, nil
	})
}

// Rearm registers the alarm's slots from its stored state without changing
// it: the current occurrence, an unexpired snooze and any follow-ups still
// ahead. The daemon calls it at startup and from the sweeper.
func (c *Coordinator) Rearm(ctx context.Context, a models.Alarm) {
	now := c.now()
	c.armOccurrence(ctx, a, now)
	if !a.IsEnabled {
		return
	}
	if a.SnoozeCount > 0 {
		if at := a.UpdatedAt.Add(c.snooze); at.After(now) {
			c.arm(ctx, followup.SnoozeSlotID(a.ID), at)
		}
	}
	if a.IsPendingConfirmation && a.PendingSince != nil {
		for i, at := range followup.Schedule(*a.PendingSince, a.FollowUpIntervalMillis, c.followUps) {
			if at.After(now) {
				c.arm(ctx, followup.SlotID(a.ID, i+1), at)
			}
		}
	}
}

// Forget cancels every slot the coordinator may have armed for an alarm,
// for use when the alarm is deleted or disabled outside a transition.
func (c *Coordinator) Forget(ctx context.Context, a models.Alarm) {
	for i := range a.TimesOfDay {
		c.cancel(ctx, followup.AlarmSlotID(a.ID, i+1))
	}
	c.cancel(ctx, followup.SnoozeSlotID(a.ID))
	for _, id := range followup.SlotIDs(a.ID, c.followUps) {
		c.cancel(ctx, id)
	}
}

func autoComplete(a *models.Alarm) *change {
	if !a.IsPendingConfirmation {
		return nil
	}
	clearPending(a)
	return &change{
		actions:         []models.Action{models.ActionCompleted},
		cancelFollowUps: true,
	}
}
