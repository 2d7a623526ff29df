// Package lifecycle drives alarms through firing, snooze, pending confirmation
// and completion.
//
// Each transition is read-modify-write on one alarm, serialized per alarm id by
// a Locker and persisted through Committer so the alarm row and the records it
// produced become visible together. Scheduler and sink failures are logged and
// never undo a committed transition; the daemon's sweeper re-arms from the store.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/followup"
	"github.com/julianstephens/chime/internal/logger"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/recurrence"
)

var (
	ErrNotFound = errors.New("alarm not found")
	ErrDisabled = errors.New("alarm is disabled")
	ErrExpired  = errors.New("alarm has no future occurrence")
)

type Coordinator struct {
	store     Store
	scheduler Scheduler
	locker    Locker
	sinks     []RecordSink
	now       func() time.Time
	newID     func() string
	followUps int
	snooze    time.Duration
	grace     time.Duration
}

type Option func(*Coordinator)

func WithScheduler(s Scheduler) Option { return func(c *Coordinator) { c.scheduler = s } }
func WithLocker(l Locker) Option       { return func(c *Coordinator) { c.locker = l } }
func WithSink(s RecordSink) Option     { return func(c *Coordinator) { c.sinks = append(c.sinks, s) } }
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) { c.newID = gen }
}

// WithFollowUpCount sets how many follow-up reminders EnterPending arms. Zero disables them.
func WithFollowUpCount(n int) Option {
	return func(c *Coordinator) { c.followUps = max(n, 0) }
}

func WithSnoozeDuration(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.snooze = d
		}
	}
}

// WithMissedGrace sets how long past its fire instant an occurrence may go
// unanswered before MarkMissed records it.
func WithMissedGrace(d time.Duration) Option {
	return func(c *Coordinator) { c.grace = max(d, 0) }
}

func New(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		scheduler: nopScheduler{},
		locker:    NewKeyedMutex(),
		now:       time.Now,
		newID:     uuid.NewString,
		followUps: constants.DefaultFollowUpCount,
		snooze:    constants.DefaultSnoozeMin * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State derives the lifecycle state stored on an alarm. Alerting is never
// persisted; it exists only between a fire and the caller's next transition.
func State(a models.Alarm) models.State {
	switch {
	case !a.IsEnabled:
		return models.StateDisabled
	case a.IsPendingConfirmation:
		return models.StatePendingConfirmation
	case a.SnoozeCount > 0:
		return models.StateSnoozed
	default:
		return models.StateScheduled
	}
}

// change is what a transition function asks the coordinator to apply.
type change struct {
	actions         []models.Action
	rearm           bool // re-arm occurrence slots from the alarm's new nextFireDate
	cancelSnooze    bool
	cancelFollowUps bool
	armSnooze       time.Time
	armFollowUps    []time.Time
}

type transitionFunc func(a *models.Alarm, now time.Time) (*change, error)

// transition runs fn against a fresh snapshot of the alarm. A nil change means
// the call was a no-op and nothing is written.
func (c *Coordinator) transition(ctx context.Context, op, id string, fn transitionFunc) (models.Alarm, error) {
	unlock, err := c.locker.Lock(ctx, id)
	if err != nil {
		return models.Alarm{}, fmt.Errorf("lock alarm %s: %w", id, err)
	}
	defer unlock()

	current, err := c.store.FetchByID(ctx, id)
	if err != nil {
		return models.Alarm{}, fmt.Errorf("fetch alarm %s: %w", id, err)
	}
	if current == nil {
		return models.Alarm{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	a := current.Clone()
	now := c.now()
	ch, err := fn(&a, now)
	if err != nil {
		return *current, err
	}
	if ch == nil {
		logger.Debug("Lifecycle no-op", "op", op, "alarm_id", id, "state", State(a))
		return *current, nil
	}

	a.UpdatedAt = now
	records := make([]models.CompletionRecord, len(ch.actions))
	for i, action := range ch.actions {
		records[i] = models.CompletionRecord{ID: c.newID(), AlarmID: id, Timestamp: now, Action: action}
	}
	if err := c.store.CommitTransition(ctx, a, records...); err != nil {
		return *current, fmt.Errorf("commit %s for alarm %s: %w", op, id, err)
	}
	logger.Info("Lifecycle transition", "op", op, "alarm_id", id, "state", State(a), "next_fire", a.NextFireDate)

	c.applySchedule(ctx, a, ch, now)
	c.publish(ctx, records)
	return a, nil
}

func (c *Coordinator) applySchedule(ctx context.Context, a models.Alarm, ch *change, now time.Time) {
	if ch.cancelFollowUps {
		for _, id := range followup.SlotIDs(a.ID, c.followUps) {
			c.cancel(ctx, id)
		}
	}
	if ch.cancelSnooze {
		c.cancel(ctx, followup.SnoozeSlotID(a.ID))
	}
	if !ch.armSnooze.IsZero() {
		c.arm(ctx, followup.SnoozeSlotID(a.ID), ch.armSnooze)
	}
	for i, at := range ch.armFollowUps {
		c.arm(ctx, followup.SlotID(a.ID, i+1), at)
	}
	if ch.rearm {
		c.armOccurrence(ctx, a, now)
	}
}

// armOccurrence replaces the alarm's occurrence slots with one slot per time of
// day on the date of its nextFireDate. Instants not after now are left to the sweeper.
func (c *Coordinator) armOccurrence(ctx context.Context, a models.Alarm, now time.Time) {
	for i := range a.TimesOfDay {
		c.cancel(ctx, followup.AlarmSlotID(a.ID, i+1))
	}
	if !a.IsEnabled || recurrence.IsDistantFuture(a.NextFireDate) {
		return
	}
	loc, err := a.Location()
	if err != nil {
		logger.Warn("Cannot arm alarm", "alarm_id", a.ID, "error", err)
		return
	}

	slot := 1
	for _, at := range recurrence.NextFireDates(a.Schedule, a.TimesOfDay, loc, a.NextFireDate.Add(-time.Nanosecond)) {
		if !at.After(now) {
			continue
		}
		c.arm(ctx, followup.AlarmSlotID(a.ID, slot), at)
		slot++
	}
}

func (c *Coordinator) arm(ctx context.Context, slotID string, at time.Time) {
	if err := c.scheduler.Arm(ctx, slotID, at); err != nil {
		logger.Warn("Failed to arm slot", "slot", slotID, "at", at, "error", err)
	}
}

func (c *Coordinator) cancel(ctx context.Context, slotID string) {
	if err := c.scheduler.Cancel(ctx, slotID); err != nil {
		logger.Warn("Failed to cancel slot", "slot", slotID, "error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, records []models.CompletionRecord) {
	for _, sink := range c.sinks {
		for _, r := range records {
			if err := sink.Publish(ctx, r); err != nil {
				logger.Warn("Failed to publish record", "record_id", r.ID, "action", r.Action, "error", err)
			}
		}
	}
}

// advance moves nextFireDate past the occurrence being handled. An occurrence
// handled before its fire instant is consumed, so the scan starts from the later
// of now and the current nextFireDate. One-time alarms are disabled instead.
func advance(a *models.Alarm, now time.Time) error {
	if a.IsOneTime() {
		a.IsEnabled = false
		return nil
	}
	loc, err := a.Location()
	if err != nil {
		return err
	}

	from := now
	if a.NextFireDate.After(from) {
		from = a.NextFireDate
	}
	next := recurrence.NextFireDate(a.Schedule, a.TimesOfDay, loc, from)
	switch {
	case recurrence.IsDistantFuture(next):
		a.IsEnabled = false
	case !next.After(from):
		logger.Warn("Schedule does not advance", "alarm_id", a.ID, "schedule", a.Schedule.Kind)
	default:
		a.NextFireDate = next
	}
	return nil
}

func clearPending(a *models.Alarm) {
	a.IsPendingConfirmation = false
	a.PendingSince = nil
}
