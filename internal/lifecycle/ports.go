package lifecycle

import (
	"context"
	"time"

	"github.com/julianstephens/chime/internal/models"
)

// AlarmStore is the durable record of alarms.
type AlarmStore interface {
	// FetchByID returns nil without error when no alarm has the id.
	FetchByID(ctx context.Context, id string) (*models.Alarm, error)
	FetchAllEnabled(ctx context.Context) ([]models.Alarm, error)
	Update(ctx context.Context, alarm models.Alarm) error
}

// CompletionLog is the append-only history of lifecycle events.
type CompletionLog interface {
	Append(ctx context.Context, record models.CompletionRecord) error
	// QueryRecent returns at most limit records, newest first.
	QueryRecent(ctx context.Context, limit int) ([]models.CompletionRecord, error)
}

// Committer persists an alarm and the records its transition produced in one
// transaction. Either everything is visible to other readers or nothing is.
type Committer interface {
	CommitTransition(ctx context.Context, alarm models.Alarm, records ...models.CompletionRecord) error
}

// Store is everything the coordinator needs from persistence.
type Store interface {
	AlarmStore
	CompletionLog
	Committer
}

// Scheduler arms and cancels wake triggers by slot id. Arming an id that is
// already armed replaces it; cancelling an unknown id is not an error.
type Scheduler interface {
	Arm(ctx context.Context, slotID string, at time.Time) error
	Cancel(ctx context.Context, slotID string) error
}

// Locker serializes transitions per alarm id.
type Locker interface {
	Lock(ctx context.Context, alarmID string) (unlock func(), err error)
}

// RecordSink receives records after they are committed.
type RecordSink interface {
	Publish(ctx context.Context, record models.CompletionRecord) error
}

type nopScheduler struct{}

func (nopScheduler) Arm(context.Context, string, time.Time) error { return nil }
func (nopScheduler) Cancel(context.Context, string) error         { return nil }
