package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/chime/internal/lifecycle"
	"github.com/julianstephens/chime/internal/models"
)

// ErrNotFound is returned when an alarm id has no row.
var ErrNotFound = errors.New("alarm not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	// Migrate applies pending schema migrations and returns how many ran.
	Migrate(logFn func(string)) (int, error)
	// SchemaVersion returns the applied and the newest known migration version.
	SchemaVersion() (current, latest int, err error)

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Alarms
	AddAlarm(ctx context.Context, alarm models.Alarm) error
	GetAlarm(ctx context.Context, id string) (models.Alarm, error)
	GetAllAlarms(ctx context.Context) ([]models.Alarm, error)
	UpdateAlarm(ctx context.Context, alarm models.Alarm) error
	// DeleteAlarm removes the alarm together with its completion history.
	DeleteAlarm(ctx context.Context, id string) error

	// GetCompletionRecords returns the alarm's records newest first. A
	// non-positive limit returns all of them.
	GetCompletionRecords(ctx context.Context, alarmID string, limit int) ([]models.CompletionRecord, error)

	// Ports consumed by the lifecycle coordinator.
	lifecycle.Store

	// Utils
	GetConfigPath() string
}
