package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/storage"
)

const alarmColumns = `id, title, times_of_day, schedule, schedule_kind, timezone, next_fire_date,
	is_enabled, snooze_count, is_pending_confirmation, pending_since, last_fired_date,
	follow_up_interval_millis, created_at, updated_at`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func alarmArgs(a models.Alarm) ([]any, error) {
	times, err := storage.EncodeTimes(a.TimesOfDay)
	if err != nil {
		return nil, err
	}
	schedule, err := storage.EncodeSchedule(a.Schedule)
	if err != nil {
		return nil, err
	}
	return []any{
		a.ID, a.Title, times, schedule, string(a.Schedule.Kind), a.Timezone,
		storage.FormatTimestamp(a.NextFireDate), a.IsEnabled, a.SnoozeCount,
		a.IsPendingConfirmation, storage.FormatNullableTimestamp(a.PendingSince),
		storage.FormatNullableTimestamp(a.LastFiredDate), a.FollowUpIntervalMillis,
		storage.FormatTimestamp(a.CreatedAt), storage.FormatTimestamp(a.UpdatedAt),
	}, nil
}

func scanAlarm(row scanner) (models.Alarm, error) {
	var (
		a                              models.Alarm
		times, schedule, kind          string
		nextFire, createdAt, updatedAt string
		pendingSince, lastFired        sql.NullString
	)
	err := row.Scan(&a.ID, &a.Title, &times, &schedule, &kind, &a.Timezone, &nextFire,
		&a.IsEnabled, &a.SnoozeCount, &a.IsPendingConfirmation, &pendingSince, &lastFired,
		&a.FollowUpIntervalMillis, &createdAt, &updatedAt)
	if err != nil {
		return models.Alarm{}, err
	}

	if a.TimesOfDay, err = storage.DecodeTimes(times); err != nil {
		return models.Alarm{}, err
	}
	if a.Schedule, err = storage.DecodeSchedule(schedule); err != nil {
		return models.Alarm{}, err
	}
	if a.NextFireDate, err = storage.ParseTimestamp(nextFire); err != nil {
		return models.Alarm{}, err
	}
	if a.CreatedAt, err = storage.ParseTimestamp(createdAt); err != nil {
		return models.Alarm{}, err
	}
	if a.UpdatedAt, err = storage.ParseTimestamp(updatedAt); err != nil {
		return models.Alarm{}, err
	}
	if pendingSince.Valid {
		if a.PendingSince, err = storage.ParseNullableTimestamp(&pendingSince.String); err != nil {
			return models.Alarm{}, err
		}
	}
	if lastFired.Valid {
		if a.LastFiredDate, err = storage.ParseNullableTimestamp(&lastFired.String); err != nil {
			return models.Alarm{}, err
		}
	}
	return a, nil
}

func (s *Store) AddAlarm(ctx context.Context, a models.Alarm) error {
	args, err := alarmArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alarms (`+alarmColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("inserting alarm %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAlarm(ctx context.Context, id string) (models.Alarm, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alarmColumns+" FROM alarms WHERE id = ?", id)
	a, err := scanAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alarm{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return models.Alarm{}, fmt.Errorf("loading alarm %s: %w", id, err)
	}
	return a, nil
}

func (s *Store) GetAllAlarms(ctx context.Context) ([]models.Alarm, error) {
	return s.queryAlarms(ctx, "SELECT "+alarmColumns+" FROM alarms ORDER BY created_at, id")
}

func (s *Store) queryAlarms(ctx context.Context, query string, args ...any) ([]models.Alarm, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alarms []models.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

func (s *Store) UpdateAlarm(ctx context.Context, a models.Alarm) error {
	return updateAlarm(ctx, s.db, a)
}

func updateAlarm(ctx context.Context, db execer, a models.Alarm) error {
	args, err := alarmArgs(a)
	if err != nil {
		return err
	}
	// id goes last for the WHERE clause
	args = append(args[1:], a.ID)
	res, err := db.ExecContext(ctx, `
		UPDATE alarms SET
			title = ?, times_of_day = ?, schedule = ?, schedule_kind = ?, timezone = ?,
			next_fire_date = ?, is_enabled = ?, snooze_count = ?, is_pending_confirmation = ?,
			pending_since = ?, last_fired_date = ?, follow_up_interval_millis = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating alarm %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, a.ID)
	}
	return nil
}

func (s *Store) DeleteAlarm(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting alarm %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM completion_records WHERE alarm_id = ?", id); err != nil {
		return fmt.Errorf("deleting history for %s: %w", id, err)
	}

	return tx.Commit()
}

// FetchByID returns nil, nil for an unknown id.
func (s *Store) FetchByID(ctx context.Context, id string) (*models.Alarm, error) {
	a, err := s.GetAlarm(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) FetchAllEnabled(ctx context.Context) ([]models.Alarm, error) {
	return s.queryAlarms(ctx, "SELECT "+alarmColumns+" FROM alarms WHERE is_enabled = 1 ORDER BY next_fire_date, id")
}

func (s *Store) Update(ctx context.Context, a models.Alarm) error {
	return s.UpdateAlarm(ctx, a)
}
