package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/storage"
)

const alarmColumns = `id, title, times_of_day, schedule, schedule_kind, timezone, next_fire_date,
	is_enabled, snooze_count, is_pending_confirmation, pending_since, last_fired_date,
	follow_up_interval_millis, created_at, updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
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
		a.NextFireDate.UTC(), a.IsEnabled, a.SnoozeCount, a.IsPendingConfirmation,
		nullTime(a.PendingSince), nullTime(a.LastFiredDate), a.FollowUpIntervalMillis,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	}, nil
}

func scanAlarm(row scanner) (models.Alarm, error) {
	var (
		a                       models.Alarm
		times, schedule, kind   string
		pendingSince, lastFired sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Title, &times, &schedule, &kind, &a.Timezone, &a.NextFireDate,
		&a.IsEnabled, &a.SnoozeCount, &a.IsPendingConfirmation, &pendingSince, &lastFired,
		&a.FollowUpIntervalMillis, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Alarm{}, err
	}

	if a.TimesOfDay, err = storage.DecodeTimes(times); err != nil {
		return models.Alarm{}, err
	}
	if a.Schedule, err = storage.DecodeSchedule(schedule); err != nil {
		return models.Alarm{}, err
	}
	a.NextFireDate = a.NextFireDate.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	a.PendingSince = timePtr(pendingSince)
	a.LastFiredDate = timePtr(lastFired)
	return a, nil
}

func (s *Store) AddAlarm(ctx context.Context, a models.Alarm) error {
	args, err := alarmArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alarms (`+alarmColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`, args...)
	if err != nil {
		return fmt.Errorf("inserting alarm %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAlarm(ctx context.Context, id string) (models.Alarm, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alarmColumns+" FROM alarms WHERE id = $1", id)
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
	res, err := db.ExecContext(ctx, `
		UPDATE alarms SET
			title = $2, times_of_day = $3, schedule = $4, schedule_kind = $5, timezone = $6,
			next_fire_date = $7, is_enabled = $8, snooze_count = $9, is_pending_confirmation = $10,
			pending_since = $11, last_fired_date = $12, follow_up_interval_millis = $13,
			created_at = $14, updated_at = $15
		WHERE id = $1`, args...)
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

	res, err := tx.ExecContext(ctx, "DELETE FROM alarms WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting alarm %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM completion_records WHERE alarm_id = $1", id); err != nil {
		return fmt.Errorf("deleting history for %s: %w", id, err)
	}

	return tx.Commit()
}

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
	return s.queryAlarms(ctx, "SELECT "+alarmColumns+" FROM alarms WHERE is_enabled ORDER BY next_fire_date, id")
}

func (s *Store) Update(ctx context.Context, a models.Alarm) error {
	return s.UpdateAlarm(ctx, a)
}
