package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/julianstephens/chime/internal/models"
)

func appendRecord(ctx context.Context, db execer, r models.CompletionRecord) error {
	if !r.Action.Valid() {
		return fmt.Errorf("invalid action %q", r.Action)
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO completion_records (id, alarm_id, timestamp, action) VALUES ($1, $2, $3, $4)",
		r.ID, r.AlarmID, r.Timestamp.UTC(), string(r.Action))
	if err != nil {
		return fmt.Errorf("appending %s record for %s: %w", r.Action, r.AlarmID, err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, r models.CompletionRecord) error {
	return appendRecord(ctx, s.db, r)
}

func (s *Store) QueryRecent(ctx context.Context, limit int) ([]models.CompletionRecord, error) {
	return s.queryRecords(ctx, "", limit)
}

func (s *Store) GetCompletionRecords(ctx context.Context, alarmID string, limit int) ([]models.CompletionRecord, error) {
	return s.queryRecords(ctx, alarmID, limit)
}

func (s *Store) queryRecords(ctx context.Context, alarmID string, limit int) ([]models.CompletionRecord, error) {
	query := "SELECT id, alarm_id, timestamp, action FROM completion_records"
	var args []any
	if alarmID != "" {
		args = append(args, alarmID)
		query += " WHERE alarm_id = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY timestamp DESC, seq DESC"
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.CompletionRecord
	for rows.Next() {
		var (
			r      models.CompletionRecord
			action string
		)
		if err := rows.Scan(&r.ID, &r.AlarmID, &r.Timestamp, &action); err != nil {
			return nil, err
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Action = models.Action(action)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) CommitTransition(ctx context.Context, a models.Alarm, records ...models.CompletionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateAlarm(ctx, tx, a); err != nil {
		return err
	}
	for _, r := range records {
		if err := appendRecord(ctx, tx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}
