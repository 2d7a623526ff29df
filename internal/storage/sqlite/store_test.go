package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/storage"
)

var _ storage.Provider = (*Store)(nil)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testAlarm(id string) models.Alarm {
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	return models.Alarm{
		ID:                     id,
		Title:                  "Take vitamins",
		TimesOfDay:             []models.TimeOfDay{{Hour: 9}, {Hour: 21, Minute: 30}},
		Schedule:               models.Weekly(1, models.Monday, models.Wednesday),
		Timezone:               "America/New_York",
		NextFireDate:           time.Date(2025, 1, 6, 14, 0, 0, 0, time.UTC),
		IsEnabled:              true,
		FollowUpIntervalMillis: int64(10 * time.Minute / time.Millisecond),
		CreatedAt:              created,
		UpdatedAt:              created,
	}
}

func TestInit_CreatesTablesAndSettings(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"alarms", "completion_records", "settings", "schema_version"} {
		ok, err := store.tableExists(table)
		if err != nil {
			t.Fatalf("tableExists(%s) failed: %v", table, err)
		}
		if !ok {
			t.Errorf("expected table %s to exist", table)
		}
	}

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("got %+v, want defaults %+v", settings, models.DefaultSettings())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	store := NewStore(path)
	if err := store.Load(); err == nil {
		t.Fatal("expected error loading uninitialized store")
	}

	initStore := NewStore(path)
	if err := initStore.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	initStore.Close()

	loaded := NewStore(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load after Init failed: %v", err)
	}
	defer loaded.Close()
}

func TestSettingsRoundtrip(t *testing.T) {
	store := setupTestStore(t)

	want := models.Settings{
		SnoozeMin:            5,
		FollowUpCount:        2,
		FollowUpIntervalMin:  15,
		TrackConfirmation:    false,
		MissedGraceMin:       45,
		NotificationsEnabled: true,
		Timezone:             "Europe/Berlin",
	}
	if err := store.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAlarmCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAlarm("a1")
	if err := store.AddAlarm(ctx, a); err != nil {
		t.Fatalf("AddAlarm failed: %v", err)
	}
	if err := store.AddAlarm(ctx, a); err == nil {
		t.Error("expected duplicate id to fail")
	}

	got, err := store.GetAlarm(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlarm failed: %v", err)
	}
	if got.Title != a.Title || !got.NextFireDate.Equal(a.NextFireDate) || len(got.TimesOfDay) != 2 {
		t.Errorf("unexpected alarm: %+v", got)
	}
	if got.Schedule.Describe() != a.Schedule.Describe() {
		t.Errorf("schedule got %q, want %q", got.Schedule.Describe(), a.Schedule.Describe())
	}
	if got.PendingSince != nil || got.LastFiredDate != nil {
		t.Error("expected nil optional timestamps")
	}

	pending := time.Date(2025, 1, 6, 14, 0, 5, 123456789, time.UTC)
	got.IsPendingConfirmation = true
	got.PendingSince = &pending
	got.LastFiredDate = &pending
	got.SnoozeCount = 2
	if err := store.UpdateAlarm(ctx, got); err != nil {
		t.Fatalf("UpdateAlarm failed: %v", err)
	}

	reloaded, err := store.GetAlarm(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlarm failed: %v", err)
	}
	if !reloaded.IsPendingConfirmation || reloaded.SnoozeCount != 2 {
		t.Errorf("update not persisted: %+v", reloaded)
	}
	if reloaded.PendingSince == nil || !reloaded.PendingSince.Equal(pending) {
		t.Errorf("pending since got %v, want %v", reloaded.PendingSince, pending)
	}

	if err := store.DeleteAlarm(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAlarm failed: %v", err)
	}
	if _, err := store.GetAlarm(ctx, "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"get", func() error { _, err := store.GetAlarm(ctx, "nope"); return err }},
		{"update", func() error { return store.UpdateAlarm(ctx, testAlarm("nope")) }},
		{"delete", func() error { return store.DeleteAlarm(ctx, "nope") }},
		{"commit", func() error { return store.CommitTransition(ctx, testAlarm("nope")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}

	a, err := store.FetchByID(ctx, "nope")
	if err != nil || a != nil {
		t.Errorf("FetchByID expected nil, nil; got %v, %v", a, err)
	}
}

func TestFetchAllEnabled(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	later := testAlarm("later")
	later.NextFireDate = later.NextFireDate.Add(48 * time.Hour)
	sooner := testAlarm("sooner")
	off := testAlarm("off")
	off.IsEnabled = false

	for _, a := range []models.Alarm{later, sooner, off} {
		if err := store.AddAlarm(ctx, a); err != nil {
			t.Fatalf("AddAlarm(%s) failed: %v", a.ID, err)
		}
	}

	enabled, err := store.FetchAllEnabled(ctx)
	if err != nil {
		t.Fatalf("FetchAllEnabled failed: %v", err)
	}
	if len(enabled) != 2 || enabled[0].ID != "sooner" || enabled[1].ID != "later" {
		t.Errorf("unexpected enabled alarms: %v", enabled)
	}

	all, err := store.GetAllAlarms(ctx)
	if err != nil {
		t.Fatalf("GetAllAlarms failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 alarms, got %d", len(all))
	}
}

func TestCommitTransition(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := testAlarm("a1")
	if err := store.AddAlarm(ctx, a); err != nil {
		t.Fatalf("AddAlarm failed: %v", err)
	}

	ts := time.Date(2025, 1, 6, 14, 0, 30, 0, time.UTC)
	a.SnoozeCount = 0
	a.NextFireDate = time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC)
	records := []models.CompletionRecord{
		{ID: "r1", AlarmID: "a1", Timestamp: ts, Action: models.ActionCompleted},
		{ID: "r2", AlarmID: "a1", Timestamp: ts, Action: models.ActionPendingConfirmation},
	}
	if err := store.CommitTransition(ctx, a, records...); err != nil {
		t.Fatalf("CommitTransition failed: %v", err)
	}

	got, err := store.GetCompletionRecords(ctx, "a1", 0)
	if err != nil {
		t.Fatalf("GetCompletionRecords failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	// same timestamp: newest insertion first
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}

	// an invalid record aborts the whole transition
	a.SnoozeCount = 7
	bad := models.CompletionRecord{ID: "r3", AlarmID: "a1", Timestamp: ts, Action: "exploded"}
	if err := store.CommitTransition(ctx, a, bad); err == nil {
		t.Fatal("expected error for invalid action")
	}
	reloaded, err := store.GetAlarm(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlarm failed: %v", err)
	}
	if reloaded.SnoozeCount != 0 {
		t.Errorf("alarm update leaked from failed transition: snooze=%d", reloaded.SnoozeCount)
	}
}

func TestQueryRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "a", "b"} {
		r := models.CompletionRecord{
			ID:        string(rune('0' + i)),
			AlarmID:   id,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Action:    models.ActionCompleted,
		}
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recent, err := store.QueryRecent(ctx, 3)
	if err != nil {
		t.Fatalf("QueryRecent failed: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != "3" || recent[2].ID != "1" {
		t.Errorf("unexpected recent records: %+v", recent)
	}

	forA, err := store.GetCompletionRecords(ctx, "a", 0)
	if err != nil {
		t.Fatalf("GetCompletionRecords failed: %v", err)
	}
	if len(forA) != 2 || forA[0].ID != "2" {
		t.Errorf("unexpected records for a: %+v", forA)
	}
}

func TestDeleteAlarm_RemovesHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.AddAlarm(ctx, testAlarm("a1")); err != nil {
		t.Fatalf("AddAlarm failed: %v", err)
	}
	r := models.CompletionRecord{ID: "r1", AlarmID: "a1", Timestamp: time.Now(), Action: models.ActionSkipped}
	if err := store.Append(ctx, r); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.DeleteAlarm(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAlarm failed: %v", err)
	}
	records, err := store.GetCompletionRecords(ctx, "a1", 0)
	if err != nil {
		t.Fatalf("GetCompletionRecords failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected history to be deleted, got %d records", len(records))
	}
}

func TestSchemaVersion(t *testing.T) {
	missing := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if _, _, err := missing.SchemaVersion(); err == nil {
		t.Error("expected error for an uninitialized store")
	}

	store := setupTestStore(t)
	current, latest, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if current != latest || latest == 0 {
		t.Errorf("SchemaVersion() = (%d, %d), want an up to date non-zero version", current, latest)
	}
}
