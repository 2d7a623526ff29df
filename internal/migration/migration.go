// Package migration applies the embedded NNN_name.sql schema files in order
// and tracks the applied version in a single-row schema_version table.
package migration

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/chime/internal/constants"
)

var (
	ErrSchemaBehind = errors.New("database schema is behind")
	ErrSchemaNewer  = errors.New("database schema is newer than this build")
)

// advisoryLockKey serializes migrations across processes sharing a postgres
// database. The value is arbitrary but fixed.
const advisoryLockKey = 0x6368696d65 // "chime"

type Migration struct {
	Version int
	Name    string
	SQL     string
}

func (m Migration) String() string { return fmt.Sprintf("%03d_%s", m.Version, m.Name) }

type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Status describes where a database stands against the embedded migrations.
type Status struct {
	Current   int
	Latest    int
	AppliedAt time.Time // zero for a fresh database
	Pending   []Migration
}

// Check reports ErrSchemaBehind or ErrSchemaNewer when the versions differ.
func (s Status) Check() error {
	switch {
	case s.Current > s.Latest:
		return fmt.Errorf("%w: version %d, this build supports %d, upgrade %s", ErrSchemaNewer, s.Current, s.Latest, constants.AppName)
	case s.Current < s.Latest:
		return fmt.Errorf("%w: version %d of %d, run '%s migrate'", ErrSchemaBehind, s.Current, s.Latest, constants.AppName)
	}
	return nil
}

type Runner struct {
	db      *sql.DB
	fs      fs.FS
	dialect Dialect
}

func NewRunner(db *sql.DB, migrationFS fs.FS, dialect Dialect) *Runner {
	return &Runner{db: db, fs: migrationFS, dialect: dialect}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (r *Runner) bind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *Runner) ensureVersionTable(q querier) error {
	_, err := q.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_version table: %w", err)
	}
	return nil
}

func (r *Runner) readVersion(q querier) (int, time.Time, error) {
	var (
		version int
		applied string
	)
	err := q.QueryRow("SELECT version, applied_at FROM schema_version WHERE id = 1").Scan(&version, &applied)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	at, err := time.Parse(time.RFC3339, applied)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid schema_version.applied_at %q: %w", applied, err)
	}
	return version, at, nil
}

func (r *Runner) writeVersion(q querier, version int) error {
	_, err := q.Exec(r.bind(`
		INSERT INTO schema_version (id, version, applied_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET version = excluded.version, applied_at = excluded.applied_at
	`), version, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}

// GetCurrentVersion returns the applied schema version, 0 for a fresh database.
func (r *Runner) GetCurrentVersion() (int, error) {
	if err := r.ensureVersionTable(r.db); err != nil {
		return 0, err
	}
	version, _, err := r.readVersion(r.db)
	return version, err
}

// SetVersion records version without running any migration.
func (r *Runner) SetVersion(version int) error {
	if err := r.ensureVersionTable(r.db); err != nil {
		return err
	}
	return r.writeVersion(r.db, version)
}

// ReadMigrationFiles parses the *.sql files of the runner's FS, sorted by version.
func (r *Runner) ReadMigrationFiles() ([]Migration, error) {
	names, err := fs.Glob(r.fs, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("invalid migration filename %s (expected NNN_name.sql)", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid version number in %s: %w", name, err)
		}
		if version < 1 {
			return nil, fmt.Errorf("invalid version number in %s: must be at least 1", name)
		}
		content, err := fs.ReadFile(r.fs, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, path.Ext(rest)),
			SQL:     string(content),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// Status compares the database against the migration files.
func (r *Runner) Status() (Status, error) {
	if err := r.ensureVersionTable(r.db); err != nil {
		return Status{}, err
	}
	current, appliedAt, err := r.readVersion(r.db)
	if err != nil {
		return Status{}, err
	}
	migrations, err := r.ReadMigrationFiles()
	if err != nil {
		return Status{}, err
	}

	st := Status{Current: current, AppliedAt: appliedAt}
	if len(migrations) > 0 {
		st.Latest = migrations[len(migrations)-1].Version
	}
	for _, m := range migrations {
		if m.Version > current {
			st.Pending = append(st.Pending, m)
		}
	}
	return st, nil
}

// ApplyMigrations runs every pending migration, each in its own transaction
// together with the version bump, and returns how many ran. A migration some
// other process applied in the meantime is skipped.
func (r *Runner) ApplyMigrations(logFn func(string)) (int, error) {
	if logFn == nil {
		logFn = func(string) {}
	}

	st, err := r.Status()
	if err != nil {
		return 0, err
	}
	if errors.Is(st.Check(), ErrSchemaNewer) {
		return 0, st.Check()
	}
	if len(st.Pending) == 0 {
		logFn(fmt.Sprintf("Schema is up to date (version %d)", st.Current))
		return 0, nil
	}

	logFn(fmt.Sprintf("Migrating schema from version %d to %d", st.Current, st.Latest))
	start := time.Now()
	applied := 0
	for _, m := range st.Pending {
		ran, err := r.apply(m)
		if err != nil {
			return applied, err
		}
		if ran {
			applied++
			logFn("✓ " + m.String())
		}
	}
	logFn(fmt.Sprintf("Applied %d migration(s) in %v", applied, time.Since(start).Round(time.Millisecond)))
	return applied, nil
}

func (r *Runner) apply(m Migration) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin migration %s: %w", m, err)
	}
	defer tx.Rollback()

	if r.dialect == DialectPostgres {
		if _, err := tx.Exec("SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
			return false, fmt.Errorf("failed to lock for migration %s: %w", m, err)
		}
	}
	current, _, err := r.readVersion(tx)
	if err != nil {
		return false, err
	}
	if current >= m.Version {
		return false, nil
	}

	if _, err := tx.Exec(m.SQL); err != nil {
		return false, fmt.Errorf("failed to apply migration %s: %w", m, err)
	}
	if err := r.writeVersion(tx, m.Version); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", m, err)
	}
	return true, nil
}

// ValidateVersion fails unless the database is at exactly the latest version.
func (r *Runner) ValidateVersion() error {
	st, err := r.Status()
	if err != nil {
		return err
	}
	return st.Check()
}
