package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/chime/internal/config"
	"github.com/julianstephens/chime/internal/daemon"
	apperrors "github.com/julianstephens/chime/internal/errors"
	"github.com/julianstephens/chime/internal/keyring"
	"github.com/julianstephens/chime/internal/lifecycle"
	"github.com/julianstephens/chime/internal/models"
	"github.com/julianstephens/chime/internal/storage"
	"github.com/julianstephens/chime/internal/storage/postgres"
	"github.com/julianstephens/chime/internal/storage/sqlite"
	"github.com/julianstephens/chime/internal/utils"
)

type Context struct {
	Store  storage.Provider
	Config *config.Config

	coord  *lifecycle.Coordinator
	wiring *daemon.Wiring
}

// Coordinator builds the lifecycle coordinator on first use. CLI transitions
// arm nothing themselves; a running daemon picks up the new state on its next
// sweep.
func (c *Context) Coordinator(ctx context.Context) (*lifecycle.Coordinator, error) {
	if c.coord != nil {
		return c.coord, nil
	}
	settings, err := c.Store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	cfg := c.Config
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	w, err := daemon.Wire(ctx, cfg, settings)
	if err != nil {
		return nil, err
	}
	c.wiring = w
	c.coord = lifecycle.New(c.Store, w.Options...)
	return c.coord, nil
}

// Close releases the coordinator's backends. The store is closed by its owner.
func (c *Context) Close() {
	if c.wiring != nil {
		c.wiring.Close()
	}
}

// OpenStore picks the backend for path: a postgres:// URL selects PostgreSQL,
// anything else is a sqlite file. With useKeyring the connection string
// stored in the OS keyring wins over path.
func OpenStore(path string, useKeyring bool) (storage.Provider, error) {
	if useKeyring {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, apperrors.WithHint(err, "run 'chime keyring set <connection-string>' or turn off database.use_keyring")
			}
			return nil, err
		}
		return postgres.New(connStr), nil
	}

	if postgres.IsConnString(path) {
		if _, err := postgres.ValidateConnString(path); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, apperrors.WithHint(err, "store the connection string with 'chime keyring set', or use PGPASSWORD or .pgpass")
			}
			return nil, err
		}
		return postgres.New(path), nil
	}
	return sqlite.NewStore(utils.ExpandPath(path)), nil
}

// ResolveAlarm finds an alarm by full id or by a unique id prefix, so users
// can type the short ids printed by list.
func ResolveAlarm(ctx context.Context, store storage.Provider, ref string) (models.Alarm, error) {
	if a, err := store.GetAlarm(ctx, ref); err == nil {
		return a, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Alarm{}, err
	}

	alarms, err := store.GetAllAlarms(ctx)
	if err != nil {
		return models.Alarm{}, fmt.Errorf("failed to get alarms: %w", err)
	}
	var matches []models.Alarm
	for _, a := range alarms {
		if strings.HasPrefix(a.ID, ref) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return models.Alarm{}, fmt.Errorf("%w: %s", storage.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return models.Alarm{}, fmt.Errorf("alarm id prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// ShortID is the id prefix shown in tables.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ParseWeekdays parses a comma-separated list of weekday names or numbers (1=Sunday).
func ParseWeekdays(s string) ([]models.Weekday, error) {
	var days []models.Weekday
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		wd, err := models.ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, wd)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no weekdays given")
	}
	return days, nil
}

// ParseTimes parses a comma-separated list of HH:MM times.
func ParseTimes(s string) ([]models.TimeOfDay, error) {
	var times []models.TimeOfDay
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := models.ParseTimeOfDay(part)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", part, err)
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no times given")
	}
	return times, nil
}

// ParseInts parses a comma-separated list of integers.
func ParseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
