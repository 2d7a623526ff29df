package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/chime/internal/models"
)

type memStore struct {
	mu         sync.Mutex
	alarms     map[string]models.Alarm
	records    []models.CompletionRecord
	failCommit error
}

func newMemStore(alarms ...models.Alarm) *memStore {
	s := &memStore{alarms: make(map[string]models.Alarm)}
	for _, a := range alarms {
		s.alarms[a.ID] = a.Clone()
	}
	return s
}

func (s *memStore) FetchByID(_ context.Context, id string) (*models.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[id]
	if !ok {
		return nil, nil
	}
	c := a.Clone()
	return &c, nil
}

func (s *memStore) FetchAllEnabled(_ context.Context) ([]models.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alarm
	for _, a := range s.alarms {
		if a.IsEnabled {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Update(_ context.Context, a models.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alarms[a.ID]; !ok {
		return fmt.Errorf("no alarm %s", a.ID)
	}
	s.alarms[a.ID] = a.Clone()
	return nil
}

func (s *memStore) Append(_ context.Context, r models.CompletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *memStore) QueryRecent(_ context.Context, limit int) ([]models.CompletionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CompletionRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memStore) CommitTransition(_ context.Context, a models.Alarm, records ...models.CompletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCommit != nil {
		return s.failCommit
	}
	if _, ok := s.alarms[a.ID]; !ok {
		return fmt.Errorf("no alarm %s", a.ID)
	}
	s.alarms[a.ID] = a.Clone()
	s.records = append(s.records, records...)
	return nil
}

func (s *memStore) get(id string) models.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarms[id].Clone()
}

func (s *memStore) actions() []models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Action, len(s.records))
	for i, r := range s.records {
		out[i] = r.Action
	}
	return out
}

func (s *memStore) count(action models.Action) int {
	n := 0
	for _, a := range s.actions() {
		if a == action {
			n++
		}
	}
	return n
}

type recordingScheduler struct {
	mu        sync.Mutex
	armed     map[string]time.Time
	cancelled []string
	fail      bool
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{armed: make(map[string]time.Time)}
}

func (r *recordingScheduler) Arm(_ context.Context, slotID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("scheduler unavailable")
	}
	r.armed[slotID] = at
	return nil
}

func (r *recordingScheduler) Cancel(_ context.Context, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("scheduler unavailable")
	}
	delete(r.armed, slotID)
	r.cancelled = append(r.cancelled, slotID)
	return nil
}

func (r *recordingScheduler) at(slotID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.armed[slotID]
	return t, ok
}

type recordingSink struct {
	mu      sync.Mutex
	records []models.CompletionRecord
}

func (s *recordingSink) Publish(_ context.Context, r models.CompletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
