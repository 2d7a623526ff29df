// Package platform holds the in-process wake-up trigger used by the daemon.
package platform

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/julianstephens/chime/internal/logger"
)

var ErrClosed = errors.New("timer scheduler is closed")

// Handler runs when a slot's timer expires.
type Handler func(ctx context.Context, slotID string)

// ArmedSlot describes a pending timer.
type ArmedSlot struct {
	ID string
	At time.Time
}

type timer struct {
	t   *time.Timer
	at  time.Time
	gen uint64
}

// TimerScheduler arms one time.AfterFunc per slot id. Re-arming a slot
// replaces its timer; a replaced timer that already fired is ignored.
type TimerScheduler struct {
	handler Handler
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	timers map[string]*timer
	gen    uint64
	closed bool
	wg     sync.WaitGroup
}

func NewTimerScheduler(handler Handler) *TimerScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TimerScheduler{
		handler: handler,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		timers:  make(map[string]*timer),
	}
}

func (s *TimerScheduler) Arm(_ context.Context, slotID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if old, ok := s.timers[slotID]; ok {
		old.t.Stop()
	}

	s.gen++
	gen := s.gen
	d := max(at.Sub(s.now()), 0)
	s.timers[slotID] = &timer{
		t:   time.AfterFunc(d, func() { s.fire(slotID, gen) }),
		at:  at,
		gen: gen,
	}
	logger.Debug("Armed slot", "slot", slotID, "at", at, "in", d)
	return nil
}

func (s *TimerScheduler) Cancel(_ context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[slotID]; ok {
		t.t.Stop()
		delete(s.timers, slotID)
		logger.Debug("Cancelled slot", "slot", slotID)
	}
	return nil
}

func (s *TimerScheduler) fire(slotID string, gen uint64) {
	s.mu.Lock()
	t, ok := s.timers[slotID]
	if s.closed || !ok || t.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, slotID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.handler(s.ctx, slotID)
}

// Armed lists pending slots, soonest first.
func (s *TimerScheduler) Armed() []ArmedSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]ArmedSlot, 0, len(s.timers))
	for id, t := range s.timers {
		slots = append(slots, ArmedSlot{ID: id, At: t.at})
	}
	slices.SortFunc(slots, func(a, b ArmedSlot) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return slots
}

// Close stops every timer, cancels the handler context and waits for
// handlers already running.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
