package platform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T) (*TimerScheduler, chan string) {
	t.Helper()
	fired := make(chan string, 16)
	s := NewTimerScheduler(func(_ context.Context, slotID string) { fired <- slotID })
	t.Cleanup(s.Close)
	return s, fired
}

func expectFire(t *testing.T, fired chan string, want string) {
	t.Helper()
	select {
	case got := <-fired:
		if got != want {
			t.Errorf("fired %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func expectQuiet(t *testing.T, fired chan string, d time.Duration) {
	t.Helper()
	select {
	case got := <-fired:
		t.Errorf("unexpected fire of %q", got)
	case <-time.After(d):
	}
}

func TestArmFires(t *testing.T) {
	s, fired := collect(t)
	ctx := context.Background()

	if err := s.Arm(ctx, "a/alarm/1", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	expectFire(t, fired, "a/alarm/1")

	if len(s.Armed()) != 0 {
		t.Error("fired slot should no longer be armed")
	}
}

func TestArmInPastFiresImmediately(t *testing.T) {
	s, fired := collect(t)

	if err := s.Arm(context.Background(), "a/snooze", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	expectFire(t, fired, "a/snooze")
}

func TestRearmReplaces(t *testing.T) {
	s, fired := collect(t)
	ctx := context.Background()

	if err := s.Arm(ctx, "a/alarm/1", time.Now().Add(20*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := s.Arm(ctx, "a/alarm/1", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, fired, 100*time.Millisecond)

	armed := s.Armed()
	if len(armed) != 1 || armed[0].ID != "a/alarm/1" {
		t.Errorf("unexpected armed slots: %+v", armed)
	}
}

func TestCancel(t *testing.T) {
	s, fired := collect(t)
	ctx := context.Background()

	if err := s.Arm(ctx, "a/followup/1", time.Now().Add(20*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel(ctx, "a/followup/1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if err := s.Cancel(ctx, "never-armed"); err != nil {
		t.Errorf("cancelling unknown slot should not fail: %v", err)
	}
	expectQuiet(t, fired, 100*time.Millisecond)
}

func TestArmedOrder(t *testing.T) {
	s, _ := collect(t)
	ctx := context.Background()
	base := time.Now().Add(time.Hour)

	s.Arm(ctx, "c", base.Add(2*time.Minute))
	s.Arm(ctx, "b", base)
	s.Arm(ctx, "a", base)

	armed := s.Armed()
	want := []string{"a", "b", "c"}
	if len(armed) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(armed))
	}
	for i, id := range want {
		if armed[i].ID != id {
			t.Errorf("armed[%d] = %s, want %s", i, armed[i].ID, id)
		}
	}
}

func TestHandlerCanRearm(t *testing.T) {
	var s *TimerScheduler
	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	s = NewTimerScheduler(func(ctx context.Context, slotID string) {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n < 3 {
			s.Arm(ctx, slotID, time.Now())
			return
		}
		close(done)
	})
	defer s.Close()

	s.Arm(context.Background(), "loop", time.Now())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not re-arm itself")
	}
}

func TestClose(t *testing.T) {
	s, fired := collect(t)
	ctx := context.Background()

	s.Arm(ctx, "x", time.Now().Add(20*time.Millisecond))
	s.Close()
	s.Close()

	if err := s.Arm(ctx, "y", time.Now()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	expectQuiet(t, fired, 100*time.Millisecond)
}
