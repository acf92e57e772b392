package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu      sync.Mutex
	expiry  []time.Time
	failErr error
	calls   int
}

func (s *fakeStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failErr != nil {
		return 0, s.failErr
	}
	var kept []time.Time
	var removed int64
	for _, exp := range s.expiry {
		if now.After(exp) {
			removed++
			continue
		}
		kept = append(kept, exp)
	}
	s.expiry = kept
	return removed, nil
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sessions := &fakeStore{expiry: []time.Time{now.Add(-time.Hour), now.Add(time.Hour)}}
	tokens := &fakeStore{expiry: []time.Time{now.Add(-time.Minute)}}
	denylist := &fakeStore{expiry: []time.Time{now.Add(time.Minute)}}

	r := New(sessions, tokens, denylist, time.Hour)
	r.nowF = func() time.Time { return now }

	res, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Sessions != 1 || res.Tokens != 1 || res.Blacklist != 0 {
		t.Errorf("result = %+v, want 1/1/0", res)
	}
	if len(sessions.expiry) != 1 {
		t.Errorf("unexpired session should survive, %d left", len(sessions.expiry))
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sessions := &fakeStore{expiry: []time.Time{now.Add(-time.Hour), now.Add(-2 * time.Hour)}}

	r := New(sessions, nil, nil, time.Hour)
	r.nowF = func() time.Time { return now }
	ctx := context.Background()

	first, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.Sessions != 2 {
		t.Errorf("first sweep removed %d, want 2", first.Sessions)
	}
	second, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.Sessions != 0 {
		t.Errorf("second sweep removed %d, want 0", second.Sessions)
	}
}

func TestSweepContinuesPastFailingStore(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	boom := errors.New("connection refused")
	sessions := &fakeStore{failErr: boom}
	tokens := &fakeStore{expiry: []time.Time{now.Add(-time.Minute)}}

	r := New(sessions, tokens, nil, time.Hour)
	r.nowF = func() time.Time { return now }

	res, err := r.Sweep(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("sweep error = %v, want wrapped store error", err)
	}
	if res.Tokens != 1 {
		t.Errorf("healthy store should still be swept, removed %d", res.Tokens)
	}
}

type deadlineStore struct {
	mu          sync.Mutex
	hadDeadline bool
	called      chan struct{}
}

func (s *deadlineStore) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	s.mu.Lock()
	_, s.hadDeadline = ctx.Deadline()
	s.mu.Unlock()
	select {
	case s.called <- struct{}{}:
	default:
	}
	return 0, nil
}

func TestRunBoundsEachSweep(t *testing.T) {
	store := &deadlineStore{called: make(chan struct{}, 1)}
	r := New(store, nil, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-store.called:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if !store.hadDeadline {
		t.Error("each sweep should run under its own deadline")
	}
}

func TestRunSweepsOnStartAndStopsOnCancel(t *testing.T) {
	sessions := &fakeStore{}
	r := New(sessions, nil, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		sessions.mu.Lock()
		calls := sessions.calls
		sessions.mu.Unlock()
		if calls >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial sweep never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
