// Package reaper deletes rows whose expiry has passed: sessions, refresh
// tokens, and blacklist entries. Expiry checks are enforced at read time
// everywhere else, so the reaper is pure garbage collection and is safe to run
// at any frequency, including concurrently with live traffic.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// sweepTimeout bounds one periodic sweep so a stalled store cannot hold the
// loop past its next tick indefinitely.
const sweepTimeout = time.Minute

// ExpiryStore is any store that can shed rows dead at the given time.
type ExpiryStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Result reports how many rows one sweep removed per store.
type Result struct {
	Sessions  int64
	Tokens    int64
	Blacklist int64
}

// Reaper sweeps the three expiring stores on a fixed interval.
type Reaper struct {
	sessions  ExpiryStore
	tokens    ExpiryStore
	blacklist ExpiryStore
	interval  time.Duration

	nowF func() time.Time
}

// New returns a Reaper over the given stores. Any store may be nil and is
// then skipped, e.g. a Redis blacklist that expires its own keys.
func New(sessions, tokens, blacklist ExpiryStore, interval time.Duration) *Reaper {
	return &Reaper{
		sessions:  sessions,
		tokens:    tokens,
		blacklist: blacklist,
		interval:  interval,
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one pass over all stores. A failing store does not stop the
// sweep of the others; the joined error is returned alongside the counts of
// what did get removed.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	now := r.nowF()
	var res Result
	var errs []error

	if r.sessions != nil {
		n, err := r.sessions.DeleteExpired(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("sessions: %w", err))
		}
		res.Sessions = n
	}
	if r.tokens != nil {
		n, err := r.tokens.DeleteExpired(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh tokens: %w", err))
		}
		res.Tokens = n
	}
	if r.blacklist != nil {
		n, err := r.blacklist.DeleteExpired(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("blacklist: %w", err))
		}
		res.Blacklist = n
	}
	return res, errors.Join(errs...)
}

// Run sweeps immediately, then on every tick until the context is canceled.
// Each sweep runs under its own deadline derived from ctx.
func (r *Reaper) Run(ctx context.Context) {
	r.sweepOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Reaper) sweepOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	res, err := r.Sweep(sweepCtx)
	if err != nil {
		log.Printf("reaper: sweep: %v", err)
	}
	if res.Sessions+res.Tokens+res.Blacklist > 0 {
		log.Printf("reaper: removed %d sessions, %d tokens, %d blacklist entries", res.Sessions, res.Tokens, res.Blacklist)
	}
}
