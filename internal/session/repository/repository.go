package repository

import (
	"context"
	"time"

	"session-lifecycle/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// CreateEvictingOldest inserts s and, in the same transaction, deactivates
	// the least recently active sessions of the user so that at most maxPerUser
	// remain active. Returns the IDs of evicted sessions.
	CreateEvictingOldest(ctx context.Context, s *domain.Session, maxPerUser int) (evicted []string, err error)
	Deactivate(ctx context.Context, id string) error
	// DeactivateAllByUser deactivates every active session of the user except
	// exceptID (pass "" to deactivate all). Returns the affected session IDs.
	DeactivateAllByUser(ctx context.Context, userID, exceptID string) ([]string, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes sessions whose expiry has passed. Used by the reaper.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
