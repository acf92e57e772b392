package repository

import (
	"context"
	"errors"
	"time"

	"session-lifecycle/internal/token/domain"
)

// ErrRotationConflict is returned by Rotate when the old token is no longer
// unrevoked at commit time: a concurrent rotation won the race, which the
// caller must treat as a replay, never as success.
var ErrRotationConflict = errors.New("refresh token rotation conflict")

// Repository defines persistence for refresh tokens.
type Repository interface {
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Create(ctx context.Context, t *domain.RefreshToken) error
	// Rotate inserts newToken and revokes the token identified by oldHash in a
	// single transaction. The revocation is conditional on revoked=false;
	// zero rows affected aborts the transaction with ErrRotationConflict.
	Rotate(ctx context.Context, oldHash string, usedAt time.Time, newToken *domain.RefreshToken) error
	RevokeAllBySession(ctx context.Context, sessionID string) error
	DeleteByHash(ctx context.Context, tokenHash string) error
	// DeleteExpired removes tokens whose expiry has passed. Used by the reaper.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
