// Package blacklist is the revocation denylist: token hashes that must be
// rejected before their natural expiry (e.g. access tokens surrendered at
// logout). Entries carry the guarded token's own expiry so the store can shed
// them once the token would have died anyway.
package blacklist

import (
	"context"
	"time"
)

// Kind distinguishes which credential type a blacklisted hash belonged to.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Entry is one denylisted token hash.
type Entry struct {
	TokenHash string
	TokenKind Kind
	Reason    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store is the blacklist backend. Implementations: postgres.Store (durable
// table, swept by the reaper) and redis.Store (TTL-managed keys).
type Store interface {
	Add(ctx context.Context, e *Entry) error
	// Contains reports whether the hash is currently denylisted. Runs on every
	// authenticated request; implementations must keep it an indexed O(1) lookup.
	Contains(ctx context.Context, tokenHash string) (bool, error)
	// DeleteExpired removes entries whose guarded token has expired. Backends
	// that expire entries themselves return 0, nil.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Close() error
}
