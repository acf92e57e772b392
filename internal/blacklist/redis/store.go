// Package redis implements the blacklist on Redis. Keys carry the guarded
// token's remaining lifetime as TTL, so expiry is managed by Redis itself and
// the reaper has nothing to sweep.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"session-lifecycle/internal/blacklist"
)

const keyPrefix = "blacklist:"

type Store struct {
	cli *redis.Client
}

// NewStore connects to Redis at url (redis://...) and verifies the connection.
func NewStore(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{cli: cli}, nil
}

// Add stores the entry under blacklist:{hash} with TTL until the guarded
// token's own expiry. Entries already past expiry are dropped silently.
func (s *Store) Add(ctx context.Context, e *blacklist.Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	val := string(e.TokenKind) + ":" + e.Reason
	if err := s.cli.Set(ctx, keyPrefix+e.TokenHash, val, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

// Contains reports whether the hash is listed.
func (s *Store) Contains(ctx context.Context, tokenHash string) (bool, error) {
	n, err := s.cli.Exists(ctx, keyPrefix+tokenHash).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist contains: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: Redis evicts entries via TTL.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}
