package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that have already been applied,
// so a POS terminal retrying a commit after a network hiccup cannot deduct
// stock twice.
// The caller claims the key with MarkProcessed before doing the work, so two
// in-flight requests with the same key can never both proceed, and releases
// the claim with Release if the work fails so a later retry is accepted.
type IdempotencyStore interface {
	// MarkProcessed atomically marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already there.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a claimed key so the same key is accepted again
	Release(ctx context.Context, key string) error

	// Close releases the store's resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered. After it expires the
	// same key is accepted again. Default: 24 hours.
	TTL time.Duration

	// Enabled toggles idempotency checking. Default: true.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
