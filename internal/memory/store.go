package memory

import (
	"context"
	"time"
)

// Store is the keyed blob store backing conversation memory. Values expire
// after their TTL; a zero TTL means no expiration. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the value for key. The second return is false when the key
	// is absent or expired; absence is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL, replacing any previous
	// value and resetting the expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
