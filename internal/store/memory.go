// memory.go -- go-cache backed replay guard for single-instance deployments.
//
// Used when REDIS_URL is unset. Consumption is atomic within the process
// but not shared across instances.
package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps consumed nonces in process memory until they expire.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore returns an empty replay guard. cleanup is the janitor interval
// that evicts expired nonces.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanup)}
}

// ConsumeNonce claims key for ttl, returning ErrNonceReused if it is already held.
func (m *MemoryStore) ConsumeNonce(_ context.Context, key string, ttl time.Duration) error {
	// Add fails only when an unexpired item exists.
	if err := m.c.Add(nonceKeyPrefix+key, struct{}{}, ttl); err != nil {
		return ErrNonceReused
	}
	return nil
}

// CheckHealth always succeeds.
func (m *MemoryStore) CheckHealth(context.Context) error {
	return nil
}
