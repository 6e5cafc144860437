package interfaces

import (
	"context"
	"time"

	"github.com/vistalabs/vista/internal/models"
)

// ResponseCache is a keyed payload cache with per-entry TTL. Keys are derived
// from an operation type plus a canonically sorted JSON encoding of the
// parameters, so parameter order never changes the key. Expired entries are
// deleted lazily on read and in bulk by Cleanup.
type ResponseCache interface {
	// Get returns the cached payload for (opType, params), or false on miss
	// or expiry. A hit increments the entry's hit counter.
	Get(ctx context.Context, opType string, params any) ([]byte, bool)

	// Set stores payload under (opType, params). When ttl is omitted the
	// per-type default applies.
	Set(ctx context.Context, opType string, params any, payload []byte, ttl ...time.Duration)

	// Delete removes a single entry.
	Delete(ctx context.Context, opType string, params any)

	// Clear removes all entries.
	Clear(ctx context.Context)

	// Cleanup removes every expired entry and returns the number removed.
	Cleanup(ctx context.Context) int

	// Stats returns hit/miss counters and the live entry count.
	Stats(ctx context.Context) *models.CacheStats

	// Close releases backend resources.
	Close() error
}

// KeyValueStorage is the internal configuration KV area.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ConversationArchive persists conversation states so history survives
// process restarts and context eviction.
type ConversationArchive interface {
	Save(ctx context.Context, state *models.ConversationState) error
	Get(ctx context.Context, key string) (*models.ConversationState, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, userID string) ([]string, error)
}

// StorageManager coordinates the persistent storage areas.
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	ConversationArchive() ConversationArchive
	Close() error
}
