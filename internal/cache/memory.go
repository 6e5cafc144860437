package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

type entry struct {
	payload   []byte
	createdAt time.Time
	ttl       time.Duration
	hits      int64
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.createdAt.Add(e.ttl))
}

// Memory is the in-process ResponseCache. Eviction is pure TTL: lazily on
// read, in bulk when a write pushes the entry count over the threshold, and
// via the background sweeper the app runs on a timer.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	clock      func() time.Time
	logger     *common.Logger

	hits     int64
	misses   int64
	evicted  int64
	cleanups int64
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries sets the sweep trigger threshold.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithClock injects a clock, for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = logger
	}
}

// NewMemory creates an in-memory response cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:    make(map[string]*entry),
		maxEntries: 1000,
		clock:      time.Now,
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, opType string, params any) ([]byte, bool) {
	key := Key(opType, params)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}

	if e.expired(m.clock()) {
		delete(m.entries, key)
		m.evicted++
		m.misses++
		return nil, false
	}

	e.hits++
	m.hits++
	return e.payload, true
}

func (m *Memory) Set(_ context.Context, opType string, params any, payload []byte, ttl ...time.Duration) {
	key := Key(opType, params)

	d := TTLFor(opType)
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &entry{
		payload:   payload,
		createdAt: m.clock(),
		ttl:       d,
	}

	if len(m.entries) > m.maxEntries {
		removed := m.cleanupLocked()
		m.logger.Debug().Int("removed", removed).Int("entries", len(m.entries)).Msg("Cache size threshold sweep")
	}
}

func (m *Memory) Delete(_ context.Context, opType string, params any) {
	key := Key(opType, params)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
}

func (m *Memory) Cleanup(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked()
}

// cleanupLocked removes all expired entries. Caller holds mu.
func (m *Memory) cleanupLocked() int {
	now := m.clock()
	removed := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	m.evicted += int64(removed)
	m.cleanups++
	return removed
}

func (m *Memory) Stats(_ context.Context) *models.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.CacheStats{
		Backend:  "memory",
		Entries:  len(m.entries),
		Hits:     m.hits,
		Misses:   m.misses,
		Evicted:  m.evicted,
		Cleanups: m.cleanups,
	}
}

func (m *Memory) Close() error {
	return nil
}

// HitCount returns the per-entry hit counter, for tests and diagnostics.
func (m *Memory) HitCount(opType string, params any) int64 {
	key := Key(opType, params)
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return e.hits
	}
	return 0
}

// GetOrFetch returns the cached payload for (opType, params) or runs fetch,
// caching its result. The bool reports whether the value came from cache.
func GetOrFetch(ctx context.Context, c interfaces.ResponseCache, opType string, params any, ttl time.Duration, fetch func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if payload, ok := c.Get(ctx, opType, params); ok {
		return payload, true, nil
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	c.Set(ctx, opType, params, payload, ttl)
	return payload, false, nil
}

// Ensure Memory implements ResponseCache
var _ interfaces.ResponseCache = (*Memory)(nil)
