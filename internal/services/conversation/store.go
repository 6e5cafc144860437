// Package conversation implements the in-memory conversation store. States
// are created lazily, mutated only through the store, serialized per key, and
// evicted to the archive after the configured idle window.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

type entry struct {
	mu    sync.Mutex
	state *models.ConversationState
}

// Store is the in-memory ConversationStore. A store-level mutex guards the
// key map; each conversation carries its own lock so turns for the same key
// serialize without blocking unrelated conversations.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	idleTTL      time.Duration
	maxEntries   int
	historyLimit int

	archive interfaces.ConversationArchive
	logger  *common.Logger
	now     func() time.Time

	evicted int64
}

// Option configures a Store.
type Option func(*Store)

// WithArchive sets the durable archive used on eviction and restore.
func WithArchive(archive interfaces.ConversationArchive) Option {
	return func(s *Store) {
		s.archive = archive
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a conversation store tuned by the assistant config.
func NewStore(logger *common.Logger, config *common.Config, opts ...Option) *Store {
	historyLimit := config.Assistant.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}
	maxEntries := config.Assistant.ContextMaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	s := &Store{
		entries:      make(map[string]*entry),
		idleTTL:      config.Assistant.GetContextIdleTTL(),
		maxEntries:   maxEntries,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns a copy of the state for (userID, conversationID), lazily
// creating it. When an archive is configured, an evicted conversation is
// restored from it transparently.
func (s *Store) Get(ctx context.Context, userID, conversationID string) (*models.ConversationState, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	e := s.acquire(ctx, userID, conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Clone(), nil
}

// AddMessage appends a turn to the history, trimming to the history limit.
func (s *Store) AddMessage(ctx context.Context, userID, conversationID string, msg models.ChatMessage) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	e := s.acquire(ctx, userID, conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Messages = append(e.state.Messages, msg)
	if over := len(e.state.Messages) - s.historyLimit; over > 0 {
		e.state.Messages = e.state.Messages[over:]
	}
	e.state.LastActivity = s.now()
	return nil
}

// MergeFields merges extracted fields into the accumulated map. Per-key
// overwrite only.
func (s *Store) MergeFields(ctx context.Context, userID, conversationID string, fields map[string]any) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if len(fields) == 0 {
		return nil
	}

	e := s.acquire(ctx, userID, conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	for k, v := range fields {
		e.state.ExtractedFields[k] = v
	}
	e.state.LastActivity = s.now()
	return nil
}

// SetLastIntent records the most recent classified intent.
func (s *Store) SetLastIntent(ctx context.Context, userID, conversationID, intent string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	e := s.acquire(ctx, userID, conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.LastIntent = intent
	e.state.LastActivity = s.now()
	return nil
}

// CanExecute checks the intent's required fields against the accumulated map.
func (s *Store) CanExecute(ctx context.Context, userID, conversationID string, intent *models.Intent) (*models.CanExecuteResult, error) {
	if intent == nil {
		return nil, fmt.Errorf("intent is required")
	}

	state, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, field := range intent.RequiredFields {
		if !fieldPresent(state.ExtractedFields[field]) {
			missing = append(missing, field)
		}
	}

	return &models.CanExecuteResult{
		CanExecute:    len(missing) == 0,
		MissingFields: missing,
		Data:          state.ExtractedFields,
	}, nil
}

// Delete removes a conversation from the store and, when configured, from
// the archive.
func (s *Store) Delete(ctx context.Context, userID, conversationID string) error {
	key := models.ConversationKey(userID, conversationID)

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete archived conversation")
		}
	}
	return nil
}

// Sweep evicts states idle past the configured window, archiving each one,
// and returns the number evicted.
func (s *Store) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var stale []*entry
	for key, e := range s.entries {
		e.mu.Lock()
		idle := e.state.LastActivity.Before(cutoff)
		e.mu.Unlock()
		if idle {
			stale = append(stale, e)
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		s.archiveEntry(ctx, e)
	}

	if len(stale) > 0 {
		s.mu.Lock()
		s.evicted += int64(len(stale))
		s.mu.Unlock()
		s.logger.Info().Int("evicted", len(stale)).Msg("Conversation sweep complete")
	}
	return len(stale)
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// acquire finds or creates the entry for a conversation key. Creation
// restores from the archive when possible and enforces the capacity bound by
// evicting the least-recently-active conversation.
func (s *Store) acquire(ctx context.Context, userID, conversationID string) *entry {
	key := models.ConversationKey(userID, conversationID)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return e
	}
	// Evict before inserting so the bound holds.
	victim := s.evictOldestLocked()
	e := &entry{state: s.restoreOrCreate(ctx, key, userID, conversationID)}
	s.entries[key] = e
	s.mu.Unlock()

	if victim != nil {
		s.archiveEntry(ctx, victim)
		s.mu.Lock()
		s.evicted++
		s.mu.Unlock()
	}
	return e
}

// evictOldestLocked removes the least-recently-active entry when the store is
// at capacity. Caller holds s.mu.
func (s *Store) evictOldestLocked() *entry {
	if len(s.entries) < s.maxEntries {
		return nil
	}

	var oldestKey string
	var oldest *entry
	var oldestAt time.Time
	for key, e := range s.entries {
		e.mu.Lock()
		at := e.state.LastActivity
		e.mu.Unlock()
		if oldest == nil || at.Before(oldestAt) {
			oldestKey = key
			oldest = e
			oldestAt = at
		}
	}
	if oldest == nil {
		return nil
	}

	delete(s.entries, oldestKey)
	s.logger.Debug().Str("key", oldestKey).Msg("Conversation evicted at capacity")
	return oldest
}

func (s *Store) restoreOrCreate(ctx context.Context, key, userID, conversationID string) *models.ConversationState {
	if s.archive != nil {
		if state, err := s.archive.Get(ctx, key); err == nil && state != nil {
			if state.ExtractedFields == nil {
				state.ExtractedFields = make(map[string]any)
			}
			state.LastActivity = s.now()
			s.logger.Debug().Str("key", key).Msg("Conversation restored from archive")
			return state
		}
	}

	now := s.now()
	return &models.ConversationState{
		UserID:          userID,
		ConversationID:  conversationID,
		ExtractedFields: make(map[string]any),
		CreatedAt:       now,
		LastActivity:    now,
	}
}

func (s *Store) archiveEntry(ctx context.Context, e *entry) {
	if s.archive == nil {
		return
	}
	e.mu.Lock()
	state := e.state.Clone()
	e.mu.Unlock()

	if err := s.archive.Save(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("key", state.Key()).Msg("Failed to archive conversation")
	}
}

// fieldPresent reports whether a field value counts as provided.
func fieldPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

var _ interfaces.ConversationStore = (*Store)(nil)
