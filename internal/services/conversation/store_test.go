package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalabs/vista/internal/catalog"
	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
)

// mockArchive is an in-memory ConversationArchive for tests.
type mockArchive struct {
	mu     sync.Mutex
	states map[string]*models.ConversationState
}

func newMockArchive() *mockArchive {
	return &mockArchive{states: make(map[string]*models.ConversationState)}
}

func (m *mockArchive) Save(_ context.Context, state *models.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Key()] = state.Clone()
	return nil
}

func (m *mockArchive) Get(_ context.Context, key string) (*models.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[key]
	if !ok {
		return nil, fmt.Errorf("conversation '%s' not found", key)
	}
	return state.Clone(), nil
}

func (m *mockArchive) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *mockArchive) List(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key, state := range m.states {
		if state.UserID == userID {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *mockArchive) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[key]
	return ok
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return NewStore(common.NewSilentLogger(), common.NewDefaultConfig(), opts...)
}

func TestGetLazyCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state, err := store.Get(ctx, "user-1", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", state.UserID)
	assert.Equal(t, "conv-1", state.ConversationID)
	assert.NotNil(t, state.ExtractedFields)
	assert.Empty(t, state.Messages)
	assert.Equal(t, 1, store.Len())

	// The returned state is a copy; mutating it must not leak into the store.
	state.ExtractedFields["symbols"] = []string{"SPY"}
	fresh, err := store.Get(ctx, "user-1", "conv-1")
	require.NoError(t, err)
	assert.Empty(t, fresh.ExtractedFields)
}

func TestGetRequiresUserID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "", "conv-1")
	assert.Error(t, err)
}

func TestEmptyConversationIDDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetLastIntent(ctx, "user-1", "", "GET_RANKINGS"))

	state, err := store.Get(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "GET_RANKINGS", state.LastIntent)
	assert.Equal(t, 1, store.Len())
}

func TestAddMessageHistoryLimit(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Assistant.HistoryLimit = 5
	store := NewStore(common.NewSilentLogger(), config)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		msg := models.ChatMessage{Role: models.RoleUser, Content: fmt.Sprintf("message %d", i)}
		require.NoError(t, store.AddMessage(ctx, "user-1", "conv-1", msg))
	}

	state, err := store.Get(ctx, "user-1", "conv-1")
	require.NoError(t, err)
	require.Len(t, state.Messages, 5)
	// Oldest messages are dropped first.
	assert.Equal(t, "message 3", state.Messages[0].Content)
	assert.Equal(t, "message 7", state.Messages[4].Content)
}

func TestMergeFieldsOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MergeFields(ctx, "user-1", "conv-1", map[string]any{
		"symbols": []string{"SPY"},
		"period":  "1y",
	}))
	require.NoError(t, store.MergeFields(ctx, "user-1", "conv-1", map[string]any{
		"symbols": []string{"SPY", "VTI"},
	}))

	state, err := store.Get(ctx, "user-1", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "VTI"}, state.ExtractedFields["symbols"])
	assert.Equal(t, "1y", state.ExtractedFields["period"])
}

func TestCanExecute(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	intent, ok := catalog.IntentByName(catalog.IntentCreatePortfolio)
	require.True(t, ok)

	// Nothing accumulated yet.
	result, err := store.CanExecute(ctx, "user-1", "conv-1", intent)
	require.NoError(t, err)
	assert.False(t, result.CanExecute)
	assert.Len(t, result.MissingFields, 4)

	// Fields arrive across turns.
	require.NoError(t, store.MergeFields(ctx, "user-1", "conv-1", map[string]any{
		"goal": "retirement", "risk_profile": "moderate",
	}))
	result, err = store.CanExecute(ctx, "user-1", "conv-1", intent)
	require.NoError(t, err)
	assert.False(t, result.CanExecute)
	assert.ElementsMatch(t, []string{"amount", "currency"}, result.MissingFields)

	require.NoError(t, store.MergeFields(ctx, "user-1", "conv-1", map[string]any{
		"amount": 10000.0, "currency": "BRL",
	}))
	result, err = store.CanExecute(ctx, "user-1", "conv-1", intent)
	require.NoError(t, err)
	assert.True(t, result.CanExecute)
	assert.Empty(t, result.MissingFields)
	assert.Equal(t, "BRL", result.Data["currency"])
}

func TestCanExecuteEmptyValuesAreMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	intent, ok := catalog.IntentByName(catalog.IntentCompareETFs)
	require.True(t, ok)

	require.NoError(t, store.MergeFields(ctx, "user-1", "conv-1", map[string]any{
		"symbols": []string{},
	}))

	result, err := store.CanExecute(ctx, "user-1", "conv-1", intent)
	require.NoError(t, err)
	assert.False(t, result.CanExecute)
	assert.Equal(t, []string{"symbols"}, result.MissingFields)
}

func TestSweepEvictsIdle(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	archive := newMockArchive()
	store := newTestStore(t, WithClock(clock), WithArchive(archive))
	ctx := context.Background()

	require.NoError(t, store.SetLastIntent(ctx, "user-1", "old", "GET_RANKINGS"))

	// Time passes; a second conversation stays fresh.
	now = now.Add(25 * time.Hour)
	require.NoError(t, store.SetLastIntent(ctx, "user-1", "fresh", "GET_MARKET_NEWS"))

	evicted := store.Sweep(ctx)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())

	// The idle conversation was archived on the way out.
	assert.True(t, archive.has("user-1_old"))
	assert.False(t, archive.has("user-1_fresh"))
}

func TestSweepNoopWhenFresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetLastIntent(ctx, "user-1", "conv-1", "GET_RANKINGS"))
	assert.Equal(t, 0, store.Sweep(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestGetRestoresFromArchive(t *testing.T) {
	archive := newMockArchive()
	store := newTestStore(t, WithArchive(archive))
	ctx := context.Background()

	require.NoError(t, archive.Save(ctx, &models.ConversationState{
		UserID:          "user-1",
		ConversationID:  "conv-1",
		LastIntent:      "COMPARE_ETFS",
		ExtractedFields: map[string]any{"symbols": []string{"SPY", "VTI"}},
	}))

	state, err := store.Get(ctx, "user-1", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "COMPARE_ETFS", state.LastIntent)
	assert.Equal(t, []string{"SPY", "VTI"}, state.ExtractedFields["symbols"])
}

func TestCapacityEvictsLeastRecentlyActive(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Assistant.ContextMaxEntries = 2
	now := time.Now()
	archive := newMockArchive()
	store := NewStore(common.NewSilentLogger(), config, WithClock(func() time.Time { return now }), WithArchive(archive))
	ctx := context.Background()

	require.NoError(t, store.SetLastIntent(ctx, "user-1", "a", "GET_RANKINGS"))
	now = now.Add(time.Minute)
	require.NoError(t, store.SetLastIntent(ctx, "user-1", "b", "GET_RANKINGS"))
	now = now.Add(time.Minute)
	require.NoError(t, store.SetLastIntent(ctx, "user-1", "c", "GET_RANKINGS"))

	assert.Equal(t, 2, store.Len())
	// "a" was least recently active and went to the archive.
	assert.True(t, archive.has("user-1_a"))
}

func TestDelete(t *testing.T) {
	archive := newMockArchive()
	store := newTestStore(t, WithArchive(archive))
	ctx := context.Background()

	require.NoError(t, store.SetLastIntent(ctx, "user-1", "conv-1", "GET_RANKINGS"))
	store.Sweep(ctx) // nothing idle, but exercise the path
	require.NoError(t, archive.Save(ctx, &models.ConversationState{UserID: "user-1", ConversationID: "conv-1"}))

	require.NoError(t, store.Delete(ctx, "user-1", "conv-1"))
	assert.Equal(t, 0, store.Len())
	assert.False(t, archive.has("user-1_conv-1"))
}

func TestConcurrentTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv := fmt.Sprintf("conv-%d", i%4)
			_ = store.AddMessage(ctx, "user-1", conv, models.ChatMessage{Role: models.RoleUser, Content: "hello"})
			_ = store.MergeFields(ctx, "user-1", conv, map[string]any{"period": "1y"})
			_, _ = store.Get(ctx, "user-1", conv)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, store.Len())
	state, err := store.Get(ctx, "user-1", "conv-0")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 5)
}