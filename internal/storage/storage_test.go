package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Storage.Path = t.TempDir()

	manager, err := NewManager(common.NewSilentLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return manager
}

func TestKVStorageRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	kv := manager.KeyValueStorage()

	require.NoError(t, kv.Set(ctx, "openai_api_key", "sk-test-123"))

	value, err := kv.Get(ctx, "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", value)

	// Overwrite
	require.NoError(t, kv.Set(ctx, "openai_api_key", "sk-test-456"))
	value, err = kv.Get(ctx, "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-456", value)
}

func TestKVStorageGetMissing(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.KeyValueStorage().Get(context.Background(), "missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestKVStorageDelete(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	kv := manager.KeyValueStorage()

	require.NoError(t, kv.Set(ctx, "gemini_api_key", "value"))
	require.NoError(t, kv.Delete(ctx, "gemini_api_key"))

	_, err := kv.Get(ctx, "gemini_api_key")
	assert.Error(t, err)

	// Deleting a missing key is not an error
	assert.NoError(t, kv.Delete(ctx, "gemini_api_key"))
}

func TestConversationArchiveRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	archive := manager.ConversationArchive()

	state := &models.ConversationState{
		UserID:         "user-1",
		ConversationID: "conv-1",
		LastIntent:     "COMPARE_ETFS",
		ExtractedFields: map[string]any{
			"symbols": []string{"SPY", "VTI"},
			"period":  "1y",
		},
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "Compare SPY e VTI", Timestamp: time.Now()},
		},
		LastActivity: time.Now(),
	}

	require.NoError(t, archive.Save(ctx, state))

	restored, err := archive.Get(ctx, state.Key())
	require.NoError(t, err)
	assert.Equal(t, "user-1", restored.UserID)
	assert.Equal(t, "COMPARE_ETFS", restored.LastIntent)
	assert.Len(t, restored.Messages, 1)
	assert.Equal(t, "Compare SPY e VTI", restored.Messages[0].Content)
	// JSON round trip turns []string into []any
	assert.Equal(t, "1y", restored.ExtractedFields["period"])
}

func TestConversationArchiveList(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	archive := manager.ConversationArchive()

	for _, conv := range []string{"a", "b"} {
		state := &models.ConversationState{UserID: "user-1", ConversationID: conv}
		require.NoError(t, archive.Save(ctx, state))
	}
	require.NoError(t, archive.Save(ctx, &models.ConversationState{UserID: "user-2", ConversationID: "c"}))

	keys, err := archive.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "user-1_a")
	assert.Contains(t, keys, "user-1_b")
}

func TestConversationArchiveDelete(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	archive := manager.ConversationArchive()

	state := &models.ConversationState{UserID: "user-1", ConversationID: "conv-1"}
	require.NoError(t, archive.Save(ctx, state))
	require.NoError(t, archive.Delete(ctx, state.Key()))

	_, err := archive.Get(ctx, state.Key())
	assert.Error(t, err)
}
