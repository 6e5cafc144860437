package storage

import (
	"fmt"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a single BadgerHold store.
type Manager struct {
	store         *Store
	kv            *kvStorage
	conversations *conversationStorage
	logger        *common.Logger
}

// NewManager creates a new StorageManager at the configured path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	store, err := NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	logger.Info().Str("path", config.Storage.Path).Msg("Storage manager initialized")

	return &Manager{
		store:         store,
		kv:            NewKVStorage(store, logger),
		conversations: NewConversationStorage(store, logger),
		logger:        logger,
	}, nil
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

func (m *Manager) ConversationArchive() interfaces.ConversationArchive {
	return m.conversations
}

func (m *Manager) Close() error {
	return m.store.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
