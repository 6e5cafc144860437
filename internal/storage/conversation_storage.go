package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
)

// ArchivedConversation is the stored form of a conversation state. The state
// itself is kept as JSON so field maps with mixed value types survive the
// round trip.
type ArchivedConversation struct {
	Key       string `badgerhold:"key"`
	UserID    string `badgerhold:"index"`
	UpdatedAt time.Time
	Payload   []byte
}

type conversationStorage struct {
	store  *Store
	logger *common.Logger
}

// NewConversationStorage creates a ConversationArchive backed by BadgerHold.
func NewConversationStorage(store *Store, logger *common.Logger) *conversationStorage {
	return &conversationStorage{store: store, logger: logger}
}

func (s *conversationStorage) Save(_ context.Context, state *models.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode conversation '%s': %w", state.Key(), err)
	}

	record := ArchivedConversation{
		Key:       state.Key(),
		UserID:    state.UserID,
		UpdatedAt: time.Now(),
		Payload:   payload,
	}

	if err := s.store.db.Upsert(record.Key, &record); err != nil {
		return fmt.Errorf("failed to save conversation '%s': %w", record.Key, err)
	}
	s.logger.Debug().Str("key", record.Key).Int("messages", len(state.Messages)).Msg("Conversation archived")
	return nil
}

func (s *conversationStorage) Get(_ context.Context, key string) (*models.ConversationState, error) {
	var record ArchivedConversation
	err := s.store.db.Get(key, &record)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("conversation '%s' not found", key)
		}
		return nil, fmt.Errorf("failed to get conversation '%s': %w", key, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal(record.Payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode conversation '%s': %w", key, err)
	}
	return &state, nil
}

func (s *conversationStorage) Delete(_ context.Context, key string) error {
	err := s.store.db.Delete(key, ArchivedConversation{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete conversation '%s': %w", key, err)
	}
	return nil
}

func (s *conversationStorage) List(_ context.Context, userID string) ([]string, error) {
	var records []ArchivedConversation
	if err := s.store.db.Find(&records, badgerhold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, fmt.Errorf("failed to list conversations for '%s': %w", userID, err)
	}

	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	return keys, nil
}
