package interfaces

import (
	"context"

	"github.com/vistalabs/vista/internal/models"
)

// AssistantService orchestrates one conversational turn end to end:
// classify, extract/validate, dispatch tools, synthesize, post-validate.
type AssistantService interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)
}

// FieldExtractor converts free text into structured named fields and gates
// tool execution on an intent's required fields. The default implementation
// is conservative regex/keyword extraction; alternatives (e.g. structured
// model output) can be substituted without touching the orchestrator.
type FieldExtractor interface {
	// PreValidate extracts fields from message, merges prior fields, checks
	// the intent's required fields and validates the merged map against the
	// allowed tools' input schemas. Follow-up questions for missing fields
	// are produced in lang ("pt" or "en").
	PreValidate(intent *models.Intent, message, lang string, prior map[string]any) *models.ValidationResult

	// Extract pulls every recognizable field from a message regardless of
	// intent. Used to accumulate conversation context across turns.
	Extract(message string) map[string]any
}

// ConversationStore owns all ConversationState instances. States are created
// lazily, mutated through the store only, and evicted after an inactivity
// window. All accessors are safe for concurrent use; turns for the same
// conversation are serialized per key.
type ConversationStore interface {
	// Get returns a copy of the state for (userID, conversationID),
	// lazily creating it on first access.
	Get(ctx context.Context, userID, conversationID string) (*models.ConversationState, error)

	// AddMessage appends a turn to the history, trimming to the history limit.
	AddMessage(ctx context.Context, userID, conversationID string, msg models.ChatMessage) error

	// MergeFields merges extracted fields into the accumulated map.
	// Per-key overwrite only; fields are never dropped before eviction.
	MergeFields(ctx context.Context, userID, conversationID string, fields map[string]any) error

	// SetLastIntent records the most recent classified intent.
	SetLastIntent(ctx context.Context, userID, conversationID, intent string) error

	// CanExecute checks the intent's required fields against the accumulated
	// field map. This is the authoritative "enough to act" gate.
	CanExecute(ctx context.Context, userID, conversationID string, intent *models.Intent) (*models.CanExecuteResult, error)

	// Delete removes a conversation from the store (and its archive entry).
	Delete(ctx context.Context, userID, conversationID string) error

	// Sweep evicts states idle past the configured window and returns the
	// number evicted.
	Sweep(ctx context.Context) int

	// Len returns the number of live conversations.
	Len() int
}
