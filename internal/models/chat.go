// Package models defines the core data structures for Vista
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingAction is an intent waiting on missing fields, ordered by priority.
type PendingAction struct {
	Intent    string    `json:"intent"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationState holds the rolling history and accumulated extracted
// fields for one (user, conversation) pair. Owned by the conversation store;
// callers receive copies.
type ConversationState struct {
	UserID          string          `json:"user_id"`
	ConversationID  string          `json:"conversation_id"`
	ExtractedFields map[string]any  `json:"extracted_fields"`
	LastIntent      string          `json:"last_intent,omitempty"`
	Messages        []ChatMessage   `json:"messages"`
	PendingActions  []PendingAction `json:"pending_actions,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	LastActivity    time.Time       `json:"last_activity"`
}

// Key returns the store key for this conversation: "<userID>_<conversationID|default>".
func (s *ConversationState) Key() string {
	return ConversationKey(s.UserID, s.ConversationID)
}

// ConversationKey builds the canonical conversation store key.
func ConversationKey(userID, conversationID string) string {
	if conversationID == "" {
		conversationID = "default"
	}
	return fmt.Sprintf("%s_%s", userID, conversationID)
}

// Clone returns a deep copy safe to hand outside the store.
func (s *ConversationState) Clone() *ConversationState {
	out := *s
	out.ExtractedFields = make(map[string]any, len(s.ExtractedFields))
	for k, v := range s.ExtractedFields {
		out.ExtractedFields[k] = v
	}
	out.Messages = append([]ChatMessage(nil), s.Messages...)
	out.PendingActions = append([]PendingAction(nil), s.PendingActions...)
	return &out
}

// CanExecuteResult is the gate decision for acting on an intent with the
// fields accumulated so far.
type CanExecuteResult struct {
	CanExecute    bool           `json:"can_execute"`
	MissingFields []string       `json:"missing_fields,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// ValidationResult is the transient outcome of field extraction/validation
// for a single turn. Never persisted.
type ValidationResult struct {
	Success           bool           `json:"success"`
	Data              map[string]any `json:"data,omitempty"`
	MissingFields     []string       `json:"missing_fields,omitempty"`
	Errors            []string       `json:"errors,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
	FollowUpQuestions []string       `json:"follow_up_questions,omitempty"`
	Confidence        float64        `json:"confidence"` // extracted/required × 100, capped at 100
}

// ToolResult carries the outcome of one tool invocation. A failed tool is a
// result, not an error — siblings in the same batch still run.
type ToolResult struct {
	ToolName   string          `json:"tool_name"`
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	TraceID    string          `json:"trace_id"`
	DurationMs int64           `json:"duration_ms"`
}

// Detection is the language detector output.
type Detection struct {
	Language        string   `json:"language"`
	Confidence      float64  `json:"confidence"` // in [0,1], capped at 0.95
	MatchedFeatures []string `json:"matched_features,omitempty"`
}

// AskRequest is one inbound assistant turn.
type AskRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	Simulate       bool   `json:"simulate,omitempty"`
	UserLevel      string `json:"user_level,omitempty"` // beginner/intermediate/advanced
	Mode           string `json:"mode,omitempty"`       // "chat" (default) or "report"
}

// AskResponse is the structured outcome of one assistant turn. Answer is
// always natural language, including on failure.
type AskResponse struct {
	Answer            string        `json:"answer"`
	Success           bool          `json:"success"`
	Intent            string        `json:"intent,omitempty"`
	Language          string        `json:"language"`
	ToolResults       []*ToolResult `json:"tool_results,omitempty"`
	MissingFields     []string      `json:"missing_fields,omitempty"`
	FollowUpQuestions []string      `json:"follow_up_questions,omitempty"`
	Warnings          []string      `json:"warnings,omitempty"`
	FromCache         bool          `json:"from_cache,omitempty"`
	DurationMs        int64         `json:"duration_ms"`
}

// CacheStats reports response cache counters.
type CacheStats struct {
	Backend  string `json:"backend"`
	Entries  int    `json:"entries"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Evicted  int64  `json:"evicted"`
	Cleanups int64  `json:"cleanups"`
}
