package models

import "time"

// Intent complexity buckets
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Intent describes one closed-set assistant capability. Immutable after
// process start; looked up by name, never mutated at runtime.
type Intent struct {
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	RequiredFields    []string      `json:"required_fields,omitempty"`
	OptionalFields    []string      `json:"optional_fields,omitempty"`
	AllowedTools      []string      `json:"allowed_tools,omitempty"`
	Category          string        `json:"category"`
	Complexity        string        `json:"complexity"`
	EstimatedDuration time.Duration `json:"-"`
	Keywords          []string      `json:"-"` // lower-cased substring hints for tier-1 classification
}

// ToolDefinition describes one callable backend. Internal tools are HTTP
// endpoints under the analytics API base URL; external tools go through a
// dedicated client and carry no endpoint.
type ToolDefinition struct {
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Method            string        `json:"method,omitempty"`   // GET, POST or PUT for internal tools
	Endpoint          string        `json:"endpoint,omitempty"` // path under the tools base URL
	External          bool          `json:"external"`           // dispatched via the news client
	InputSchema       string        `json:"-"`                  // JSON Schema for the validated field map
	EstimatedDuration time.Duration `json:"-"`
}

// NewsQuery is the request shape for the external news-search tool.
type NewsQuery struct {
	Query       string   `json:"query"`
	RecencyDays int      `json:"recency_days,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// CompletionRequest is the language-model call contract: optional system
// instruction, user instruction, and generation budget.
type CompletionRequest struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}
