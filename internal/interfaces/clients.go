// Package interfaces defines service contracts for Vista
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/vistalabs/vista/internal/models"
)

// LLMClient provides access to a text-completion language model.
type LLMClient interface {
	// Complete generates a completion for the given request and returns the
	// raw text of the model's reply.
	Complete(ctx context.Context, req *models.CompletionRequest) (string, error)
}

// NewsClient provides access to the external news-search provider.
// Results are untrusted external data subject to the provider's own
// failure modes.
type NewsClient interface {
	// SearchNews runs a free-text news query and returns the text result.
	SearchNews(ctx context.Context, query *models.NewsQuery) (string, error)
}

// ToolInvoker calls internal analytics tools over HTTP.
type ToolInvoker interface {
	// Invoke calls the tool's endpoint with the validated field map and the
	// simulate flag. GET tools receive fields as query parameters; POST/PUT
	// tools receive them as a JSON body.
	Invoke(ctx context.Context, tool *models.ToolDefinition, fields map[string]any, simulate bool) (json.RawMessage, error)
}
