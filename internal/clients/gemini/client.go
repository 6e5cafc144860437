// Package gemini implements an LLM client against the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

// Client talks to Gemini through the google genai SDK.
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, logger *common.Logger, config *common.Config, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := config.Clients.Gemini.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &Client{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends a single-turn completion request and returns the model text.
func (c *Client) Complete(ctx context.Context, req *models.CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini response contained no text")
	}

	c.logger.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Msg("Gemini completion finished")

	return text, nil
}

var _ interfaces.LLMClient = (*Client)(nil)
