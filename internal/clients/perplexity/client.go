// Package perplexity implements the market news search client.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

const defaultBaseURL = "https://api.perplexity.ai"

// Client talks to the Perplexity chat-completions API for grounded news
// search. Requests are rate limited client-side.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *common.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a Perplexity news client from configuration.
func NewClient(logger *common.Logger, config *common.Config, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("perplexity API key is required")
	}

	cfg := config.Clients.Perplexity
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 2
	}

	c := &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      apiKey,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: cfg.GetTimeout()},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:      logger,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = "sonar"
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type searchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Model               string          `json:"model"`
	Messages            []searchMessage `json:"messages"`
	SearchRecencyFilter string          `json:"search_recency_filter,omitempty"`
	SearchDomainFilter  []string        `json:"search_domain_filter,omitempty"`
}

type searchResponse struct {
	Choices []struct {
		Message searchMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations,omitempty"`
}

// SearchNews runs a grounded news query and returns the answer text with
// citations appended.
func (c *Client) SearchNews(ctx context.Context, query *models.NewsQuery) (string, error) {
	if query == nil || query.Query == "" {
		return "", fmt.Errorf("news query is required")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	system := "You are a financial news assistant. Summarize recent market news factually, citing sources."
	if query.Language == "pt" {
		system = "Você é um assistente de notícias financeiras. Resuma notícias de mercado recentes de forma factual, citando as fontes."
	}

	req := searchRequest{
		Model: c.model,
		Messages: []searchMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: query.Query},
		},
		SearchRecencyFilter: recencyFilter(query.RecencyDays),
		SearchDomainFilter:  query.Sources,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode news request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("perplexity request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("perplexity API error: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("perplexity response contained no choices")
	}

	answer := parsed.Choices[0].Message.Content
	for i, citation := range parsed.Citations {
		answer += fmt.Sprintf("\n[%d] %s", i+1, citation)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("citations", len(parsed.Citations)).
		Dur("duration", time.Since(start)).
		Msg("News search finished")

	return answer, nil
}

// recencyFilter maps a day window onto Perplexity's coarse recency buckets.
func recencyFilter(days int) string {
	switch {
	case days <= 0:
		return ""
	case days <= 1:
		return "day"
	case days <= 7:
		return "week"
	case days <= 31:
		return "month"
	default:
		return "year"
	}
}

var _ interfaces.NewsClient = (*Client)(nil)
