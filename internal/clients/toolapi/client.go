// Package toolapi implements the invoker for the internal analytics API that
// backs the assistant's tools.
package toolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

// APIError carries the HTTP status and body of a failed tool call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tool API error: status %d: %s", e.StatusCode, e.Body)
}

// Client invokes analytics tools over HTTP. Requests are rate limited
// client-side.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *common.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

// NewClient creates a tool API client from configuration. The API key is
// optional; when set it is sent as a bearer token.
func NewClient(logger *common.Logger, config *common.Config, apiKey string, opts ...Option) *Client {
	cfg := config.Clients.Tools
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 10
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: cfg.GetTimeout()},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:      logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Invoke calls a tool endpoint with the given fields. GET tools receive the
// fields as query parameters; POST/PUT tools receive them as a JSON body.
// The simulate flag always travels as a query parameter so backends can route
// simulated requests without parsing the body.
func (c *Client) Invoke(ctx context.Context, def *models.ToolDefinition, fields map[string]any, simulate bool) (json.RawMessage, error) {
	if def == nil {
		return nil, fmt.Errorf("tool definition is required")
	}
	if def.External {
		return nil, fmt.Errorf("tool '%s' is external and cannot be invoked through the tool API", def.Name)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	endpoint := c.baseURL + def.Endpoint
	method := strings.ToUpper(def.Method)

	var req *http.Request
	var err error
	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err == nil {
			query := queryParams(fields)
			if simulate {
				query.Set("simulate", "true")
			}
			req.URL.RawQuery = query.Encode()
		}
	case http.MethodPost, http.MethodPut:
		var body []byte
		body, err = json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tool fields: %w", err)
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
			if simulate {
				query := req.URL.Query()
				query.Set("simulate", "true")
				req.URL.RawQuery = query.Encode()
			}
		}
	default:
		return nil, fmt.Errorf("unsupported tool method '%s'", def.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	c.logger.Debug().
		Str("tool", def.Name).
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Tool invocation finished")

	return json.RawMessage(data), nil
}

// queryParams flattens a field map into URL query parameters. String slices
// are joined with commas.
func queryParams(fields map[string]any) url.Values {
	query := url.Values{}
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			query.Set(key, v)
		case []string:
			query.Set(key, strings.Join(v, ","))
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			query.Set(key, strings.Join(parts, ","))
		case bool:
			query.Set(key, strconv.FormatBool(v))
		case int:
			query.Set(key, strconv.Itoa(v))
		case float64:
			query.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			query.Set(key, fmt.Sprintf("%v", v))
		}
	}
	return query
}

var _ interfaces.ToolInvoker = (*Client)(nil)
