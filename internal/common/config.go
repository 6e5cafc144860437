// Package common provides shared utilities for Vista
package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/vistalabs/vista/internal/interfaces"
)

// Config holds all configuration for Vista
type Config struct {
	Environment     string          `toml:"environment"`
	DefaultLanguage string          `toml:"default_language"` // Fallback response language ("pt" or "en", default "pt")
	Server          ServerConfig    `toml:"server"`
	Storage         StorageConfig   `toml:"storage"`
	Cache           CacheConfig     `toml:"cache"`
	Clients         ClientsConfig   `toml:"clients"`
	Assistant       AssistantConfig `toml:"assistant"`
	Logging         LoggingConfig   `toml:"logging"`
	Auth            AuthConfig      `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds path configuration for the BadgerHold store
// backing the conversation archive and the internal key-value area.
type StorageConfig struct {
	Path string `toml:"path"`
}

// CacheConfig holds response cache configuration.
// Backend selects "memory" (default) or "redis".
type CacheConfig struct {
	Backend       string      `toml:"backend"`
	MaxEntries    int         `toml:"max_entries"`    // sweep trigger threshold (default 1000)
	SweepInterval string      `toml:"sweep_interval"` // duration string, default "30m"
	Redis         RedisConfig `toml:"redis"`
}

// GetSweepInterval parses and returns the background sweep interval
func (c *CacheConfig) GetSweepInterval() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// RedisConfig holds Redis connection configuration for the cache backend.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	LLMProvider string           `toml:"llm_provider"` // "openai" (default) or "gemini"
	OpenAI      OpenAIConfig     `toml:"openai"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Perplexity  PerplexityConfig `toml:"perplexity"`
	Tools       ToolAPIConfig    `toml:"tools"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *OpenAIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// PerplexityConfig holds Perplexity news search configuration
type PerplexityConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *PerplexityConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ToolAPIConfig holds configuration for the internal analytics API
// that backs the assistant's tools.
type ToolAPIConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ToolAPIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AssistantConfig holds orchestration tuning knobs.
type AssistantConfig struct {
	ContextIdleTTL     string `toml:"context_idle_ttl"`    // duration string, default "24h"
	ContextSweep       string `toml:"context_sweep"`       // duration string, default "1h"
	ContextMaxEntries  int    `toml:"context_max_entries"` // bound on live conversations (default 10000)
	HistoryLimit       int    `toml:"history_limit"`       // messages kept per conversation (default 20)
	ClassifyCacheTTL   string `toml:"classify_cache_ttl"`  // duration string, default "20m"
	ToolResultExcerpt  int    `toml:"tool_result_excerpt"` // max chars of tool JSON embedded in prompts (default 4000)
	MaxFollowUps       int    `toml:"max_follow_ups"`      // follow-up questions per turn (default 2)
	RequiredDisclaimer bool   `toml:"required_disclaimer"` // warn when answers lack a risk disclaimer
}

// GetContextIdleTTL parses and returns the conversation idle eviction window
func (c *AssistantConfig) GetContextIdleTTL() time.Duration {
	d, err := time.ParseDuration(c.ContextIdleTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetContextSweep parses and returns the context sweep interval
func (c *AssistantConfig) GetContextSweep() time.Duration {
	d, err := time.ParseDuration(c.ContextSweep)
	if err != nil {
		return time.Hour
	}
	return d
}

// GetClassifyCacheTTL parses and returns the classification memo TTL
func (c *AssistantConfig) GetClassifyCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.ClassifyCacheTTL)
	if err != nil {
		return 20 * time.Minute
	}
	return d
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		DefaultLanguage: "pt",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data/vista",
		},
		Cache: CacheConfig{
			Backend:       "memory",
			MaxEntries:    1000,
			SweepInterval: "30m",
			Redis: RedisConfig{
				Address: "localhost:6379",
			},
		},
		Clients: ClientsConfig{
			LLMProvider: "openai",
			OpenAI: OpenAIConfig{
				BaseURL:     "https://api.openai.com/v1",
				Model:       "gpt-4o-mini",
				MaxTokens:   1200,
				Temperature: 0.3,
				Timeout:     "60s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			Perplexity: PerplexityConfig{
				BaseURL:   "https://api.perplexity.ai",
				Model:     "sonar",
				RateLimit: 2,
				Timeout:   "30s",
			},
			Tools: ToolAPIConfig{
				BaseURL:   "http://localhost:9090/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Assistant: AssistantConfig{
			ContextIdleTTL:     "24h",
			ContextSweep:       "1h",
			ContextMaxEntries:  10000,
			HistoryLimit:       20,
			ClassifyCacheTTL:   "20m",
			ToolResultExcerpt:  4000,
			MaxFollowUps:       2,
			RequiredDisclaimer: true,
		},
		Auth: AuthConfig{
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			FilePath: "./logs/vista.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateDefaultLanguage(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VISTA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("VISTA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("VISTA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("VISTA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("VISTA_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if lang := os.Getenv("VISTA_DEFAULT_LANGUAGE"); lang != "" {
		config.DefaultLanguage = strings.ToLower(lang)
	}

	if backend := os.Getenv("VISTA_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("VISTA_REDIS_ADDRESS"); addr != "" {
		config.Cache.Redis.Address = addr
	}

	if base := os.Getenv("VISTA_TOOLS_BASE_URL"); base != "" {
		config.Clients.Tools.BaseURL = base
	}
	if provider := os.Getenv("VISTA_LLM_PROVIDER"); provider != "" {
		config.Clients.LLMProvider = strings.ToLower(provider)
	}

	if v := os.Getenv("VISTA_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("VISTA_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, the internal KV store, or fallback
func ResolveAPIKey(ctx context.Context, store interfaces.KeyValueStorage, name string, fallback string) (string, error) {
	// Environment variable mapping
	keyToEnvMapping := map[string][]string{
		"openai_api_key":     {"OPENAI_API_KEY", "VISTA_OPENAI_API_KEY"},
		"gemini_api_key":     {"GEMINI_API_KEY", "VISTA_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"perplexity_api_key": {"PERPLEXITY_API_KEY", "VISTA_PERPLEXITY_API_KEY"},
		"tools_api_key":      {"VISTA_TOOLS_API_KEY"},
	}

	// Check environment variables first (highest priority)
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try the internal KV store (medium priority)
	if store != nil {
		apiKey, err := store.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// Fallback (lowest priority)
	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}

// validateDefaultLanguage ensures DefaultLanguage is "pt" or "en", defaulting to "pt".
func validateDefaultLanguage(config *Config) {
	lang := strings.ToLower(config.DefaultLanguage)
	if lang != "pt" && lang != "en" {
		lang = "pt"
	}
	config.DefaultLanguage = lang
}
