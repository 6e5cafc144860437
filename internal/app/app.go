// Package app wires configuration, storage, clients and services together.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vistalabs/vista/internal/cache"
	"github.com/vistalabs/vista/internal/clients/gemini"
	"github.com/vistalabs/vista/internal/clients/openai"
	"github.com/vistalabs/vista/internal/clients/perplexity"
	"github.com/vistalabs/vista/internal/clients/toolapi"
	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/server"
	"github.com/vistalabs/vista/internal/services/assistant"
	"github.com/vistalabs/vista/internal/services/conversation"
	"github.com/vistalabs/vista/internal/storage"
)

// App holds every long-lived component.
type App struct {
	Config    *common.Config
	Logger    *common.Logger
	Storage   interfaces.StorageManager
	Cache     interfaces.ResponseCache
	Store     interfaces.ConversationStore
	Assistant interfaces.AssistantService
	Server    *server.Server

	sweepCancel context.CancelFunc
	sweepWG     sync.WaitGroup
}

// New builds the application graph from configuration.
func New(ctx context.Context, logger *common.Logger, config *common.Config) (*App, error) {
	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	responseCache, err := newResponseCache(ctx, logger, config)
	if err != nil {
		_ = storageManager.Close()
		return nil, err
	}

	store := conversation.NewStore(logger, config,
		conversation.WithArchive(storageManager.ConversationArchive()))

	llm, err := newLLMClient(ctx, logger, config, storageManager.KeyValueStorage())
	if err != nil {
		_ = responseCache.Close()
		_ = storageManager.Close()
		return nil, err
	}

	news := newNewsClient(ctx, logger, config, storageManager.KeyValueStorage())
	invoker := newToolInvoker(ctx, logger, config, storageManager.KeyValueStorage())

	assistantService, err := assistant.NewService(logger, config, assistant.Dependencies{
		Store:   store,
		Cache:   responseCache,
		LLM:     llm,
		News:    news,
		Invoker: invoker,
	})
	if err != nil {
		_ = responseCache.Close()
		_ = storageManager.Close()
		return nil, fmt.Errorf("failed to create assistant service: %w", err)
	}

	httpServer := server.NewServer(logger, config, assistantService, store, responseCache)

	logger.Info().
		Str("environment", config.Environment).
		Str("cache_backend", config.Cache.Backend).
		Str("llm_provider", config.Clients.LLMProvider).
		Msg("Application initialized")

	return &App{
		Config:    config,
		Logger:    logger,
		Storage:   storageManager,
		Cache:     responseCache,
		Store:     store,
		Assistant: assistantService,
		Server:    httpServer,
	}, nil
}

func newResponseCache(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.ResponseCache, error) {
	if config.Cache.Backend == "redis" {
		redisCache, err := cache.NewRedis(ctx, config.Cache.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		return redisCache, nil
	}
	return cache.NewMemory(
		cache.WithLogger(logger),
		cache.WithMaxEntries(config.Cache.MaxEntries),
	), nil
}

func newLLMClient(ctx context.Context, logger *common.Logger, config *common.Config, kv interfaces.KeyValueStorage) (interfaces.LLMClient, error) {
	switch config.Clients.LLMProvider {
	case "gemini":
		apiKey, err := common.ResolveAPIKey(ctx, kv, "gemini_api_key", config.Clients.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini provider selected but no key available: %w", err)
		}
		return gemini.NewClient(ctx, logger, config, apiKey)
	default:
		apiKey, err := common.ResolveAPIKey(ctx, kv, "openai_api_key", config.Clients.OpenAI.APIKey)
		if err != nil {
			return nil, fmt.Errorf("openai provider selected but no key available: %w", err)
		}
		return openai.NewClient(logger, config, apiKey)
	}
}

// newNewsClient returns nil when no key is available; the news tool then
// reports failure instead of blocking startup.
func newNewsClient(ctx context.Context, logger *common.Logger, config *common.Config, kv interfaces.KeyValueStorage) interfaces.NewsClient {
	apiKey, err := common.ResolveAPIKey(ctx, kv, "perplexity_api_key", config.Clients.Perplexity.APIKey)
	if err != nil {
		logger.Warn().Msg("News search disabled: no Perplexity API key configured")
		return nil
	}
	client, err := perplexity.NewClient(logger, config, apiKey)
	if err != nil {
		logger.Warn().Err(err).Msg("News search disabled")
		return nil
	}
	return client
}

func newToolInvoker(ctx context.Context, logger *common.Logger, config *common.Config, kv interfaces.KeyValueStorage) interfaces.ToolInvoker {
	// The tools API key is optional for local deployments.
	apiKey, _ := common.ResolveAPIKey(ctx, kv, "tools_api_key", config.Clients.Tools.APIKey)
	return toolapi.NewClient(logger, config, apiKey)
}

// StartSweepers launches the cache cleanup and conversation eviction loops.
func (a *App) StartSweepers() {
	ctx, cancel := context.WithCancel(context.Background())
	a.sweepCancel = cancel

	a.sweepWG.Add(2)
	go a.runSweeper(ctx, "cache", a.Config.Cache.GetSweepInterval(), func(ctx context.Context) int {
		return a.Cache.Cleanup(ctx)
	})
	go a.runSweeper(ctx, "conversations", a.Config.Assistant.GetContextSweep(), func(ctx context.Context) int {
		return a.Store.Sweep(ctx)
	})
}

func (a *App) runSweeper(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) int) {
	defer a.sweepWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.Logger.Debug().Str("sweeper", name).Dur("interval", interval).Msg("Sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := sweep(ctx)
			if removed > 0 {
				a.Logger.Info().Str("sweeper", name).Int("removed", removed).Msg("Sweep pass complete")
			}
		}
	}
}

// Close shuts down background loops and releases resources.
func (a *App) Close() error {
	if a.sweepCancel != nil {
		a.sweepCancel()
		a.sweepWG.Wait()
	}

	var firstErr error
	if err := a.Cache.Close(); err != nil {
		firstErr = err
	}
	if err := a.Storage.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	a.Logger.Info().Msg("Application closed")
	return firstErr
}
