package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vistalabs/vista/internal/cache"
	"github.com/vistalabs/vista/internal/catalog"
	"github.com/vistalabs/vista/internal/models"
)

// cacheOpTypes maps tool names onto response cache operation types. Tools
// without an entry fall back to the default TTL bucket.
var cacheOpTypes = map[string]string{
	catalog.ToolETFCompare:       "etf_compare",
	catalog.ToolETFDetailsGet:    "etf_details",
	catalog.ToolScreenerRun:      "screener",
	catalog.ToolRankingsGet:      "rankings",
	catalog.ToolNewsSearch:       "news",
	catalog.ToolPortfolioOpt:     "portfolio",
	catalog.ToolPortfolioAnalyze: "portfolio",
}

// dispatch runs every allowed tool for the intent concurrently. A failing
// tool yields a failed ToolResult; its siblings still run. Tools are never
// retried. The second return is true when every result was served from cache.
func (s *Service) dispatch(ctx context.Context, intent *models.Intent, fields map[string]any, lang string, simulate bool) ([]*models.ToolResult, bool) {
	var defs []*models.ToolDefinition
	for _, name := range intent.AllowedTools {
		def, ok := catalog.ToolByName(name)
		if !ok {
			s.logger.Warn().Str("tool", name).Str("intent", intent.Name).Msg("Unknown tool skipped")
			continue
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, false
	}

	results := make([]*models.ToolResult, len(defs))
	cachedFlags := make([]bool, len(defs))

	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func(i int, def *models.ToolDefinition) {
			defer wg.Done()
			results[i], cachedFlags[i] = s.runTool(ctx, def, fields, lang, simulate)
		}(i, def)
	}
	wg.Wait()

	allCached := true
	for i, result := range results {
		if !cachedFlags[i] || !result.Success {
			allCached = false
		}
	}
	return results, allCached
}

// runTool executes one tool and wraps the outcome in a ToolResult. Internal
// tool responses are cached by (opType, projected fields); simulated calls
// bypass the cache so they never pollute real answers.
func (s *Service) runTool(ctx context.Context, def *models.ToolDefinition, fields map[string]any, lang string, simulate bool) (*models.ToolResult, bool) {
	start := time.Now()
	result := &models.ToolResult{
		ToolName: def.Name,
		TraceID:  uuid.New().String(),
	}

	toolFields := catalog.ToolFields(def.Name, fields)

	var data json.RawMessage
	var fromCache bool
	var err error

	opType := cacheOpTypes[def.Name]
	if opType == "" {
		opType = def.Name
	}

	switch {
	case simulate:
		// Simulated responses never enter or consult the cache.
		if def.External {
			data, err = s.runNewsTool(ctx, toolFields, lang)
		} else {
			data, err = s.invokeTool(ctx, def, toolFields, true)
		}
	case def.External:
		params := map[string]any{"fields": toolFields, "language": lang}
		data, fromCache, err = cache.GetOrFetch(ctx, s.cache, opType, params, cache.TTLFor(opType),
			func(ctx context.Context) ([]byte, error) {
				return s.runNewsTool(ctx, toolFields, lang)
			})
	default:
		data, fromCache, err = cache.GetOrFetch(ctx, s.cache, opType, toolFields, cache.TTLFor(opType),
			func(ctx context.Context) ([]byte, error) {
				return s.invokeTool(ctx, def, toolFields, false)
			})
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		s.logger.Warn().
			Err(err).
			Str("tool", def.Name).
			Str("trace_id", result.TraceID).
			Msg("Tool invocation failed")
		return result, false
	}

	result.Success = true
	result.Data = data
	return result, fromCache
}

func (s *Service) invokeTool(ctx context.Context, def *models.ToolDefinition, fields map[string]any, simulate bool) (json.RawMessage, error) {
	if s.invoker == nil {
		return nil, errToolBackendUnavailable(def.Name)
	}
	return s.invoker.Invoke(ctx, def, fields, simulate)
}

func (s *Service) runNewsTool(ctx context.Context, fields map[string]any, lang string) (json.RawMessage, error) {
	if s.news == nil {
		return nil, errToolBackendUnavailable(catalog.ToolNewsSearch)
	}

	query := &models.NewsQuery{Language: lang}
	if v, ok := fields["query"].(string); ok {
		query.Query = v
	}
	if v, ok := fields["recency_days"]; ok {
		switch n := v.(type) {
		case int:
			query.RecencyDays = n
		case float64:
			query.RecencyDays = int(n)
		}
	}

	answer, err := s.news.SearchNews(ctx, query)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"answer": answer})
}

func errToolBackendUnavailable(name string) error {
	return fmt.Errorf("no backend configured for tool '%s'", name)
}
