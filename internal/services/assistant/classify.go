package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/vistalabs/vista/internal/cache"
	"github.com/vistalabs/vista/internal/catalog"
	"github.com/vistalabs/vista/internal/models"
)

// classifyNone is the memoized marker for "no intent matched". Caching the
// negative keeps repeated unclassifiable messages from hitting the LLM.
const classifyNone = "NONE"

// classify resolves the message to an intent from the closed catalog.
// Tier 1 is keyword matching; tier 2 asks the LLM, memoized in the response
// cache. Returns nil when neither tier produces a known intent.
func (s *Service) classify(ctx context.Context, message, lastIntent string) *models.Intent {
	if intent := catalog.MatchKeyword(message); intent != nil {
		s.logger.Debug().Str("intent", intent.Name).Msg("Intent matched by keyword")
		return intent
	}

	params := map[string]string{
		"message":     strings.ToLower(strings.TrimSpace(message)),
		"last_intent": lastIntent,
	}
	payload, cached, err := cache.GetOrFetch(ctx, s.cache, "classify", params,
		s.config.Assistant.GetClassifyCacheTTL(),
		func(ctx context.Context) ([]byte, error) {
			name, err := s.classifyLLM(ctx, message, lastIntent)
			if err != nil {
				return nil, err
			}
			return []byte(name), nil
		})
	if err != nil {
		s.logger.Warn().Err(err).Msg("LLM classification failed")
		return nil
	}

	name := strings.TrimSpace(string(payload))
	if name == classifyNone {
		return nil
	}
	intent, ok := catalog.IntentByName(name)
	if !ok {
		s.logger.Warn().Str("name", name).Msg("LLM returned an unknown intent")
		return nil
	}

	s.logger.Debug().Str("intent", intent.Name).Bool("memoized", cached).Msg("Intent classified by LLM")
	return intent
}

// classifyLLM asks the model to pick exactly one intent name (or NONE) from
// the closed set. The reply is normalized and checked against the catalog
// before use, so a hallucinated name degrades to NONE.
func (s *Service) classifyLLM(ctx context.Context, message, lastIntent string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Classify the user message into exactly one of these intents:\n")
	for _, intent := range catalog.Intents() {
		fmt.Fprintf(&sb, "- %s: %s\n", intent.Name, intent.Description)
	}
	sb.WriteString("\nAnswer with the intent name only, or NONE if nothing fits.")
	if lastIntent != "" {
		fmt.Fprintf(&sb, "\nThe previous intent in this conversation was %s; short answers may continue it.", lastIntent)
	}
	fmt.Fprintf(&sb, "\n\nUser message: %s", message)

	reply, err := s.llm.Complete(ctx, &models.CompletionRequest{
		System:    "You are an intent classifier for an ETF analytics assistant. Reply with a single token.",
		Prompt:    sb.String(),
		MaxTokens: 16,
	})
	if err != nil {
		return "", err
	}

	name := strings.ToUpper(strings.TrimSpace(reply))
	name = strings.Trim(name, ".,:;\"'`")
	if name == "" || name == classifyNone {
		return classifyNone, nil
	}
	if _, ok := catalog.IntentByName(name); !ok {
		return classifyNone, nil
	}
	return name, nil
}
