// Package assistant implements the conversational orchestrator: classify the
// message, extract and validate fields, dispatch tools, synthesize a reply
// and post-validate it.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
	"github.com/vistalabs/vista/internal/services/extractor"
	"github.com/vistalabs/vista/internal/services/language"
)

// Dependencies are the collaborators the orchestrator needs. Store, Cache and
// LLM are required; News and Invoker may be nil, in which case the matching
// tools report failure instead of running.
type Dependencies struct {
	Store     interfaces.ConversationStore
	Cache     interfaces.ResponseCache
	LLM       interfaces.LLMClient
	News      interfaces.NewsClient
	Invoker   interfaces.ToolInvoker
	Extractor interfaces.FieldExtractor // optional; defaults to the regex extractor
}

// Service is the assistant orchestrator.
type Service struct {
	config    *common.Config
	logger    *common.Logger
	detector  *language.Detector
	extractor interfaces.FieldExtractor
	store     interfaces.ConversationStore
	cache     interfaces.ResponseCache
	llm       interfaces.LLMClient
	news      interfaces.NewsClient
	invoker   interfaces.ToolInvoker
}

// NewService creates the assistant service.
func NewService(logger *common.Logger, config *common.Config, deps Dependencies) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("response cache is required")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}

	ext := deps.Extractor
	if ext == nil {
		ext = extractor.New(
			extractor.WithLogger(logger),
			extractor.WithMaxFollowUps(config.Assistant.MaxFollowUps),
		)
	}

	return &Service{
		config:    config,
		logger:    logger,
		detector:  language.NewDetector(config.DefaultLanguage),
		extractor: ext,
		store:     deps.Store,
		cache:     deps.Cache,
		llm:       deps.LLM,
		news:      deps.News,
		invoker:   deps.Invoker,
	}, nil
}

// Ask runs one conversational turn end to end. The returned response always
// carries a natural-language answer, including on classification or
// validation failure; a non-nil error means the turn itself could not run.
func (s *Service) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()

	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}
	userID := req.UserID
	if userID == "" {
		userID = "default"
	}

	detection := s.detector.Detect(req.Message)
	lang := detection.Language

	state, err := s.store.Get(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	intent := s.classify(ctx, req.Message, state.LastIntent)

	userMsg := models.ChatMessage{Role: models.RoleUser, Content: req.Message}
	if intent != nil {
		userMsg.Intent = intent.Name
	}
	if err := s.store.AddMessage(ctx, userID, req.ConversationID, userMsg); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record user message")
	}

	if intent == nil {
		answer := unknownIntentAnswer(lang)
		s.recordAssistantTurn(ctx, userID, req.ConversationID, answer, "")
		return &models.AskResponse{
			Answer:     answer,
			Success:    false,
			Language:   lang,
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if err := s.store.SetLastIntent(ctx, userID, req.ConversationID, intent.Name); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record intent")
	}

	validation := s.extractor.PreValidate(intent, req.Message, lang, state.ExtractedFields)
	if len(validation.Data) > 0 {
		if err := s.store.MergeFields(ctx, userID, req.ConversationID, validation.Data); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to merge extracted fields")
		}
	}

	if !validation.Success {
		answer := followUpAnswer(lang, validation)
		s.recordAssistantTurn(ctx, userID, req.ConversationID, answer, intent.Name)
		return &models.AskResponse{
			Answer:            answer,
			Success:           false,
			Intent:            intent.Name,
			Language:          lang,
			MissingFields:     validation.MissingFields,
			FollowUpQuestions: validation.FollowUpQuestions,
			Warnings:          validation.Warnings,
			DurationMs:        time.Since(start).Milliseconds(),
		}, nil
	}

	results, allCached := s.dispatch(ctx, intent, validation.Data, lang, req.Simulate)

	answer, synthErr := s.synthesize(ctx, intent, req, results, lang)
	warnings := append([]string{}, validation.Warnings...)
	warnings = append(warnings, s.postValidate(&answer, lang, results)...)

	s.recordAssistantTurn(ctx, userID, req.ConversationID, answer, intent.Name)

	s.logger.Info().
		Str("user_id", userID).
		Str("intent", intent.Name).
		Str("language", lang).
		Int("tools", len(results)).
		Bool("from_cache", allCached).
		Dur("duration", time.Since(start)).
		Msg("Turn complete")

	return &models.AskResponse{
		Answer:      answer,
		Success:     synthErr == nil,
		Intent:      intent.Name,
		Language:    lang,
		ToolResults: results,
		Warnings:    warnings,
		FromCache:   allCached,
		DurationMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (s *Service) recordAssistantTurn(ctx context.Context, userID, conversationID, answer, intent string) {
	msg := models.ChatMessage{Role: models.RoleAssistant, Content: answer, Intent: intent}
	if err := s.store.AddMessage(ctx, userID, conversationID, msg); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record assistant message")
	}
}

// followUpAnswer turns missing-field questions and validation errors into a
// natural-language reply.
func followUpAnswer(lang string, validation *models.ValidationResult) string {
	var sb strings.Builder

	if len(validation.Errors) > 0 {
		if lang == "en" {
			sb.WriteString("I couldn't proceed with your request: ")
		} else {
			sb.WriteString("Não consegui prosseguir com o seu pedido: ")
		}
		sb.WriteString(strings.Join(validation.Errors, "; "))
		sb.WriteString("\n")
	}

	if len(validation.FollowUpQuestions) > 0 {
		if lang == "en" {
			sb.WriteString("To continue, I need a bit more information:\n")
		} else {
			sb.WriteString("Para continuar, preciso de mais algumas informações:\n")
		}
		for _, q := range validation.FollowUpQuestions {
			sb.WriteString("- ")
			sb.WriteString(q)
			sb.WriteString("\n")
		}
	}

	if sb.Len() == 0 {
		if lang == "en" {
			return "I need more information to continue."
		}
		return "Preciso de mais informações para continuar."
	}
	return strings.TrimRight(sb.String(), "\n")
}

// unknownIntentAnswer is the reply when neither classification tier produced
// a known intent.
func unknownIntentAnswer(lang string) string {
	if lang == "en" {
		return "I'm not sure what you'd like to do. I can compare ETFs, screen the market, " +
			"explain a fund in detail, build or analyze a portfolio, show rankings, " +
			"bring recent market news or explain an investment concept."
	}
	return "Não tenho certeza do que você gostaria de fazer. Posso comparar ETFs, filtrar o mercado, " +
		"detalhar um fundo, montar ou analisar uma carteira, mostrar rankings, " +
		"trazer notícias recentes do mercado ou explicar um conceito de investimento."
}

var _ interfaces.AssistantService = (*Service)(nil)
