package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/vistalabs/vista/internal/models"
)

// synthesize turns tool results into a natural-language answer via the LLM.
// On LLM failure an apologetic fallback is returned together with the error
// so the caller can mark the turn unsuccessful. Successful tool results are
// always cited at the end of the answer.
func (s *Service) synthesize(ctx context.Context, intent *models.Intent, req *models.AskRequest, results []*models.ToolResult, lang string) (string, error) {
	excerptLimit := s.config.Assistant.ToolResultExcerpt
	if excerptLimit <= 0 {
		excerptLimit = 4000
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User request: %s\n\n", req.Message)
	sb.WriteString(instructionsFor(intent.Name, lang))
	sb.WriteString("\n\nTool data:\n")

	var succeeded []*models.ToolResult
	for _, result := range results {
		if !result.Success {
			fmt.Fprintf(&sb, "- %s: failed (%s)\n", result.ToolName, result.Error)
			continue
		}
		succeeded = append(succeeded, result)
		fmt.Fprintf(&sb, "- %s: %s\n", result.ToolName, excerpt(result.Data, excerptLimit))
	}
	if len(results) == 0 {
		sb.WriteString("(no tool data; answer from general knowledge and say figures are unavailable)\n")
	}

	answer, err := s.llm.Complete(ctx, &models.CompletionRequest{
		System: systemPrompt(lang, req.UserLevel),
		Prompt: sb.String(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("intent", intent.Name).Msg("Synthesis failed")
		names := make([]string, 0, len(succeeded))
		for _, r := range succeeded {
			names = append(names, r.ToolName)
		}
		return fallbackAnswer(lang, names), err
	}

	return answer + citations(lang, succeeded), nil
}

// excerpt truncates raw tool JSON for prompt embedding.
func excerpt(data []byte, limit int) string {
	text := string(data)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "…(truncated)"
}

// citations renders the trace line appended to every synthesized answer, so
// each figure can be traced back to the tool call that produced it.
func citations(lang string, succeeded []*models.ToolResult) string {
	if len(succeeded) == 0 {
		return ""
	}
	refs := make([]string, 0, len(succeeded))
	for _, r := range succeeded {
		refs = append(refs, fmt.Sprintf("%s:%s", r.ToolName, r.TraceID))
	}
	label := "Fontes"
	if lang == "en" {
		label = "Sources"
	}
	return fmt.Sprintf("\n\n%s: %s", label, strings.Join(refs, ", "))
}
