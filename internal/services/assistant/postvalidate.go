package assistant

import (
	"regexp"
	"strings"

	"github.com/vistalabs/vista/internal/models"
)

// overPrecisionRe flags percentages quoted with three or more decimal places,
// a telltale of invented precision.
var overPrecisionRe = regexp.MustCompile(`\d+[.,]\d{3,}\s*%`)

var disclaimerMarkers = []string{
	"não é recomendação",
	"não é uma recomendação",
	"não constitui recomendação",
	"rentabilidade passada",
	"not investment advice",
	"not financial advice",
	"past performance",
}

// postValidate inspects the synthesized answer and returns advisory
// warnings. When the risk disclaimer is required and absent it is appended
// in place.
func (s *Service) postValidate(answer *string, lang string, results []*models.ToolResult) []string {
	var warnings []string

	if overPrecisionRe.MatchString(*answer) {
		if lang == "en" {
			warnings = append(warnings, "answer quotes figures with unusually high precision")
		} else {
			warnings = append(warnings, "resposta cita valores com precisão incomum")
		}
	}

	var succeeded bool
	for _, r := range results {
		if r.Success {
			succeeded = true
			break
		}
	}
	if succeeded && !strings.Contains(*answer, "Fontes:") && !strings.Contains(*answer, "Sources:") {
		if lang == "en" {
			warnings = append(warnings, "answer does not cite its tool sources")
		} else {
			warnings = append(warnings, "resposta não cita as fontes das ferramentas")
		}
	}

	if s.config.Assistant.RequiredDisclaimer && !hasDisclaimer(*answer) {
		if lang == "en" {
			*answer += "\n\nThis is information, not investment advice."
		} else {
			*answer += "\n\nIsto é informação, não é recomendação de investimento."
		}
		if lang == "en" {
			warnings = append(warnings, "risk disclaimer was appended automatically")
		} else {
			warnings = append(warnings, "aviso de risco adicionado automaticamente")
		}
	}

	return warnings
}

func hasDisclaimer(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range disclaimerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
