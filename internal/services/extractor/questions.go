package extractor

import "fmt"

// Follow-up question templates for well-known field names. Fields without a
// template fall back to a generic "need more info" question.
var questionTemplates = map[string]map[string]string{
	"pt": {
		"goal":         "Qual é o seu objetivo com esse investimento? (crescimento, renda, preservação ou aposentadoria)",
		"risk_profile": "Qual é o seu perfil de risco? (conservador, moderado ou arrojado)",
		"amount":       "Quanto você pretende investir?",
		"currency":     "Em qual moeda? (BRL, USD ou EUR)",
		"symbols":      "Quais ETFs você quer analisar? (ex: SPY, VTI)",
		"query":        "Sobre o que você quer saber?",
	},
	"en": {
		"goal":         "What is your goal for this investment? (growth, income, preservation or retirement)",
		"risk_profile": "What is your risk profile? (conservative, moderate or aggressive)",
		"amount":       "How much do you plan to invest?",
		"currency":     "In which currency? (BRL, USD or EUR)",
		"symbols":      "Which ETFs would you like to look at? (e.g. SPY, VTI)",
		"query":        "What would you like to know about?",
	},
}

var genericQuestion = map[string]string{
	"pt": "Preciso de mais informações sobre %s.",
	"en": "I need more information about %s.",
}

// questionsFor builds at most max follow-up questions for the missing
// fields, in the order they were reported.
func questionsFor(missing []string, lang string, max int) []string {
	templates, ok := questionTemplates[lang]
	if !ok {
		templates = questionTemplates["pt"]
		lang = "pt"
	}

	questions := make([]string, 0, max)
	for _, field := range missing {
		if len(questions) >= max {
			break
		}
		if q, ok := templates[field]; ok {
			questions = append(questions, q)
		} else {
			questions = append(questions, fmt.Sprintf(genericQuestion[lang], field))
		}
	}
	return questions
}
