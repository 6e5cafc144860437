package assistant

import (
	"fmt"
	"strings"

	"github.com/vistalabs/vista/internal/catalog"
)

// systemPrompt builds the synthesis system instruction for the reply
// language and user level.
func systemPrompt(lang, userLevel string) string {
	var sb strings.Builder

	if lang == "en" {
		sb.WriteString("You are Vista, an ETF analytics assistant. Answer in English. ")
		sb.WriteString("Ground every figure in the tool data provided; never invent numbers. ")
		sb.WriteString("If the data does not cover something, say so. ")
		sb.WriteString("Always close with a short reminder that this is information, not investment advice.")
	} else {
		sb.WriteString("Você é o Vista, um assistente de análise de ETFs. Responda em português. ")
		sb.WriteString("Baseie todos os números nos dados das ferramentas fornecidos; nunca invente valores. ")
		sb.WriteString("Se os dados não cobrirem algo, diga isso. ")
		sb.WriteString("Sempre finalize com um lembrete curto de que isto é informação, não recomendação de investimento.")
	}

	switch userLevel {
	case "advanced":
		if lang == "en" {
			sb.WriteString(" The user is experienced; use precise terminology and skip basic definitions.")
		} else {
			sb.WriteString(" O usuário é experiente; use terminologia precisa e dispense definições básicas.")
		}
	case "intermediate":
		// Default register.
	default:
		if lang == "en" {
			sb.WriteString(" The user is a beginner; explain terms briefly when you use them.")
		} else {
			sb.WriteString(" O usuário é iniciante; explique os termos brevemente ao usá-los.")
		}
	}

	return sb.String()
}

// intentInstructions are per-intent synthesis directions, keyed by intent
// name then language.
var intentInstructions = map[string]map[string]string{
	catalog.IntentCompareETFs: {
		"pt": "Compare os ETFs lado a lado: custo, desempenho, liquidez e exposição. Termine com uma síntese prática.",
		"en": "Compare the ETFs side by side: cost, performance, liquidity and exposure. End with a practical takeaway.",
	},
	catalog.IntentScreenETFs: {
		"pt": "Apresente os ETFs filtrados em formato de lista com os critérios que cada um atende.",
		"en": "Present the screened ETFs as a list with the criteria each one meets.",
	},
	catalog.IntentGetETFDetails: {
		"pt": "Detalhe o ETF: objetivo, custo, principais posições, desempenho e riscos.",
		"en": "Detail the ETF: objective, cost, top holdings, performance and risks.",
	},
	catalog.IntentCreatePortfolio: {
		"pt": "Explique a alocação sugerida e o papel de cada posição no objetivo e perfil de risco informados.",
		"en": "Explain the suggested allocation and each position's role given the stated goal and risk profile.",
	},
	catalog.IntentAnalyzePortfolio: {
		"pt": "Avalie a carteira: diversificação, custo total, concentrações e pontos de atenção.",
		"en": "Assess the portfolio: diversification, total cost, concentrations and points of attention.",
	},
	catalog.IntentGetRankings: {
		"pt": "Apresente o ranking de forma ordenada e explique o critério de ordenação.",
		"en": "Present the ranking in order and explain the sorting criterion.",
	},
	catalog.IntentGetMarketNews: {
		"pt": "Resuma as notícias relevantes preservando as fontes citadas.",
		"en": "Summarize the relevant news, preserving the cited sources.",
	},
	catalog.IntentExplainConcept: {
		"pt": "Explique o conceito com um exemplo concreto do mercado de ETFs.",
		"en": "Explain the concept with a concrete example from the ETF market.",
	},
}

// instructionsFor returns the synthesis direction for an intent, with a
// generic fallback.
func instructionsFor(intentName, lang string) string {
	if byLang, ok := intentInstructions[intentName]; ok {
		if text, ok := byLang[lang]; ok {
			return text
		}
		if text, ok := byLang["pt"]; ok {
			return text
		}
	}
	if lang == "en" {
		return "Answer the user's request using the tool data."
	}
	return "Responda ao pedido do usuário usando os dados das ferramentas."
}

// fallbackAnswer is used when synthesis fails; it still tells the user which
// data was retrieved.
func fallbackAnswer(lang string, available []string) string {
	if lang == "en" {
		if len(available) == 0 {
			return "Sorry, I couldn't put an answer together right now. Please try again in a moment."
		}
		return fmt.Sprintf("Sorry, I couldn't put a full answer together right now, "+
			"but I did retrieve data from: %s. Please try again in a moment.",
			strings.Join(available, ", "))
	}
	if len(available) == 0 {
		return "Desculpe, não consegui montar uma resposta agora. Tente novamente em instantes."
	}
	return fmt.Sprintf("Desculpe, não consegui montar uma resposta completa agora, "+
		"mas obtive dados de: %s. Tente novamente em instantes.",
		strings.Join(available, ", "))
}
