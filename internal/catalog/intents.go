// Package catalog holds the static intent and tool registries. Both are
// immutable after process start.
package catalog

import (
	"strings"
	"time"

	"github.com/vistalabs/vista/internal/models"
)

// Intent names (closed enum). Classification output outside this set is a
// classification failure, never a guessed default.
const (
	IntentCompareETFs       = "COMPARE_ETFS"
	IntentScreenETFs        = "SCREEN_ETFS"
	IntentGetETFDetails     = "GET_ETF_DETAILS"
	IntentCreatePortfolio   = "CREATE_OPTIMIZED_PORTFOLIO"
	IntentAnalyzePortfolio  = "ANALYZE_PORTFOLIO"
	IntentGetRankings       = "GET_RANKINGS"
	IntentGetMarketNews     = "GET_MARKET_NEWS"
	IntentExplainConcept    = "EXPLAIN_CONCEPT"
)

var intents = []*models.Intent{
	{
		Name:              IntentCompareETFs,
		Description:       "Compare 2-6 ETFs side by side on returns, fees, dividends and risk",
		RequiredFields:    []string{"symbols"},
		OptionalFields:    []string{"period", "metrics"},
		AllowedTools:      []string{"etf_compare"},
		Category:          "analysis",
		Complexity:        models.ComplexityMedium,
		EstimatedDuration: 4 * time.Second,
		Keywords: []string{
			"compare", "comparar", "compara", "versus", " vs ", "vs.",
			"diferença entre", "difference between", "melhor entre",
		},
	},
	{
		Name:              IntentScreenETFs,
		Description:       "Filter the ETF universe by quantitative criteria",
		RequiredFields:    []string{},
		OptionalFields:    []string{"asset_class", "max_expense_ratio", "min_dividend_yield", "limit"},
		AllowedTools:      []string{"screener_run"},
		Category:          "discovery",
		Complexity:        models.ComplexityMedium,
		EstimatedDuration: 3 * time.Second,
		Keywords: []string{
			"screener", "filtrar", "filter", "encontrar etf", "find etf",
			"buscar etf", "quais etfs", "which etfs", "listar etfs",
		},
	},
	{
		Name:              IntentGetETFDetails,
		Description:       "Detailed profile for a single ETF",
		RequiredFields:    []string{"symbols"},
		OptionalFields:    []string{"period"},
		AllowedTools:      []string{"etf_details_get"},
		Category:          "analysis",
		Complexity:        models.ComplexityLow,
		EstimatedDuration: 2 * time.Second,
		Keywords: []string{
			"detalhes", "details", "sobre o etf", "about the etf",
			"o que é o etf", "what is the etf", "ficha do", "perfil do",
		},
	},
	{
		Name:              IntentCreatePortfolio,
		Description:       "Build an optimized ETF portfolio for a goal, risk profile and amount",
		RequiredFields:    []string{"goal", "risk_profile", "amount", "currency"},
		OptionalFields:    []string{"horizon_years", "monthly_contribution"},
		AllowedTools:      []string{"portfolio_optimize"},
		Category:          "planning",
		Complexity:        models.ComplexityHigh,
		EstimatedDuration: 8 * time.Second,
		Keywords: []string{
			"quero investir", "montar carteira", "criar carteira", "build a portfolio",
			"create a portfolio", "invest ", "investir", "alocar", "allocate",
		},
	},
	{
		Name:              IntentAnalyzePortfolio,
		Description:       "Analyze an existing allocation for concentration, cost and drift",
		RequiredFields:    []string{"symbols"},
		OptionalFields:    []string{"weights", "period"},
		AllowedTools:      []string{"portfolio_analyze"},
		Category:          "analysis",
		Complexity:        models.ComplexityHigh,
		EstimatedDuration: 6 * time.Second,
		Keywords: []string{
			"analisar carteira", "minha carteira", "analyze my portfolio",
			"my portfolio", "avaliar carteira", "review my portfolio",
		},
	},
	{
		Name:              IntentGetRankings,
		Description:       "Ranked ETF lists by return, yield, volume or flows",
		RequiredFields:    []string{},
		OptionalFields:    []string{"ranking_type", "asset_class", "limit"},
		AllowedTools:      []string{"rankings_get"},
		Category:          "discovery",
		Complexity:        models.ComplexityLow,
		EstimatedDuration: 2 * time.Second,
		Keywords: []string{
			"ranking", "melhores etfs", "best etfs", "top etfs",
			"maiores altas", "piores", "mais negociados",
		},
	},
	{
		Name:              IntentGetMarketNews,
		Description:       "Recent market or ETF news via the external news provider",
		RequiredFields:    []string{"query"},
		OptionalFields:    []string{"recency_days", "symbols"},
		AllowedTools:      []string{"perplexity_news_search"},
		Category:          "news",
		Complexity:        models.ComplexityMedium,
		EstimatedDuration: 5 * time.Second,
		Keywords: []string{
			"notícias", "noticias", "news", "aconteceu", "happened",
			"últimas", "latest on", "novidades",
		},
	},
	{
		Name:              IntentExplainConcept,
		Description:       "Explain an investment concept in plain language",
		RequiredFields:    []string{"query"},
		OptionalFields:    []string{},
		AllowedTools:      []string{},
		Category:          "education",
		Complexity:        models.ComplexityLow,
		EstimatedDuration: 2 * time.Second,
		Keywords: []string{
			"o que é", "o que significa", "what is", "what does", "explique",
			"explain", "como funciona", "how does", "significa",
		},
	},
}

var intentsByName = func() map[string]*models.Intent {
	m := make(map[string]*models.Intent, len(intents))
	for _, in := range intents {
		m[in.Name] = in
	}
	return m
}()

// Intents returns all registered intents in declaration order.
func Intents() []*models.Intent {
	return intents
}

// IntentByName looks up an intent by its exact name.
func IntentByName(name string) (*models.Intent, bool) {
	in, ok := intentsByName[name]
	return in, ok
}

// IntentNames returns the closed set of intent names.
func IntentNames() []string {
	names := make([]string, len(intents))
	for i, in := range intents {
		names[i] = in.Name
	}
	return names
}

// MatchKeyword returns the first intent whose keyword list contains a
// case-insensitive substring of the message, or nil. This is classification
// tier 1; declaration order is the tie-break.
func MatchKeyword(message string) *models.Intent {
	lower := strings.ToLower(message)
	for _, in := range intents {
		for _, kw := range in.Keywords {
			if strings.Contains(lower, kw) {
				return in
			}
		}
	}
	return nil
}
