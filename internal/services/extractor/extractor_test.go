package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalabs/vista/internal/catalog"
)

func TestExtract_Symbols(t *testing.T) {
	e := New()

	fields := e.Extract("Compare SPY vs VTI vs QQQ")
	symbols, ok := fields["symbols"].([]string)
	require.True(t, ok, "expected symbols, got %v", fields)
	assert.Equal(t, []string{"SPY", "VTI", "QQQ"}, symbols)
}

func TestExtract_SymbolStopwords(t *testing.T) {
	e := New()

	fields := e.Extract("Qual o melhor ETF: BOVA11 ou IVVB11? USD ou BRL?")
	symbols, _ := fields["symbols"].([]string)
	assert.NotContains(t, symbols, "USD")
	assert.NotContains(t, symbols, "BRL")
	assert.NotContains(t, symbols, "ETF")
}

func TestExtract_AmountAndCurrency(t *testing.T) {
	e := New()

	tests := []struct {
		message  string
		amount   float64
		currency string
	}{
		{"Quero investir R$ 10.000 para aposentadoria", 10000, "BRL"},
		{"I want to invest $5,000.50", 5000.50, "USD"},
		{"investir 50 mil reais", 50000, "BRL"},
		{"invest €2000 in euro funds", 2000, "EUR"},
	}

	for _, tt := range tests {
		fields := e.Extract(tt.message)
		assert.Equal(t, tt.amount, fields["amount"], "message %q", tt.message)
		assert.Equal(t, tt.currency, fields["currency"], "message %q", tt.message)
	}
}

func TestExtract_GoalAndRisk(t *testing.T) {
	e := New()

	fields := e.Extract("Sou conservador e quero renda passiva")
	assert.Equal(t, "conservative", fields["risk_profile"])
	assert.Equal(t, "income", fields["goal"])

	fields = e.Extract("aggressive growth for the long term")
	assert.Equal(t, "aggressive", fields["risk_profile"])
	assert.Equal(t, "growth", fields["goal"])
}

func TestExtract_PeriodAndLimit(t *testing.T) {
	e := New()

	fields := e.Extract("top 10 ETFs nos últimos 5 anos")
	assert.Equal(t, 10, fields["limit"])
	assert.Equal(t, "5y", fields["period"])
}

func TestPreValidate_CompareSuccess(t *testing.T) {
	e := New()
	intent, _ := catalog.IntentByName(catalog.IntentCompareETFs)

	result := e.PreValidate(intent, "Compare SPY vs VTI vs QQQ", "en", nil)
	require.True(t, result.Success, "errors=%v missing=%v", result.Errors, result.MissingFields)

	symbols, _ := result.Data["symbols"].([]string)
	assert.Len(t, symbols, 3)
	assert.Equal(t, float64(100), result.Confidence)
}

func TestPreValidate_MissingRequiredFields(t *testing.T) {
	e := New(WithMaxFollowUps(2))
	intent, _ := catalog.IntentByName(catalog.IntentCreatePortfolio)

	result := e.PreValidate(intent, "Quero investir", "pt", nil)
	assert.False(t, result.Success)
	assert.Len(t, result.MissingFields, 4)
	assert.NotEmpty(t, result.FollowUpQuestions)
	assert.LessOrEqual(t, len(result.FollowUpQuestions), 2)
	assert.Equal(t, float64(0), result.Confidence)
}

func TestPreValidate_NeverSucceedsWithMissingRequired(t *testing.T) {
	e := New()

	// Invariant: success=true implies every required field present.
	messages := []string{
		"", "Quero investir", "help", "o que fazer?", "Compare",
		"quero uma carteira conservadora", "invest for retirement",
	}
	for _, intent := range catalog.Intents() {
		for _, msg := range messages {
			result := e.PreValidate(intent, msg, "pt", nil)
			if !result.Success {
				continue
			}
			for _, field := range intent.RequiredFields {
				assert.True(t, hasValue(result.Data[field]),
					"intent %s message %q: success with missing required field %s",
					intent.Name, msg, field)
			}
		}
	}
}

func TestPreValidate_PriorContextFillsGaps(t *testing.T) {
	e := New()
	intent, _ := catalog.IntentByName(catalog.IntentCreatePortfolio)

	prior := map[string]any{
		"goal":         "retirement",
		"risk_profile": "moderate",
		"currency":     "BRL",
	}

	result := e.PreValidate(intent, "quero investir 10 mil reais", "pt", prior)
	require.True(t, result.Success, "missing=%v errors=%v", result.MissingFields, result.Errors)
	assert.Equal(t, float64(10000), result.Data["amount"])
	assert.Equal(t, "retirement", result.Data["goal"])
}

func TestPreValidate_CurrentQueryOverwritesPrior(t *testing.T) {
	e := New()
	intent, _ := catalog.IntentByName(catalog.IntentGetMarketNews)

	// A query accumulated on an earlier turn must not shadow what the user
	// is asking now.
	prior := map[string]any{"query": "O que é expense ratio?"}

	result := e.PreValidate(intent, "me mostra as notícias do mercado hoje", "pt", prior)
	require.True(t, result.Success, "missing=%v errors=%v", result.MissingFields, result.Errors)
	assert.Equal(t, "me mostra as notícias do mercado hoje", result.Data["query"])
}

func TestPreValidate_SymbolTruncationWarning(t *testing.T) {
	e := New()
	intent, _ := catalog.IntentByName(catalog.IntentCompareETFs)

	result := e.PreValidate(intent, "Compare SPY VTI QQQ VOO IVV SCHD BND AGG", "en", nil)
	require.True(t, result.Success, "truncation should warn, not fail: %v", result.Errors)

	symbols, _ := result.Data["symbols"].([]string)
	assert.Len(t, symbols, 6)
	assert.NotEmpty(t, result.Warnings)
}

func TestPreValidate_SchemaRejectsSingleSymbolCompare(t *testing.T) {
	e := New()
	intent, _ := catalog.IntentByName(catalog.IntentCompareETFs)

	// One symbol violates the compare tool's minItems of 2.
	result := e.PreValidate(intent, "Compare SPY", "en", nil)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestPreValidate_AmountBelowMinimumFails(t *testing.T) {
	e := New()
	intent, _ := catalog.IntentByName(catalog.IntentCreatePortfolio)

	prior := map[string]any{"goal": "growth", "risk_profile": "moderate", "currency": "USD"}
	result := e.PreValidate(intent, "invest $50", "en", prior)
	assert.False(t, result.Success)
}

func TestQuestionsFor_Language(t *testing.T) {
	pt := questionsFor([]string{"goal", "risk_profile", "amount"}, "pt", 2)
	require.Len(t, pt, 2)

	en := questionsFor([]string{"goal"}, "en", 2)
	assert.NotEqual(t, pt[0], en[0], "expected language-specific questions")

	generic := questionsFor([]string{"unheard_of_field"}, "en", 2)
	require.Len(t, generic, 1)
}
