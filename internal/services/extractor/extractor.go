// Package extractor converts free-text messages into structured fields and
// gates tool execution on an intent's required fields. Extraction is
// deliberately heuristic (regex + keyword tables): deterministic and
// fast-fail on missing required fields beats recall here.
package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vistalabs/vista/internal/catalog"
	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
	"github.com/vistalabs/vista/internal/models"
)

// Validation bounds applied before schema checks.
const (
	maxSymbols = 6
	maxLimit   = 50
	minAmount  = 100
	maxAmount  = 100_000_000
)

var (
	symbolRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,5}(?:\.[A-Z]{1,3})?\b`)
	amountRe = regexp.MustCompile(`(?i)(?:r\$|us\$|\$|€)?\s*(\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)\s*(mil|k|m|mi|milhões|milhoes|thousand|million)?`)
	limitRe  = regexp.MustCompile(`(?i)\btop\s+(\d{1,3})\b|\b(\d{1,3})\s+(?:melhores|maiores|best|top)\b`)
	daysRe   = regexp.MustCompile(`(?i)\b(?:últimos?|ultimos?|last|past)\s+(\d{1,3})\s+(?:dias?|days?)\b`)
	periodRe = regexp.MustCompile(`(?i)\b(1m|3m|6m|1y|3y|5y|max)\b`)
	yearsRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:anos?|years?)\b`)
)

// Tokens that look like tickers but never are.
var symbolStopwords = map[string]bool{
	"ETF": true, "ETFS": true, "VS": true, "EU": true, "OK": true,
	"USD": true, "BRL": true, "EUR": true, "THE": true, "AND": true,
	"TOP": true, "API": true, "FAQ": true, "IPO": true, "CDI": true,
}

var goalKeywords = map[string][]string{
	"retirement":   {"aposentadoria", "aposentar", "retirement", "retire"},
	"income":       {"renda passiva", "renda", "income", "dividendo", "dividend"},
	"preservation": {"preservar", "preservação", "proteger", "preservation", "preserve", "protect"},
	"growth":       {"crescimento", "crescer", "multiplicar", "growth", "grow", "longo prazo", "long term"},
}

var riskKeywords = map[string][]string{
	"conservative": {"conservador", "conservadora", "conservative", "baixo risco", "low risk", "seguro", "safe"},
	"aggressive":   {"arrojado", "arrojada", "agressivo", "agressiva", "aggressive", "alto risco", "high risk"},
	"moderate":     {"moderado", "moderada", "moderate", "médio risco", "medium risk", "balanceado", "balanced"},
}

// Extractor is the default conservative FieldExtractor implementation.
type Extractor struct {
	logger      *common.Logger
	maxFollowUp int
}

// Option configures the extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithMaxFollowUps caps follow-up questions per turn.
func WithMaxFollowUps(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFollowUp = n
		}
	}
}

// New creates a field extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger:      common.NewSilentLogger(),
		maxFollowUp: 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract pulls every recognizable field from a message regardless of intent.
func (e *Extractor) Extract(message string) map[string]any {
	fields := make(map[string]any)

	if symbols := extractSymbols(message); len(symbols) > 0 {
		fields["symbols"] = symbols
	}
	if amount, ok := extractAmount(message); ok {
		fields["amount"] = amount
	}
	if currency := extractCurrency(message); currency != "" {
		fields["currency"] = currency
	}
	if goal := matchKeywordTable(message, goalKeywords, []string{"retirement", "income", "preservation", "growth"}); goal != "" {
		fields["goal"] = goal
	}
	if risk := matchKeywordTable(message, riskKeywords, []string{"conservative", "aggressive", "moderate"}); risk != "" {
		fields["risk_profile"] = risk
	}
	if period := extractPeriod(message); period != "" {
		fields["period"] = period
	}
	if m := yearsRe.FindStringSubmatch(message); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil && years > 0 {
			fields["horizon_years"] = years
		}
	}
	if limit, ok := extractLimit(message); ok {
		fields["limit"] = limit
	}
	if days, ok := extractRecencyDays(message); ok {
		fields["recency_days"] = days
	}

	return fields
}

// PreValidate extracts fields for one turn, merges prior context fields,
// enforces the intent's required fields and validates the merged map against
// every allowed tool's input schema.
func (e *Extractor) PreValidate(intent *models.Intent, message, lang string, prior map[string]any) *models.ValidationResult {
	result := &models.ValidationResult{Data: make(map[string]any)}

	// Prior context first, this turn's extraction overwrites per key.
	for k, v := range prior {
		result.Data[k] = v
	}
	for k, v := range e.Extract(message) {
		result.Data[k] = v
	}

	// Intents that take a free-text query use the message itself. The current
	// message always overwrites a query carried over from an earlier turn,
	// same precedence as every other extracted field.
	if fieldRequired(intent, "query") {
		if q := strings.TrimSpace(message); q != "" {
			result.Data["query"] = q
		}
	}

	// Required-field gate.
	present := 0
	for _, field := range intent.RequiredFields {
		if hasValue(result.Data[field]) {
			present++
		} else {
			result.MissingFields = append(result.MissingFields, field)
		}
	}
	if n := len(intent.RequiredFields); n > 0 {
		result.Confidence = float64(present) / float64(n) * 100
		if result.Confidence > 100 {
			result.Confidence = 100
		}
	} else {
		result.Confidence = 100
	}

	if len(result.MissingFields) > 0 {
		result.Success = false
		result.FollowUpQuestions = questionsFor(result.MissingFields, lang, e.maxFollowUp)
		e.logger.Debug().
			Str("intent", intent.Name).
			Strs("missing", result.MissingFields).
			Msg("Validation failed on required fields")
		return result
	}

	e.applyBounds(result)

	// Schema check against every allowed tool.
	for _, toolName := range intent.AllowedTools {
		if errs := catalog.ValidateToolInput(toolName, result.Data); len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
		}
	}

	result.Success = len(result.Errors) == 0
	e.logger.Debug().
		Str("intent", intent.Name).
		Bool("success", result.Success).
		Strs("fields", sortedFields(result.Data)).
		Msg("Pre-validation complete")
	return result
}

// applyBounds clamps and truncates out-of-range values, recording warnings.
// Warnings never block success; unrecoverable values become errors.
func (e *Extractor) applyBounds(result *models.ValidationResult) {
	if raw, ok := result.Data["symbols"]; ok {
		if symbols := toStringSlice(raw); len(symbols) > maxSymbols {
			result.Data["symbols"] = symbols[:maxSymbols]
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("symbols truncated to the first %d of %d", maxSymbols, len(symbols)))
		}
	}

	if raw, ok := result.Data["limit"]; ok {
		if limit, ok := toInt(raw); ok && limit > maxLimit {
			result.Data["limit"] = maxLimit
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("limit clamped to %d", maxLimit))
		}
	}

	if raw, ok := result.Data["amount"]; ok {
		if amount, ok := toFloat(raw); ok {
			switch {
			case amount < minAmount:
				// No safe default below the investable minimum.
				result.Errors = append(result.Errors,
					fmt.Sprintf("amount %.2f is below the minimum of %d", amount, minAmount))
			case amount > maxAmount:
				result.Data["amount"] = float64(maxAmount)
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("amount clamped to %d", maxAmount))
			}
		}
	}
}

func extractSymbols(message string) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, m := range symbolRe.FindAllString(message, -1) {
		if symbolStopwords[m] || seen[m] {
			continue
		}
		seen[m] = true
		symbols = append(symbols, m)
	}
	return symbols
}

func extractAmount(message string) (float64, bool) {
	lower := strings.ToLower(message)

	// Only treat numbers as amounts when a money marker is nearby.
	if !strings.ContainsAny(message, "$€") &&
		!strings.Contains(lower, "reais") && !strings.Contains(lower, "real") &&
		!strings.Contains(lower, "dollar") && !strings.Contains(lower, "dólar") &&
		!strings.Contains(lower, "euro") && !strings.Contains(lower, "mil ") &&
		!strings.Contains(lower, "investir") && !strings.Contains(lower, "invest") {
		return 0, false
	}

	m := amountRe.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}

	value, err := parseLocalizedNumber(m[1])
	if err != nil {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "mil", "k", "thousand":
		value *= 1_000
	case "m", "mi", "milhões", "milhoes", "million":
		value *= 1_000_000
	}

	if value <= 0 {
		return 0, false
	}
	return value, true
}

// parseLocalizedNumber handles both "10.000,50" (pt) and "10,000.50" (en).
func parseLocalizedNumber(s string) (float64, error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot { // 10.000,50
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else { // 10,000.50
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// A lone comma with exactly 3 trailing digits is a thousands separator.
		if len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	case lastDot >= 0:
		if len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	return strconv.ParseFloat(s, 64)
}

func extractCurrency(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "r$") || strings.Contains(lower, "reais") || strings.Contains(lower, "real "):
		return "BRL"
	case strings.Contains(lower, "us$") || strings.Contains(lower, "dólar") || strings.Contains(lower, "dolar") || strings.Contains(lower, "dollar"):
		return "USD"
	case strings.Contains(message, "€") || strings.Contains(lower, "euro"):
		return "EUR"
	case strings.Contains(message, "$"):
		return "USD"
	}
	return ""
}

// matchKeywordTable returns the first category (in the given precedence
// order) with a keyword hit. Precedence keeps detection deterministic —
// map iteration order must never pick the winner.
func matchKeywordTable(message string, table map[string][]string, order []string) string {
	lower := strings.ToLower(message)
	for _, category := range order {
		for _, kw := range table[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return ""
}

func extractPeriod(message string) string {
	if m := periodRe.FindString(message); m != "" {
		return strings.ToLower(m)
	}
	if m := yearsRe.FindStringSubmatch(message); m != nil {
		years, err := strconv.Atoi(m[1])
		if err != nil {
			return ""
		}
		switch {
		case years <= 1:
			return "1y"
		case years <= 3:
			return "3y"
		case years <= 5:
			return "5y"
		default:
			return "max"
		}
	}
	return ""
}

func extractLimit(message string) (int, bool) {
	m := limitRe.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return limit, true
}

func extractRecencyDays(message string) (int, bool) {
	lower := strings.ToLower(message)
	if m := daysRe.FindStringSubmatch(message); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil && days > 0 {
			return days, true
		}
	}
	switch {
	case strings.Contains(lower, "hoje") || strings.Contains(lower, "today"):
		return 1, true
	case strings.Contains(lower, "semana") || strings.Contains(lower, "week"):
		return 7, true
	case strings.Contains(lower, "mês") || strings.Contains(lower, "mes ") || strings.Contains(lower, "month"):
		return 30, true
	}
	return 0, false
}

func fieldRequired(intent *models.Intent, field string) bool {
	for _, f := range intent.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

func hasValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

func toStringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}

// sortedFields is used by logging to keep output stable.
func sortedFields(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ensure Extractor implements FieldExtractor
var _ interfaces.FieldExtractor = (*Extractor)(nil)
