package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/vistalabs/vista/internal/models"
)

// Tool names referenced by the intent registry.
const (
	ToolETFCompare       = "etf_compare"
	ToolScreenerRun      = "screener_run"
	ToolETFDetailsGet    = "etf_details_get"
	ToolPortfolioOpt     = "portfolio_optimize"
	ToolPortfolioAnalyze = "portfolio_analyze"
	ToolRankingsGet      = "rankings_get"
	ToolNewsSearch       = "perplexity_news_search"
)

var tools = []*models.ToolDefinition{
	{
		Name:        ToolETFCompare,
		Description: "Side-by-side comparison of 2-6 ETFs",
		Method:      "POST",
		Endpoint:    "/etfs/compare",
		InputSchema: `{
			"type": "object",
			"properties": {
				"symbols": {
					"type": "array",
					"items": {"type": "string", "pattern": "^[A-Z0-9.]{1,12}$"},
					"minItems": 2,
					"maxItems": 6
				},
				"period": {"type": "string", "enum": ["1m", "3m", "6m", "1y", "3y", "5y", "max"]},
				"metrics": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["symbols"]
		}`,
		EstimatedDuration: 3 * time.Second,
	},
	{
		Name:        ToolScreenerRun,
		Description: "Filter the ETF universe by quantitative criteria",
		Method:      "POST",
		Endpoint:    "/etfs/screen",
		InputSchema: `{
			"type": "object",
			"properties": {
				"asset_class": {"type": "string"},
				"max_expense_ratio": {"type": "number", "minimum": 0, "maximum": 5},
				"min_dividend_yield": {"type": "number", "minimum": 0, "maximum": 50},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50}
			}
		}`,
		EstimatedDuration: 2 * time.Second,
	},
	{
		Name:        ToolETFDetailsGet,
		Description: "Detailed profile for one ETF",
		Method:      "GET",
		Endpoint:    "/etfs/details",
		InputSchema: `{
			"type": "object",
			"properties": {
				"symbols": {
					"type": "array",
					"items": {"type": "string", "pattern": "^[A-Z0-9.]{1,12}$"},
					"minItems": 1,
					"maxItems": 6
				},
				"period": {"type": "string"}
			},
			"required": ["symbols"]
		}`,
		EstimatedDuration: 2 * time.Second,
	},
	{
		Name:        ToolPortfolioOpt,
		Description: "Build an optimized ETF allocation for goal, risk and amount",
		Method:      "POST",
		Endpoint:    "/portfolios/optimize",
		InputSchema: `{
			"type": "object",
			"properties": {
				"goal": {"type": "string", "enum": ["growth", "income", "preservation", "retirement"]},
				"risk_profile": {"type": "string", "enum": ["conservative", "moderate", "aggressive"]},
				"amount": {"type": "number", "minimum": 100, "maximum": 100000000},
				"currency": {"type": "string", "enum": ["BRL", "USD", "EUR"]},
				"horizon_years": {"type": "integer", "minimum": 1, "maximum": 60},
				"monthly_contribution": {"type": "number", "minimum": 0}
			},
			"required": ["goal", "risk_profile", "amount", "currency"]
		}`,
		EstimatedDuration: 6 * time.Second,
	},
	{
		Name:        ToolPortfolioAnalyze,
		Description: "Analyze an existing allocation",
		Method:      "POST",
		Endpoint:    "/portfolios/analyze",
		InputSchema: `{
			"type": "object",
			"properties": {
				"symbols": {
					"type": "array",
					"items": {"type": "string", "pattern": "^[A-Z0-9.]{1,12}$"},
					"minItems": 1,
					"maxItems": 20
				},
				"weights": {"type": "array", "items": {"type": "number", "minimum": 0, "maximum": 1}},
				"period": {"type": "string"}
			},
			"required": ["symbols"]
		}`,
		EstimatedDuration: 5 * time.Second,
	},
	{
		Name:        ToolRankingsGet,
		Description: "Ranked ETF lists",
		Method:      "GET",
		Endpoint:    "/etfs/rankings",
		InputSchema: `{
			"type": "object",
			"properties": {
				"ranking_type": {"type": "string", "enum": ["return", "dividend_yield", "volume", "flows"]},
				"asset_class": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50}
			}
		}`,
		EstimatedDuration: 2 * time.Second,
	},
	{
		Name:        ToolNewsSearch,
		Description: "External news search (untrusted source)",
		External:    true,
		InputSchema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 2, "maxLength": 400},
				"recency_days": {"type": "integer", "minimum": 1, "maximum": 365},
				"symbols": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["query"]
		}`,
		EstimatedDuration: 5 * time.Second,
	},
}

var toolsByName = func() map[string]*models.ToolDefinition {
	m := make(map[string]*models.ToolDefinition, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}()

// compiled schemas, built once at init — a malformed registry schema is a
// programming error and should fail fast.
var toolSchemas = func() map[string]*gojsonschema.Schema {
	m := make(map[string]*gojsonschema.Schema, len(tools))
	for _, t := range tools {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(t.InputSchema))
		if err != nil {
			panic(fmt.Sprintf("catalog: invalid input schema for tool %s: %v", t.Name, err))
		}
		m[t.Name] = schema
	}
	return m
}()

// Tools returns all registered tool definitions in declaration order.
func Tools() []*models.ToolDefinition {
	return tools
}

// ToolByName looks up a tool definition by name.
func ToolByName(name string) (*models.ToolDefinition, bool) {
	t, ok := toolsByName[name]
	return t, ok
}

// ValidateToolInput checks a field map against a tool's input schema.
// Only fields the schema knows are submitted, so accumulated context fields
// for other intents don't trip unrelated validations.
func ValidateToolInput(toolName string, fields map[string]any) []string {
	schema, ok := toolSchemas[toolName]
	if !ok {
		return []string{fmt.Sprintf("unknown tool '%s'", toolName)}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(relevantFields(toolName, fields)))
	if err != nil {
		return []string{fmt.Sprintf("%s: schema validation failed: %v", toolName, err)}
	}

	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, fmt.Sprintf("%s: %s", toolName, e.String()))
	}
	return errs
}

// ToolFields projects the merged field map down to the fields a tool's
// schema declares, so dispatch payloads stay minimal.
func ToolFields(toolName string, fields map[string]any) map[string]any {
	return relevantFields(toolName, fields)
}

// schemaProperties caches the top-level property names per tool.
var schemaProperties = func() map[string]map[string]bool {
	type schemaDoc struct {
		Properties map[string]any `json:"properties"`
	}
	m := make(map[string]map[string]bool, len(tools))
	for _, t := range tools {
		var doc schemaDoc
		// Registry schemas already passed compilation above.
		_ = json.Unmarshal([]byte(t.InputSchema), &doc)
		props := make(map[string]bool, len(doc.Properties))
		for name := range doc.Properties {
			props[name] = true
		}
		m[t.Name] = props
	}
	return m
}()

func relevantFields(toolName string, fields map[string]any) map[string]any {
	props := schemaProperties[toolName]
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if props[k] {
			out[k] = v
		}
	}
	return out
}
