// Package language provides keyword/pattern based response-language
// detection. Detection is pure and deterministic: same message, same result.
package language

import (
	"regexp"
	"strings"

	"github.com/vistalabs/vista/internal/models"
)

// Scoring weights. Diacritics are the strongest signal — they rarely appear
// in the wrong language.
const (
	keywordWeight   = 2
	diacriticWeight = 3

	maxConfidence      = 0.95
	fallbackConfidence = 0.5
)

// Languages supported by the assistant.
const (
	LangPortuguese = "pt"
	LangEnglish    = "en"
)

var keywords = map[string][]string{
	LangPortuguese: {
		"quero", "investir", "carteira", "comparar", "melhor", "qual",
		"quanto", "dinheiro", "renda", "aposentadoria", "risco", "taxa",
		"dividendos", "ações", "você", "não", "sim", "como", "para", "fazer",
	},
	LangEnglish: {
		"want", "invest", "portfolio", "compare", "best", "which",
		"how much", "money", "income", "retirement", "risk", "fee",
		"dividends", "stocks", "you", "the", "what", "should", "build",
	},
}

var patterns = map[string][]*regexp.Regexp{
	LangPortuguese: {
		regexp.MustCompile(`(?i)\b(o|a|os|as|um|uma)\s+\w+`),
		regexp.MustCompile(`(?i)\b\w+(ção|ções|mente|inho|inha)\b`),
		regexp.MustCompile(`(?i)\b(está|estão|são|tem|têm)\b`),
	},
	LangEnglish: {
		regexp.MustCompile(`(?i)\b(the|an?)\s+\w+`),
		regexp.MustCompile(`(?i)\b\w+(ing|tion|ly|ness)\b`),
		regexp.MustCompile(`(?i)\b(is|are|was|were|have|has)\b`),
	},
}

var diacritics = map[string]string{
	LangPortuguese: "ãõáéíóúâêôàç",
}

// Detector scores messages against per-language feature tables.
type Detector struct {
	fallback string
}

// NewDetector creates a detector with the given fallback language.
// Invalid fallbacks default to Portuguese.
func NewDetector(fallback string) *Detector {
	fallback = strings.ToLower(fallback)
	if fallback != LangPortuguese && fallback != LangEnglish {
		fallback = LangPortuguese
	}
	return &Detector{fallback: fallback}
}

// Detect picks the response language for a message. Zero total score and
// exact ties resolve to the fallback language with confidence 0.5.
func (d *Detector) Detect(message string) *models.Detection {
	lower := strings.ToLower(message)

	scores := map[string]int{}
	features := map[string][]string{}

	for lang, words := range keywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				scores[lang] += keywordWeight
				features[lang] = append(features[lang], "kw:"+w)
			}
		}
	}

	for lang, regexps := range patterns {
		for _, re := range regexps {
			if n := len(re.FindAllStringIndex(message, -1)); n > 0 {
				scores[lang] += n
				features[lang] = append(features[lang], "pattern:"+re.String())
			}
		}
	}

	for lang, chars := range diacritics {
		count := 0
		for _, r := range lower {
			if strings.ContainsRune(chars, r) {
				count++
			}
		}
		if count > 0 {
			scores[lang] += count * diacriticWeight
			features[lang] = append(features[lang], "diacritics")
		}
	}

	total := 0
	for _, s := range scores {
		total += s
	}
	if total == 0 {
		return &models.Detection{Language: d.fallback, Confidence: fallbackConfidence}
	}

	winner := d.fallback
	best := -1
	tie := false
	for _, lang := range []string{LangPortuguese, LangEnglish} {
		s := scores[lang]
		if s > best {
			winner, best, tie = lang, s, false
		} else if s == best {
			tie = true
		}
	}
	if tie {
		return &models.Detection{Language: d.fallback, Confidence: fallbackConfidence}
	}

	confidence := float64(best) / float64(total)
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return &models.Detection{
		Language:        winner,
		Confidence:      confidence,
		MatchedFeatures: features[winner],
	}
}
