package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_Portuguese(t *testing.T) {
	d := NewDetector("pt")

	det := d.Detect("Quero investir na minha aposentadoria, qual a melhor carteira?")
	assert.Equal(t, LangPortuguese, det.Language)
	assert.Greater(t, det.Confidence, 0.5, "expected confidence above fallback")
}

func TestDetect_English(t *testing.T) {
	d := NewDetector("pt")

	det := d.Detect("I want to build the best retirement portfolio, which ETFs should I pick?")
	assert.Equal(t, LangEnglish, det.Language)
	assert.NotEmpty(t, det.MatchedFeatures, "expected matched features for a scoring message")
}

func TestDetect_ZeroScoreFallsBack(t *testing.T) {
	d := NewDetector("en")

	det := d.Detect("xyz 123")
	assert.Equal(t, LangEnglish, det.Language)
	assert.Equal(t, 0.5, det.Confidence)
}

func TestDetect_ConfidenceCapped(t *testing.T) {
	d := NewDetector("pt")

	// Heavy diacritics and keywords push the raw ratio to 1.0.
	det := d.Detect("ações não são opção à aposentadoria, você quer investir em renda")
	assert.LessOrEqual(t, det.Confidence, 0.95)
}

func TestDetect_Deterministic(t *testing.T) {
	d := NewDetector("pt")
	msg := "Compare SPY vs VTI for the long run"

	first := d.Detect(msg)
	for i := 0; i < 5; i++ {
		got := d.Detect(msg)
		assert.Equal(t, first.Language, got.Language)
		assert.Equal(t, first.Confidence, got.Confidence)
	}
}

func TestNewDetector_InvalidFallback(t *testing.T) {
	d := NewDetector("fr")
	assert.Equal(t, LangPortuguese, d.fallback)
}
