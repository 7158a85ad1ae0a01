package interpretation

import (
	"math"
	"strings"
)

// RequiredFieldCount is the number of fields that drive Progress.
const RequiredFieldCount = 8

// FilledRequired counts the required fields present in p: summary, mood,
// symbols, emotionalAnalysis.primaryEmotion, lifeConnections, keyMessage,
// reflectionQuestions and tags.
func FilledRequired(p *Partial) int {
	if p == nil {
		return 0
	}
	filled := 0
	if hasText(p.Summary) {
		filled++
	}
	if p.Mood != nil && strings.TrimSpace(string(*p.Mood)) != "" {
		filled++
	}
	if len(p.Symbols) > 0 {
		filled++
	}
	if p.EmotionalAnalysis != nil && hasText(p.EmotionalAnalysis.PrimaryEmotion) {
		filled++
	}
	if len(p.LifeConnections) > 0 {
		filled++
	}
	if hasText(p.KeyMessage) {
		filled++
	}
	if len(p.ReflectionQuestions) > 0 {
		filled++
	}
	if len(p.Tags) > 0 {
		filled++
	}
	return filled
}

// Progress returns round(filled/8*100).
func Progress(p *Partial) int {
	return int(math.Round(float64(FilledRequired(p)) / RequiredFieldCount * 100))
}
