package interpretation

import (
	"encoding/json"
	"strings"
)

// Partial is a Document in which every field at every level may be missing.
// Snapshots streamed by the producer decode into this type.
type Partial struct {
	Summary             *string                   `json:"summary,omitempty"`
	Mood                *Mood                     `json:"mood,omitempty"`
	Symbols             []PartialSymbol           `json:"symbols,omitempty"`
	EmotionalAnalysis   *PartialEmotionalAnalysis `json:"emotionalAnalysis,omitempty"`
	LifeConnections     []PartialLifeConnection   `json:"lifeConnections,omitempty"`
	KeyMessage          *string                   `json:"keyMessage,omitempty"`
	ReflectionQuestions []string                  `json:"reflectionQuestions,omitempty"`
	Tags                []string                  `json:"tags,omitempty"`
	Confidence          *Confidence               `json:"confidence,omitempty"`
}

type PartialSymbol struct {
	Symbol    *string    `json:"symbol,omitempty"`
	Meaning   *string    `json:"meaning,omitempty"`
	Relevance *Relevance `json:"relevance,omitempty"`
}

type PartialEmotionalAnalysis struct {
	PrimaryEmotion     *string  `json:"primaryEmotion,omitempty"`
	SecondaryEmotions  []string `json:"secondaryEmotions,omitempty"`
	Subconscious       *string  `json:"subconscious,omitempty"`
	JungianPerspective *string  `json:"jungianPerspective,omitempty"`
}

type PartialLifeConnection struct {
	Area             *LifeArea `json:"area,omitempty"`
	Insight          *string   `json:"insight,omitempty"`
	ActionSuggestion *string   `json:"actionSuggestion,omitempty"`
}

// DecodePartial decodes one snapshot payload.
func DecodePartial(raw []byte) (Partial, error) {
	var p Partial
	if err := json.Unmarshal(raw, &p); err != nil {
		return Partial{}, err
	}
	return p, nil
}

// ToPartial lifts a complete document into its partial form so callers can hold
// one type regardless of whether validation succeeded.
func (d Document) ToPartial() Partial {
	p := Partial{
		Summary:             strPtr(d.Summary),
		KeyMessage:          strPtr(d.KeyMessage),
		ReflectionQuestions: d.ReflectionQuestions,
		Tags:                d.Tags,
	}
	if d.Mood != "" {
		mood := d.Mood
		p.Mood = &mood
	}
	if d.Confidence != "" {
		confidence := d.Confidence
		p.Confidence = &confidence
	}
	for _, s := range d.Symbols {
		ps := PartialSymbol{Symbol: strPtr(s.Symbol), Meaning: strPtr(s.Meaning)}
		if s.Relevance != "" {
			relevance := s.Relevance
			ps.Relevance = &relevance
		}
		p.Symbols = append(p.Symbols, ps)
	}
	ea := d.EmotionalAnalysis
	if ea.PrimaryEmotion != "" || len(ea.SecondaryEmotions) > 0 || ea.Subconscious != "" || ea.JungianPerspective != "" {
		p.EmotionalAnalysis = &PartialEmotionalAnalysis{
			PrimaryEmotion:     strPtr(ea.PrimaryEmotion),
			SecondaryEmotions:  ea.SecondaryEmotions,
			Subconscious:       strPtr(ea.Subconscious),
			JungianPerspective: strPtr(ea.JungianPerspective),
		}
	}
	for _, lc := range d.LifeConnections {
		plc := PartialLifeConnection{Insight: strPtr(lc.Insight), ActionSuggestion: strPtr(lc.ActionSuggestion)}
		if lc.Area != "" {
			area := lc.Area
			plc.Area = &area
		}
		p.LifeConnections = append(p.LifeConnections, plc)
	}
	return p
}

// IsComplete reports whether enough of the interpretation is present to show it:
// summary, mood, at least one symbol and the key message. It is looser than
// Validate.
func (p *Partial) IsComplete() bool {
	if p == nil {
		return false
	}
	return hasText(p.Summary) && p.Mood != nil && *p.Mood != "" && len(p.Symbols) > 0 && hasText(p.KeyMessage)
}

// Text returns the dereferenced value or "".
func Text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
