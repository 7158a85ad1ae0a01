package interpretation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every schema violation reported by Validate.
var ErrInvalid = errors.New("interpretation does not match schema")

// Validate decodes raw into a Document and checks the schema constraints.
// Tags are trimmed and de-duplicated in insertion order.
func Validate(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return Document{}, fmt.Errorf("%w: empty payload", ErrInvalid)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: unmarshal: %v", ErrInvalid, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	doc.Tags = dedupe(doc.Tags)
	return doc, nil
}

// Validate checks required fields and enumerations.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalid)
	}
	if strings.TrimSpace(d.Summary) == "" {
		return fmt.Errorf("%w: summary is required", ErrInvalid)
	}
	if !d.Mood.Valid() {
		return fmt.Errorf("%w: mood %q is not allowed", ErrInvalid, d.Mood)
	}
	if len(d.Symbols) == 0 {
		return fmt.Errorf("%w: symbols must not be empty", ErrInvalid)
	}
	for i, s := range d.Symbols {
		if strings.TrimSpace(s.Symbol) == "" || strings.TrimSpace(s.Meaning) == "" {
			return fmt.Errorf("%w: symbols[%d] requires symbol and meaning", ErrInvalid, i)
		}
		if !s.Relevance.Valid() {
			return fmt.Errorf("%w: symbols[%d].relevance %q is not allowed", ErrInvalid, i, s.Relevance)
		}
	}
	if strings.TrimSpace(d.EmotionalAnalysis.PrimaryEmotion) == "" {
		return fmt.Errorf("%w: emotionalAnalysis.primaryEmotion is required", ErrInvalid)
	}
	if len(d.LifeConnections) == 0 {
		return fmt.Errorf("%w: lifeConnections must not be empty", ErrInvalid)
	}
	for i, lc := range d.LifeConnections {
		if !lc.Area.Valid() {
			return fmt.Errorf("%w: lifeConnections[%d].area %q is not allowed", ErrInvalid, i, lc.Area)
		}
		if strings.TrimSpace(lc.Insight) == "" {
			return fmt.Errorf("%w: lifeConnections[%d].insight is required", ErrInvalid, i)
		}
	}
	if strings.TrimSpace(d.KeyMessage) == "" {
		return fmt.Errorf("%w: keyMessage is required", ErrInvalid)
	}
	if len(d.ReflectionQuestions) == 0 {
		return fmt.Errorf("%w: reflectionQuestions must not be empty", ErrInvalid)
	}
	if len(dedupe(d.Tags)) == 0 {
		return fmt.Errorf("%w: tags must not be empty", ErrInvalid)
	}
	if !d.Confidence.Valid() {
		return fmt.Errorf("%w: confidence %q is not allowed", ErrInvalid, d.Confidence)
	}
	return nil
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
