package dreams

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"dream-backend/internal/interpretation"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon maps keyword stems to moods and tags.
type Lexicon struct {
	DefaultMood string         `yaml:"default_mood"`
	MaxTags     int            `yaml:"max_tags"`
	Moods       []LexiconEntry `yaml:"moods"`
	Tags        []LexiconEntry `yaml:"tags"`
}

type LexiconEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

var (
	defaultLexiconOnce sync.Once
	defaultLexicon     *Lexicon
	defaultLexiconErr  error
)

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() (*Lexicon, error) {
	defaultLexiconOnce.Do(func() {
		defaultLexicon, defaultLexiconErr = ParseLexicon(defaultLexiconYAML)
	})
	return defaultLexicon, defaultLexiconErr
}

// ParseLexicon decodes and checks a YAML lexicon. Mood names must be valid
// interpretation moods.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if lex.DefaultMood == "" {
		lex.DefaultMood = string(interpretation.MoodNeutral)
	}
	if !interpretation.Mood(lex.DefaultMood).Valid() {
		return nil, fmt.Errorf("lexicon default_mood %q is not a known mood", lex.DefaultMood)
	}
	for _, m := range lex.Moods {
		if !interpretation.Mood(m.Name).Valid() {
			return nil, fmt.Errorf("lexicon mood %q is not a known mood", m.Name)
		}
	}
	if lex.MaxTags <= 0 {
		lex.MaxTags = 5
	}
	lex.Moods = normalizeEntries(lex.Moods)
	lex.Tags = normalizeEntries(lex.Tags)
	return &lex, nil
}

func normalizeEntries(entries []LexiconEntry) []LexiconEntry {
	out := make([]LexiconEntry, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		keywords := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		out = append(out, LexiconEntry{Name: name, Keywords: keywords})
	}
	return out
}

// Derive picks the mood with the most keyword hits (earliest entry wins a
// tie, default mood when nothing matches) and the tags with at least one hit,
// in lexicon order, capped at MaxTags.
func (l *Lexicon) Derive(texts ...string) (string, []string) {
	words := tokenize(strings.Join(texts, " "))

	mood := l.DefaultMood
	best := 0
	for _, m := range l.Moods {
		if hits := countHits(words, m.Keywords); hits > best {
			best = hits
			mood = m.Name
		}
	}

	tags := []string{}
	for _, t := range l.Tags {
		if len(tags) >= l.MaxTags {
			break
		}
		if countHits(words, t.Keywords) > 0 {
			tags = append(tags, t.Name)
		}
	}
	return mood, tags
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countHits(words, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(k, " ") {
			if strings.Contains(" "+strings.Join(words, " ")+" ", " "+k) {
				hits++
			}
			continue
		}
		for _, w := range words {
			if strings.HasPrefix(w, k) {
				hits++
				break
			}
		}
	}
	return hits
}
