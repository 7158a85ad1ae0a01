package interpretation

import (
	"fmt"
	"strings"
)

// Format flattens p into the display text stored with a saved dream.
// Sections appear in a fixed order and empty sections are left out entirely.
func Format(p *Partial) string {
	if p == nil {
		return ""
	}
	var sections []string

	if s := strings.TrimSpace(Text(p.Summary)); s != "" {
		sections = append(sections, "Summary\n"+s)
	}

	var symbols []string
	for _, sym := range p.Symbols {
		name := strings.TrimSpace(Text(sym.Symbol))
		meaning := strings.TrimSpace(Text(sym.Meaning))
		switch {
		case name != "" && meaning != "":
			symbols = append(symbols, fmt.Sprintf("- %s: %s", name, meaning))
		case name != "":
			symbols = append(symbols, "- "+name)
		}
	}
	if len(symbols) > 0 {
		sections = append(sections, "Symbols\n"+strings.Join(symbols, "\n"))
	}

	if ea := p.EmotionalAnalysis; ea != nil {
		var lines []string
		if v := strings.TrimSpace(Text(ea.PrimaryEmotion)); v != "" {
			lines = append(lines, "Primary emotion: "+v)
		}
		if secondary := nonEmpty(ea.SecondaryEmotions); len(secondary) > 0 {
			lines = append(lines, "Secondary emotions: "+strings.Join(secondary, ", "))
		}
		if v := strings.TrimSpace(Text(ea.Subconscious)); v != "" {
			lines = append(lines, v)
		}
		if v := strings.TrimSpace(Text(ea.JungianPerspective)); v != "" {
			lines = append(lines, "Jungian perspective: "+v)
		}
		if len(lines) > 0 {
			sections = append(sections, "Emotional analysis\n"+strings.Join(lines, "\n"))
		}
	}

	var connections []string
	for _, lc := range p.LifeConnections {
		insight := strings.TrimSpace(Text(lc.Insight))
		if insight == "" {
			continue
		}
		line := "- "
		if lc.Area != nil && *lc.Area != "" {
			line += string(*lc.Area) + ": "
		}
		line += insight
		if action := strings.TrimSpace(Text(lc.ActionSuggestion)); action != "" {
			line += " (" + action + ")"
		}
		connections = append(connections, line)
	}
	if len(connections) > 0 {
		sections = append(sections, "Life connections\n"+strings.Join(connections, "\n"))
	}

	if s := strings.TrimSpace(Text(p.KeyMessage)); s != "" {
		sections = append(sections, "Key message\n"+s)
	}

	if questions := nonEmpty(p.ReflectionQuestions); len(questions) > 0 {
		lines := make([]string, len(questions))
		for i, q := range questions {
			lines[i] = fmt.Sprintf("%d. %s", i+1, q)
		}
		sections = append(sections, "Reflection questions\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
