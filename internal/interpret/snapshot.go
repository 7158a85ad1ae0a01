package interpret

import (
	"bytes"
	"encoding/json"
	"strings"

	"dream-backend/internal/interpretation"
	"dream-backend/internal/partialjson"
)

var emptyObject = []byte("{}")

// snapshotter accumulates model text and turns each growth into a full
// snapshot of the partial document.
type snapshotter struct {
	text   strings.Builder
	last   []byte
	frames int
}

// push appends delta and returns the new snapshot when it differs from the
// previous one.
func (s *snapshotter) push(delta string) (json.RawMessage, bool) {
	s.text.WriteString(delta)
	return s.snapshot()
}

func (s *snapshotter) snapshot() (json.RawMessage, bool) {
	closed, ok := partialjson.Complete(s.text.String())
	if !ok {
		return nil, false
	}
	p, err := interpretation.DecodePartial([]byte(closed))
	if err != nil {
		return nil, false
	}
	dropUnsettledEnums(&p)
	out, err := json.Marshal(p)
	if err != nil || bytes.Equal(out, emptyObject) || bytes.Equal(out, s.last) {
		return nil, false
	}
	s.last = out
	s.frames++
	return out, true
}

// emitted reports whether any snapshot has been produced.
func (s *snapshotter) emitted() bool {
	return s.last != nil
}

// dropUnsettledEnums hides enum values that are still being typed out, so a
// snapshot never carries "pea" on its way to "peaceful".
func dropUnsettledEnums(p *interpretation.Partial) {
	if p.Mood != nil && !p.Mood.Valid() {
		p.Mood = nil
	}
	if p.Confidence != nil && !p.Confidence.Valid() {
		p.Confidence = nil
	}
	for i := range p.Symbols {
		if r := p.Symbols[i].Relevance; r != nil && !r.Valid() {
			p.Symbols[i].Relevance = nil
		}
	}
	for i := range p.LifeConnections {
		if a := p.LifeConnections[i].Area; a != nil && !a.Valid() {
			p.LifeConnections[i].Area = nil
		}
	}
}
