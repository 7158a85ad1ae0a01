package dreams

import (
	"reflect"
	"testing"
)

func TestDefaultLexiconParses(t *testing.T) {
	lex, err := DefaultLexicon()
	if err != nil {
		t.Fatalf("DefaultLexicon: %v", err)
	}
	if lex.DefaultMood != "neutral" || lex.MaxTags != 5 || len(lex.Moods) == 0 || len(lex.Tags) == 0 {
		t.Fatalf("unexpected lexicon %+v", lex)
	}
}

func TestDerive(t *testing.T) {
	lex, err := DefaultLexicon()
	if err != nil {
		t.Fatalf("DefaultLexicon: %v", err)
	}

	tests := []struct {
		name     string
		text     string
		wantMood string
		wantTags []string
	}{
		{name: "english", text: "I was flying over calm clouds above the lake", wantMood: "peaceful", wantTags: []string{"flying", "water", "sky"}},
		{name: "finnish", text: "Lensin pilvien yllä ja kaikki oli rauhallista", wantMood: "peaceful", wantTags: []string{"flying", "sky"}},
		{name: "fear", text: "A monster was chasing me through the house", wantMood: "fearful", wantTags: []string{"chase", "house"}},
		{name: "nothing", text: "Blue purple orange", wantMood: "neutral", wantTags: []string{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mood, tags := lex.Derive(tt.text)
			if mood != tt.wantMood {
				t.Fatalf("expected mood %s, got %s", tt.wantMood, mood)
			}
			if !reflect.DeepEqual(tags, tt.wantTags) {
				t.Fatalf("expected tags %v, got %v", tt.wantTags, tags)
			}
		})
	}
}

func TestDeriveTieGoesToEarlierMood(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
moods:
  - name: happy
    keywords: [sun]
  - name: sad
    keywords: [rain]
tags: []
`))
	if err != nil {
		t.Fatalf("ParseLexicon: %v", err)
	}
	if mood, _ := lex.Derive("sun and rain"); mood != "happy" {
		t.Fatalf("expected earlier mood to win the tie, got %s", mood)
	}
}

func TestDeriveCapsTags(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
max_tags: 2
tags:
  - {name: a, keywords: [alpha]}
  - {name: b, keywords: [beta]}
  - {name: c, keywords: [gamma]}
`))
	if err != nil {
		t.Fatalf("ParseLexicon: %v", err)
	}
	if _, tags := lex.Derive("alpha beta gamma"); !reflect.DeepEqual(tags, []string{"a", "b"}) {
		t.Fatalf("expected two tags, got %v", tags)
	}
}

func TestParseLexiconRejectsUnknownMood(t *testing.T) {
	if _, err := ParseLexicon([]byte("moods:\n  - name: grumpy\n    keywords: [grr]\n")); err == nil {
		t.Fatalf("expected unknown mood to be rejected")
	}
	if _, err := ParseLexicon([]byte("moods: [")); err == nil {
		t.Fatalf("expected malformed yaml to fail")
	}
}
