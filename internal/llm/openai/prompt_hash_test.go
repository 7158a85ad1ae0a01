package openai

import (
	"strings"
	"testing"
)

func TestPromptHashDeterministic(t *testing.T) {
	_, messages := BuildPrompt("v1", "I was flying over a lake", "gpt-4o-mini")
	hash1 := hashPromptString(promptStringFromMessages(messages))
	hash2 := hashPromptString(promptStringFromMessages(messages))
	if hash1 != hash2 {
		t.Fatalf("expected deterministic prompt hash, got %q and %q", hash1, hash2)
	}

	_, messagesAlt := BuildPrompt("v1", "I was falling into a lake", "gpt-4o-mini")
	hashAlt := hashPromptString(promptStringFromMessages(messagesAlt))
	if hash1 == hashAlt {
		t.Fatalf("expected prompt hash to change when input changes")
	}
}

func TestBuildPromptFillsTemplate(t *testing.T) {
	used, messages := BuildPrompt("v9", "  Lensin  ", "gpt-4o-mini")
	if used != "v1" {
		t.Fatalf("expected unknown version to fall back to v1, got %q", used)
	}
	if len(messages) != 2 {
		t.Fatalf("expected developer and user messages, got %d", len(messages))
	}
	developer := messages[0].Content
	if strings.Contains(developer, "{{") {
		t.Fatalf("expected all placeholders replaced, got:\n%s", developer)
	}
	if !strings.Contains(developer, "Model: gpt-4o-mini") {
		t.Fatalf("expected model in developer prompt")
	}
	if messages[1].Role != "user" || messages[1].Content != "Dream:\nLensin" {
		t.Fatalf("unexpected user message %+v", messages[1])
	}
}
