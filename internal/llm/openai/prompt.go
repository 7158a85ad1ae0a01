package openai

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"

	"dream-backend/internal/llm"
)

// Message represents one prompt message sent to the model.
type Message struct {
	Role    string
	Content string
}

const (
	systemPrompt = "You are a dream interpretation engine. Respond with JSON only. Output must match the schema exactly."

	minSymbols = 2
	maxSymbols = 5
)

// BuildPrompt creates the developer and user messages for an interpretation
// request and reports the prompt version actually used.
func BuildPrompt(promptVersion, dreamText, model string) (string, []Message) {
	usedVersion, developer := resolvePromptTemplate(promptVersion, model)
	return usedVersion, []Message{
		{Role: "developer", Content: developer},
		{Role: "user", Content: buildUserPrompt(dreamText)},
	}
}

func resolvePromptTemplate(promptVersion, model string) (string, string) {
	version := strings.TrimSpace(promptVersion)
	template, ok := llm.PromptTemplate(version)
	usedVersion := version
	if !ok {
		log.Printf("unknown prompt version %q, defaulting to %s", version, llm.DefaultPromptVersion)
		usedVersion = llm.DefaultPromptVersion
		template, _ = llm.PromptTemplate(usedVersion)
	}

	replacer := strings.NewReplacer(
		"{{PROMPT_VERSION}}", usedVersion,
		"{{MODEL}}", model,
		"{{MIN_SYMBOLS}}", strconv.Itoa(minSymbols),
		"{{MAX_SYMBOLS}}", strconv.Itoa(maxSymbols),
	)
	return usedVersion, replacer.Replace(template)
}

func buildUserPrompt(dreamText string) string {
	return fmt.Sprintf("Dream:\n%s", strings.TrimSpace(dreamText))
}

func promptStringFromMessages(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func hashPromptString(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
