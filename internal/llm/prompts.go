package llm

import _ "embed"

var (
	//go:embed prompts/v1.txt
	promptV1 string
)

// DefaultPromptVersion is used when PROMPT_VERSION is unset or unknown.
const DefaultPromptVersion = "v1"

// PromptTemplate returns the prompt template text and whether the version was recognized.
func PromptTemplate(version string) (string, bool) {
	switch version {
	case "v1":
		return promptV1, true
	default:
		return promptV1, false
	}
}
