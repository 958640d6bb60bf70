package assistant

import (
	_ "embed"
	"strings"
)

//go:embed prompts/persona.txt
var personaPrompt string

const DefaultAssistantName = "Yennefer"

// SystemPrompt returns override when set, the built-in persona otherwise.
func SystemPrompt(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return strings.TrimSpace(personaPrompt)
}
