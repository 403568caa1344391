// Package prompts builds the prompts sent to collaborator LLMs. Each builder
// takes plain context structs so callers stay decoupled from model types.
package prompts

import (
	"fmt"
	"strings"
)

// BuildThemeExtractionPrompt creates the prompt for tagging an event with
// geopolitical themes. The collaborator may answer with free-form tags; the
// theme normalizer maps them onto the fixed category set afterwards.
func BuildThemeExtractionPrompt(title, body string) string {
	var prompt strings.Builder

	prompt.WriteString("# Event Theme Extraction\n\n")
	prompt.WriteString("Tag the following news event with the geopolitical themes it touches.\n\n")

	prompt.WriteString("## Event\n\n")
	prompt.WriteString(fmt.Sprintf("Title: %s\n", title))
	if body != "" {
		prompt.WriteString(fmt.Sprintf("Body: %s\n", body))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Guidelines\n\n")
	prompt.WriteString("- Prefer these categories when they fit: sanctions, trade, political, adversarial, energy\n")
	prompt.WriteString("- Free-form tags are acceptable (e.g. \"oil exports\", \"asset freeze\"); they will be normalized\n")
	prompt.WriteString("- Tag only themes the event actually covers; one to three tags is typical\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `tags`: Array of theme tags, most relevant first\n\n")
	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{"tags": ["sanctions", "oil exports"]}` + "\n")
	prompt.WriteString("```\n")

	return prompt.String()
}

// BuildThemeExtractionSystemMessage returns the system message for theme extraction.
func BuildThemeExtractionSystemMessage() string {
	return `You are a geopolitical event analyst. Your task is to tag news events with the themes they cover, preferring a small fixed vocabulary over invented categories.`
}
