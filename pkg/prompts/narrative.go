package prompts

import (
	"fmt"
	"strings"
)

// NarrativeEvent is one step of a lineage, already ordered chronologically.
type NarrativeEvent struct {
	Title         string
	Source        string
	OccurredAt    string // formatted date
	RiskScore     float64
	Themes        []string
	DaysSincePrev int
}

// BuildNarrativePrompt creates the prompt for summarizing how two entities'
// shared event history developed.
func BuildNarrativePrompt(entityA, entityB string, events []NarrativeEvent, escalation bool) string {
	var prompt strings.Builder

	prompt.WriteString("# Lineage Narrative\n\n")
	prompt.WriteString(fmt.Sprintf("Summarize the relationship between %s and %s based on the events that mention both.\n\n", entityA, entityB))

	prompt.WriteString("## Events (chronological)\n\n")
	for i, e := range events {
		prompt.WriteString(fmt.Sprintf("%d. %s (%s, %s, risk %.0f", i+1, e.Title, e.OccurredAt, e.Source, e.RiskScore))
		if len(e.Themes) > 0 {
			prompt.WriteString(", themes: " + strings.Join(e.Themes, "/"))
		}
		if i > 0 {
			prompt.WriteString(fmt.Sprintf(", +%dd", e.DaysSincePrev))
		}
		prompt.WriteString(")\n")
	}
	prompt.WriteString("\n")

	if escalation {
		prompt.WriteString("Risk escalated over this window; reflect that trajectory.\n\n")
	}

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond with 2-4 sentences of plain prose. No JSON, no headers, no bullet points. ")
	prompt.WriteString("State what connects the entities and how the situation developed; do not speculate beyond the listed events.\n")

	return prompt.String()
}

// BuildNarrativeSystemMessage returns the system message for narrative generation.
func BuildNarrativeSystemMessage() string {
	return `You are a geopolitical analyst writing terse situation summaries. Your task is to describe how two entities' shared event history developed, strictly grounded in the events provided.`
}
