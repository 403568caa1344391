package prompts

import (
	"fmt"
	"strings"
)

// MentionContext describes the mention being resolved.
type MentionContext struct {
	Text        string
	EntityType  string
	CountryCode string // empty when unknown
	Source      string
}

// CandidateContext describes one canonical entity the matcher could not
// separate from the others on score alone.
type CandidateContext struct {
	ID          string
	Name        string
	EntityType  string
	CountryCode string // empty when unknown
	Aliases     []string
	Score       float64
}

// BuildDisambiguationPrompt creates the prompt for picking between
// near-threshold match candidates.
func BuildDisambiguationPrompt(mention MentionContext, candidates []CandidateContext) string {
	var prompt strings.Builder

	prompt.WriteString("# Entity Disambiguation\n\n")
	prompt.WriteString("A mention matched several known entities with nearly equal scores. ")
	prompt.WriteString("Decide which entity the mention refers to, or whether it is a new entity.\n\n")

	prompt.WriteString("## Mention\n\n")
	prompt.WriteString(fmt.Sprintf("- Text: %s\n", mention.Text))
	prompt.WriteString(fmt.Sprintf("- Entity type: %s\n", mention.EntityType))
	if mention.CountryCode != "" {
		prompt.WriteString(fmt.Sprintf("- Country: %s\n", mention.CountryCode))
	}
	if mention.Source != "" {
		prompt.WriteString(fmt.Sprintf("- Source feed: %s\n", mention.Source))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Candidates\n\n")
	for i, c := range candidates {
		prompt.WriteString(fmt.Sprintf("### Candidate %d: %s\n", i+1, c.Name))
		prompt.WriteString(fmt.Sprintf("- **ID**: %s\n", c.ID))
		prompt.WriteString(fmt.Sprintf("- **Entity type**: %s\n", c.EntityType))
		if c.CountryCode != "" {
			prompt.WriteString(fmt.Sprintf("- **Country**: %s\n", c.CountryCode))
		}
		if len(c.Aliases) > 0 {
			prompt.WriteString(fmt.Sprintf("- **Known aliases**: %s\n", strings.Join(c.Aliases, ", ")))
		}
		prompt.WriteString(fmt.Sprintf("- **Match score**: %.3f\n", c.Score))
		prompt.WriteString("\n")
	}

	prompt.WriteString("## Guidelines\n\n")
	prompt.WriteString("- Pick a candidate only when the mention plainly refers to it\n")
	prompt.WriteString("- Organizations and their state parents are distinct entities\n")
	prompt.WriteString("- When no candidate fits, answer with a null entity_id so a new entity is created\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `entity_id`: The chosen candidate ID, or null for a new entity\n")
	prompt.WriteString("- `confidence`: 0.0-1.0\n")
	prompt.WriteString("- `reasoning`: Brief explanation (1-2 sentences)\n\n")
	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{"entity_id": "1f0e...", "confidence": 0.9, "reasoning": "The mention names the state oil company, matching candidate 1's aliases."}` + "\n")
	prompt.WriteString("```\n")

	return prompt.String()
}

// BuildDisambiguationSystemMessage returns the system message for disambiguation.
func BuildDisambiguationSystemMessage() string {
	return `You are an entity resolution expert for geopolitical news. Your task is to decide which known entity a mention refers to, erring toward a new entity when the evidence is weak.`
}
