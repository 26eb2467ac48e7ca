package ai

import (
	"encoding/json"
	"fmt"

	"taskflow/internal/domain/models"
)

// Suggestion is the structure the model is asked to produce. Fields are
// best effort: consumers must tolerate any of them being empty.
type Suggestion struct {
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Subtasks    []string `json:"subtasks"`
	Tags        []string `json:"tags"`
}

func BuildPrompt(title, description string) string {
	if description == "" {
		description = "Not provided"
	}
	return fmt.Sprintf(`Based on the following task, suggest:
1. A detailed description (if not provided or needs enhancement)
2. Recommended priority (LOW, MEDIUM, or HIGH)
3. Suggested subtasks or action items
4. Relevant tags

Task Title: %s
Task Description: %s

Provide the response in JSON format with keys: description, priority, subtasks (array), tags (array).`, title, description)
}

// ParseSuggestion attempts to read the model output as a Suggestion and
// reports whether it succeeded. The model is not trusted to return valid
// JSON, so parse failure is an ordinary outcome, not an error.
func ParseSuggestion(text string) (Suggestion, bool) {
	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Suggestion{}, false
	}
	if s.Subtasks == nil {
		s.Subtasks = []string{}
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return s, true
}

// FallbackSuggestion wraps raw model output that could not be parsed.
func FallbackSuggestion(text string) Suggestion {
	return Suggestion{
		Description: text,
		Priority:    string(models.PriorityMedium),
		Subtasks:    []string{},
		Tags:        []string{},
	}
}
