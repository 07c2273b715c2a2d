package generation

import (
	"encoding/json"

	"github.com/shookla/walkthroughs/internal/models"
)

// DefaultScript is returned when no provider produced a script.
const DefaultScript = "Welcome to this walkthrough. We'll guide you through each step."

// DefaultSteps returns the built-in step plan for targetURL.
func DefaultSteps(targetURL string) []models.Step {
	return []models.Step{
		{
			StepNumber:    1,
			ActionType:    models.StepActionNavigate,
			TargetElement: "url",
			Instructions:  "Navigate to the target application",
			Data:          jsonString(targetURL),
		},
		{
			StepNumber:    2,
			ActionType:    models.StepActionTooltip,
			TargetElement: "body",
			Instructions:  "Welcome! This walkthrough will guide you through the process step by step.",
			Data:          jsonString("Follow each step carefully to complete the task successfully."),
		},
		{
			StepNumber:    3,
			ActionType:    models.StepActionClick,
			TargetElement: "[data-main-action]",
			Instructions:  "Look for the main action button and click it to begin",
		},
	}
}

func jsonString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
