package generation

import "fmt"

const scriptSystemPrompt = `You are an expert at creating clear, concise walkthrough scripts for web applications.
Create a step-by-step narration script that guides users through the requested task.
The script should be friendly, professional, and easy to follow.
Keep each step under 2 sentences and use simple language.
Respond with JSON in this format: { "script": "your script here" }`

const stepsSystemPrompt = "You are an expert at creating detailed step-by-step UI walkthroughs. Always respond with valid JSON."

func scriptRequest(userPrompt, targetApp string) Request {
	return Request{
		Kind:   KindScript,
		System: scriptSystemPrompt,
		Prompt: fmt.Sprintf("Create a walkthrough script for: %q on %s.\n"+
			"The script will be used as voice-over for a screen recording showing each step.", userPrompt, targetApp),
	}
}

func stepsRequest(description, targetApp, targetURL string) Request {
	return Request{
		Kind:        KindSteps,
		System:      stepsSystemPrompt,
		Temperature: 0.7,
		Prompt: fmt.Sprintf(`Based on this walkthrough description for %s at %s:

%q

Generate a detailed step-by-step action plan. Return a JSON object {"steps": [...]} where each step has this exact format:
{
  "stepNumber": 1,
  "actionType": "navigate",
  "targetElement": "url",
  "instructions": "Navigate to the target page",
  "data": "%s"
}

Action types available: click, type, wait, navigate, tooltip
- Use CSS selectors for targetElement (e.g., "#id", ".class", "[data-testid='value']")
- Make instructions clear and user-friendly
- Include realistic wait times for page loads, e.g. "data": {"duration": 2000}
- Add tooltips to explain complex features
- Break complex tasks into simple, clear steps

Provide 5-12 logical steps that would accomplish the described walkthrough.`, targetApp, targetURL, description, targetURL),
	}
}
