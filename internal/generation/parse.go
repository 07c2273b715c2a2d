package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shookla/walkthroughs/internal/models"
)

// wireStep is the step shape providers are prompted to produce.
type wireStep struct {
	StepNumber    int             `json:"stepNumber"`
	ActionType    string          `json:"actionType"`
	TargetElement string          `json:"targetElement"`
	Instructions  string          `json:"instructions"`
	Data          json.RawMessage `json:"data"`
}

// stripFences removes a surrounding markdown code fence, which some models add even in JSON mode.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func parseScript(raw string) (string, error) {
	var out struct {
		Script string `json:"script"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return "", fmt.Errorf("decode script: %w", err)
	}
	script := strings.TrimSpace(out.Script)
	if script == "" {
		return "", ErrEmptyResponse
	}
	return script, nil
}

// parseSteps accepts a bare array or an object with a steps array. Steps with an unknown action
// are dropped and the rest renumbered from 1.
func parseSteps(raw string) ([]models.Step, error) {
	body := []byte(stripFences(raw))
	var wire []wireStep
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		if err := json.Unmarshal(body, &wire); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
	} else {
		var obj struct {
			Steps []wireStep `json:"steps"`
		}
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
		wire = obj.Steps
	}

	steps := make([]models.Step, 0, len(wire))
	for _, w := range wire {
		action := models.StepAction(strings.ToLower(strings.TrimSpace(w.ActionType)))
		if !action.Valid() {
			continue
		}
		var data json.RawMessage
		if trimmed := bytes.TrimSpace(w.Data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			data = trimmed
		}
		steps = append(steps, models.Step{
			StepNumber:    len(steps) + 1,
			ActionType:    action,
			TargetElement: w.TargetElement,
			Instructions:  w.Instructions,
			Data:          data,
		})
	}
	if len(steps) == 0 {
		return nil, ErrEmptyResponse
	}
	return steps, nil
}
