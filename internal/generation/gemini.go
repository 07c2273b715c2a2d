package generation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-pro"

// Gemini is the secondary provider. Responses are constrained by a JSON schema per request kind.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns nil, nil when apiKey is empty so the chain skips the provider.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Complete implements Provider.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(req.Kind),
	}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func responseSchema(kind Kind) *genai.Schema {
	if kind == KindSteps {
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"steps": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"stepNumber":    {Type: genai.TypeInteger},
							"actionType":    {Type: genai.TypeString, Enum: []string{"click", "type", "wait", "navigate", "tooltip"}},
							"targetElement": {Type: genai.TypeString},
							"instructions":  {Type: genai.TypeString},
							"data":          {Type: genai.TypeString, Description: "Optional data for the step"},
						},
						Required: []string{"stepNumber", "actionType", "targetElement", "instructions"},
					},
				},
			},
			Required: []string{"steps"},
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"script": {Type: genai.TypeString}},
		Required:   []string{"script"},
	}
}
