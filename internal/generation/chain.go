package generation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/models"
)

// Chain asks each provider in order and falls back to the built-in defaults. It never fails.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a chain over providers, skipping nil interface values. A typed nil pointer, such as
// NewOpenAI returns without a key, is not nil inside Provider and must be filtered by the caller.
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{logger: logger}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Providers returns the names of the configured providers in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// GenerateScript returns a narration script for the task, or DefaultScript.
func (c *Chain) GenerateScript(ctx context.Context, userPrompt, targetApp string) string {
	req := scriptRequest(userPrompt, targetApp)
	for _, p := range c.providers {
		raw, err := c.complete(ctx, p, req)
		if err == nil {
			var script string
			if script, err = parseScript(raw); err == nil {
				return script
			}
		}
		c.logger.Warn("script generation failed, trying next provider",
			zap.String("provider", p.Name()), zap.Error(err))
	}
	c.logger.Info("using default walkthrough script")
	return DefaultScript
}

// GenerateStepSuggestions returns a step plan numbered from 1, or DefaultSteps.
func (c *Chain) GenerateStepSuggestions(ctx context.Context, description, targetApp, targetURL string) []models.Step {
	req := stepsRequest(description, targetApp, targetURL)
	for _, p := range c.providers {
		raw, err := c.complete(ctx, p, req)
		if err == nil {
			var steps []models.Step
			if steps, err = parseSteps(raw); err == nil {
				return steps
			}
		}
		c.logger.Warn("step generation failed, trying next provider",
			zap.String("provider", p.Name()), zap.Error(err))
	}
	c.logger.Info("using default walkthrough steps")
	return DefaultSteps(targetURL)
}

func (c *Chain) complete(ctx context.Context, p Provider, req Request) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", p.Name(), r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Complete(ctx, req)
}
