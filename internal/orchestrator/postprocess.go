package orchestrator

import (
	"context"
	"time"

	"github.com/shookla/walkthroughs/internal/models"
)

// DefaultProcessingDelay is the latency of the placeholder enrichment stage.
const DefaultProcessingDelay = 3 * time.Second

// PostProcessor enriches a finished recording before it is persisted.
type PostProcessor interface {
	Process(ctx context.Context, sess models.RecordingSession) error
}

// DelayProcessor stands in for enrichment (highlighting, narration, captions) by waiting Delay.
type DelayProcessor struct {
	Delay time.Duration
}

// Process waits for the delay. Cancellation cuts the wait short without failing the session.
func (d DelayProcessor) Process(ctx context.Context, _ models.RecordingSession) error {
	if d.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(d.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return nil
}
