package automation

import (
	"context"
	"time"
)

// Timings are the settle delays between recorded actions, kept long enough for transitions to be
// visible in the video.
type Timings struct {
	AfterNavigate       time.Duration
	AfterField          time.Duration
	AfterLogin          time.Duration
	AfterInitialScroll  time.Duration
	AfterScrollIntoView time.Duration
	AfterClick          time.Duration
	AfterLinkClick      time.Duration
	AfterScrollBottom   time.Duration
	AfterScrollTop      time.Duration
	FinalHold           time.Duration
}

// DefaultTimings returns the production delays.
func DefaultTimings() Timings {
	return Timings{
		AfterNavigate:       2 * time.Second,
		AfterField:          500 * time.Millisecond,
		AfterLogin:          3 * time.Second,
		AfterInitialScroll:  1500 * time.Millisecond,
		AfterScrollIntoView: time.Second,
		AfterClick:          2 * time.Second,
		AfterLinkClick:      3 * time.Second,
		AfterScrollBottom:   2 * time.Second,
		AfterScrollTop:      1500 * time.Millisecond,
		FinalHold:           3 * time.Second,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
