package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/sessions"
)

// DefaultReapInterval is how often RunReaper sweeps.
const DefaultReapInterval = time.Hour

// CleanupCompletedSessions removes terminal sessions older than the retention window and returns
// how many were removed. Sessions still in progress are kept regardless of age.
func (s *Service) CleanupCompletedSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	removed := 0
	for _, sess := range s.store.List() {
		if !sess.Status.IsTerminal() {
			continue
		}
		created, err := sessions.CreatedAt(sess.ID)
		if err != nil {
			created = sess.CreatedAt
		}
		if now.Sub(created) > s.cfg.Retention {
			s.store.Delete(sess.ID)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

// RunReaper sweeps every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupCompletedSessions()
		}
	}
}
