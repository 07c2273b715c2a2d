package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/automation"
	"github.com/shookla/walkthroughs/internal/models"
)

const requestUpdateTimeout = 10 * time.Second

// run drives one session through its stages. No error escapes: every failure ends as a failed session.
func (s *Service) run(id string) {
	log := s.logger.With(zap.String("session_id", id))
	defer func() {
		if r := recover(); r != nil {
			log.Error("recording pipeline panic", zap.Any("panic", r))
			s.fail(id, "", fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	ctx := s.ctx
	sess, ok := s.store.Get(id)
	if !ok {
		return
	}
	if !s.updateSessionStatus(id, models.SessionStatusRecording, "", "") {
		return
	}

	script := s.gen.GenerateScript(ctx, sess.UserPrompt, sess.TargetURL)
	s.mutate(id, func(x *models.RecordingSession) bool {
		x.ScriptContent = script
		return true
	})

	if s.rec == nil {
		s.fail(id, "", errRecorderNotConfigured)
		return
	}
	res, err := s.rec.Record(ctx, automation.Job{
		SessionID:  id,
		TargetURL:  sess.TargetURL,
		Username:   sess.Username,
		Password:   sess.Password,
		UserPrompt: sess.UserPrompt,
	})
	if err != nil {
		s.fail(id, res.VideoURL, err)
		return
	}
	s.mutate(id, func(x *models.RecordingSession) bool {
		x.FilePath = res.FilePath
		return true
	})
	if !s.updateSessionStatus(id, models.SessionStatusProcessing, res.VideoURL, "") {
		return
	}

	current, _ := s.store.Get(id)
	if err := s.post.Process(ctx, current); err != nil {
		s.fail(id, "", fmt.Errorf("post-process: %w", err))
		return
	}

	s.persistWalkthrough(ctx, id)

	if !s.updateSessionStatus(id, models.SessionStatusCompleted, "", "") {
		return
	}
	log.Info("recording session completed")
	s.startNotifier(id)
}

// fail marks the session failed and mirrors the outcome onto its request row.
func (s *Service) fail(id, videoURL string, cause error) {
	s.logger.Warn("recording session failed", zap.String("session_id", id), zap.Error(cause))
	if !s.updateSessionStatus(id, models.SessionStatusFailed, videoURL, cause.Error()) {
		return
	}
	sess, ok := s.store.Get(id)
	if !ok || s.persist == nil || sess.RequestID <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), requestUpdateTimeout)
	defer cancel()
	upd := models.RecordingRequestUpdate{Status: string(models.SessionStatusFailed)}
	if err := s.persist.UpdateRecordingRequest(ctx, sess.RequestID, upd); err != nil {
		s.logger.Warn("mark recording request failed", zap.String("session_id", id), zap.Int64("request_id", sess.RequestID), zap.Error(err))
	}
}
