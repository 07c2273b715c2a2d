package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/generation"
	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/pkg/queue"
)

// Walkthrough defaults for records created from API sessions.
const (
	walkthroughTargetApp   = "Web Application"
	walkthroughUserType    = "beginner"
	walkthroughEnvironment = "web"
	walkthroughDuration    = 120
)

// Persistence stores finished walkthroughs. GetUser returns nil, nil when the user does not exist.
type Persistence interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateWalkthrough(ctx context.Context, w *models.Walkthrough) error
	UpdateRecordingRequest(ctx context.Context, id int64, upd models.RecordingRequestUpdate) error
}

// emailFlagger is implemented by persistence that tracks delivered notifications.
type emailFlagger interface {
	SetEmailSent(ctx context.Context, walkthroughID int64, sent bool) error
}

// persistWalkthrough saves the walkthrough and links it to the request. Errors are logged only.
func (s *Service) persistWalkthrough(ctx context.Context, id string) {
	if s.persist == nil {
		return
	}
	sess, ok := s.store.Get(id)
	if !ok {
		return
	}
	log := s.logger.With(zap.String("session_id", id), zap.Int64("request_id", sess.RequestID))

	owner, err := s.persist.GetUser(ctx, s.cfg.SystemUserID)
	if err != nil {
		log.Error("load system user", zap.Error(err))
		return
	}
	if owner == nil {
		log.Warn("system user not found, skipping walkthrough save", zap.Int64("user_id", s.cfg.SystemUserID))
		return
	}

	script := sess.ScriptContent
	if script == "" {
		script = generation.DefaultScript
	}
	w := &models.Walkthrough{
		Title:         "Walkthrough: " + sess.UserPrompt,
		Description:   "Automated walkthrough for " + sess.TargetURL,
		TargetApp:     walkthroughTargetApp,
		TargetURL:     sess.TargetURL,
		UserType:      walkthroughUserType,
		Environment:   walkthroughEnvironment,
		Status:        models.WalkthroughStatusCompleted,
		ScriptContent: script,
		VideoURL:      sess.VideoURL,
		Duration:      walkthroughDuration,
		CreatedBy:     owner.ID,
	}
	if err := s.persist.CreateWalkthrough(ctx, w); err != nil {
		log.Error("save walkthrough", zap.Error(err))
		return
	}
	s.mutate(id, func(x *models.RecordingSession) bool {
		x.WalkthroughID = w.ID
		return true
	})
	log.Info("walkthrough saved", zap.Int64("walkthrough_id", w.ID))

	if sess.RequestID > 0 {
		upd := models.RecordingRequestUpdate{WalkthroughID: &w.ID, Status: string(models.SessionStatusCompleted)}
		if err := s.persist.UpdateRecordingRequest(ctx, sess.RequestID, upd); err != nil {
			log.Error("update recording request", zap.Error(err))
		}
	}

	if s.uploads != nil && sess.FilePath != "" {
		payload := queue.UploadPayload{WalkthroughID: w.ID, SessionID: id, FilePath: sess.FilePath}
		if err := s.uploads.EnqueueUpload(ctx, payload); err != nil {
			log.Warn("enqueue walkthrough upload", zap.Error(err))
		}
	}
}
