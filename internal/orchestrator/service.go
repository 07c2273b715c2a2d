// Package orchestrator runs recording sessions end to end: script generation, browser recording,
// post-processing, persistence and notification. Callers observe progress only through status reads.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/automation"
	"github.com/shookla/walkthroughs/internal/generation"
	"github.com/shookla/walkthroughs/internal/mailer"
	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/internal/sessions"
	"github.com/shookla/walkthroughs/pkg/queue"
)

const (
	DefaultSystemUserID  int64 = 1
	DefaultRetention           = 24 * time.Hour
	DefaultNotifyTimeout       = 2 * time.Minute

	idAttempts = 3
)

// ErrClosed is returned by StartRecording after shutdown began.
var ErrClosed = errors.New("orchestrator is shutting down")

var errRecorderNotConfigured = errors.New("recorder not configured")

// ScriptGenerator produces narration for a session. It never fails.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, userPrompt, targetApp string) string
}

// Recorder captures the walkthrough video.
type Recorder interface {
	Record(ctx context.Context, job automation.Job) (automation.Result, error)
}

// EventPublisher receives a snapshot after every session change.
type EventPublisher interface {
	PublishSession(ctx context.Context, s models.RecordingSession) error
}

// EmailLogger stores notification attempts.
type EmailLogger interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// UploadQueue accepts CDN upload jobs for finished recordings.
type UploadQueue interface {
	EnqueueUpload(ctx context.Context, payload queue.UploadPayload) error
}

// Deps are the collaborators of the service. Only Recorder is needed for sessions to complete;
// every other collaborator may be nil.
type Deps struct {
	Store         sessions.Store
	Generator     ScriptGenerator
	Recorder      Recorder
	PostProcessor PostProcessor
	Persistence   Persistence
	Mailer        mailer.Transport
	EmailLogs     EmailLogger
	Events        EventPublisher
	Uploads       UploadQueue
}

// Config tunes the service.
type Config struct {
	SystemUserID  int64
	Retention     time.Duration
	NotifyTimeout time.Duration
	Now           func() time.Time
}

func (c *Config) setDefaults() {
	if c.SystemUserID <= 0 {
		c.SystemUserID = DefaultSystemUserID
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = DefaultNotifyTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Service owns every recording session in the process. All writes go through mu so that
// read-modify-write sequences on the store never interleave.
type Service struct {
	mu     sync.Mutex
	closed bool

	store   sessions.Store
	gen     ScriptGenerator
	rec     Recorder
	post    PostProcessor
	persist Persistence
	mail    mailer.Transport
	logs    EmailLogger
	events  EventPublisher
	uploads UploadQueue

	cfg    Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService wires the orchestrator.
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.setDefaults()
	if deps.Store == nil {
		deps.Store = sessions.NewMemoryStore()
	}
	if deps.Generator == nil {
		deps.Generator = generation.NewChain(logger)
	}
	if deps.PostProcessor == nil {
		deps.PostProcessor = DelayProcessor{Delay: DefaultProcessingDelay}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:   deps.Store,
		gen:     deps.Generator,
		rec:     deps.Recorder,
		post:    deps.PostProcessor,
		persist: deps.Persistence,
		mail:    deps.Mailer,
		logs:    deps.EmailLogs,
		events:  deps.Events,
		uploads: deps.Uploads,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartRecording stores a pending session and runs its pipeline in the background.
// It performs no I/O and returns as soon as the session is visible to status reads.
func (s *Service) StartRecording(in models.RecordingInput) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	now := s.cfg.Now()
	id := ""
	for i := 0; i < idAttempts; i++ {
		candidate := sessions.NewID(now)
		if _, exists := s.store.Get(candidate); !exists {
			id = candidate
			break
		}
	}
	if id == "" {
		s.mu.Unlock()
		return "", fmt.Errorf("allocate session id: %w", sessions.ErrExists)
	}
	sess := models.RecordingSession{
		ID:         id,
		RequestID:  in.RequestID,
		TargetURL:  in.TargetURL,
		Username:   in.Username,
		Password:   in.Password,
		UserPrompt: in.UserPrompt,
		Email:      in.Email,
		Status:     models.SessionStatusPending,
		CreatedAt:  time.UnixMilli(now.UnixMilli()),
	}
	s.store.Put(sess)
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("recording session created",
		zap.String("session_id", id),
		zap.Int64("request_id", in.RequestID),
		zap.String("target_url", in.TargetURL))
	s.publish(sess)

	go func() {
		defer s.wg.Done()
		s.run(id)
	}()
	return id, nil
}

// GetSessionStatus returns the poll view of a session.
func (s *Service) GetSessionStatus(id string) (models.StatusView, bool) {
	sess, ok := s.store.Get(id)
	if !ok {
		return models.StatusView{}, false
	}
	return sess.View(), true
}

// GetSession returns a copy of the full session record.
func (s *Service) GetSession(id string) (models.RecordingSession, bool) {
	return s.store.Get(id)
}

// GetAllSessions returns copies of every stored session, oldest first.
func (s *Service) GetAllSessions() []models.RecordingSession {
	return s.store.List()
}

// Wait blocks until every pipeline and notifier started so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting sessions and waits for in-flight work. When ctx expires first the
// remaining pipelines are cancelled and Shutdown still waits for them to unwind.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// mutate applies fn to the stored session under the write lock and publishes the result.
// fn returns false to leave the session untouched.
func (s *Service) mutate(id string, fn func(*models.RecordingSession) bool) (models.RecordingSession, bool) {
	s.mu.Lock()
	sess, ok := s.store.Get(id)
	if !ok || !fn(&sess) {
		s.mu.Unlock()
		return sess, false
	}
	s.store.Put(sess)
	s.mu.Unlock()

	s.publish(sess)
	return sess, true
}

// updateSessionStatus is the only writer of status, video URL and error. Missing sessions and
// illegal transitions are ignored.
func (s *Service) updateSessionStatus(id string, status models.SessionStatus, videoURL, errMsg string) bool {
	_, ok := s.mutate(id, func(sess *models.RecordingSession) bool {
		if err := models.TransitionSession(sess, status); err != nil {
			s.logger.Warn("session transition rejected", zap.String("session_id", id), zap.Error(err))
			return false
		}
		if videoURL != "" {
			sess.VideoURL = videoURL
		}
		if status == models.SessionStatusFailed {
			sess.Error = errMsg
		}
		return true
	})
	return ok
}

func (s *Service) publish(sess models.RecordingSession) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSession(s.ctx, sess); err != nil {
		s.logger.Debug("publish session event", zap.String("session_id", sess.ID), zap.Error(err))
	}
}
