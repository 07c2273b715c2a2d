// Package recordings exposes the recording HTTP API.
package recordings

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/internal/orchestrator"
	"github.com/shookla/walkthroughs/pkg/response"
	"github.com/shookla/walkthroughs/pkg/utils"
)

const serviceName = "walkthrough-recording-api"

// Sessions is the orchestrator surface used by the API.
type Sessions interface {
	StartRecording(in models.RecordingInput) (string, error)
	GetSessionStatus(id string) (models.StatusView, bool)
	GetSession(id string) (models.RecordingSession, bool)
	GetAllSessions() []models.RecordingSession
	CleanupCompletedSessions() int
	TestEmailConfiguration(ctx context.Context, email string) orchestrator.EmailTestResult
}

// StepGenerator suggests walkthrough steps.
type StepGenerator interface {
	GenerateStepSuggestions(ctx context.Context, description, targetApp, targetURL string) []models.Step
}

// Repository is the persistence used by the API.
type Repository interface {
	CreateRecordingRequest(ctx context.Context, req *models.RecordingRequest) error
	UpdateRecordingRequest(ctx context.Context, id int64, upd models.RecordingRequestUpdate) error
	ListRecordingRequests(ctx context.Context) ([]models.RecordingRequest, error)
	GetWalkthrough(ctx context.Context, id int64) (*models.Walkthrough, error)
	ReplaceSteps(ctx context.Context, walkthroughID int64, steps []models.Step) error
	ListSteps(ctx context.Context, walkthroughID int64) ([]models.Step, error)
}

// Presigner issues temporary download links for uploaded recordings.
type Presigner interface {
	PresignExpire() time.Duration
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	sessions Sessions
	steps    StepGenerator
	repo     Repository
	presign  Presigner // optional: nil when S3 is not configured
	version  string
	logger   *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(sessions Sessions, steps StepGenerator, repo Repository, presign Presigner, version string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, steps: steps, repo: repo, presign: presign, version: version, logger: logger}
}

// Register mounts the routes under rg (normally /api).
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/record", h.Record)
	rg.GET("/record/:sessionId/status", h.Status)
	rg.GET("/sessions", h.ListSessions)
	rg.POST("/sessions/cleanup", h.Cleanup)
	rg.GET("/recordings", h.ListRequests)
	rg.GET("/recordings/:file", h.Stream)
	rg.GET("/recordings/:file/download", h.Download)
	rg.GET("/walkthroughs/:id/download-url", h.DownloadURL)
	rg.GET("/walkthroughs/:id/steps", h.ListSteps)
	rg.POST("/generate-steps", h.GenerateSteps)
	rg.POST("/test-email", h.TestEmail)
	rg.GET("/health", h.Health)
}

// RecordRequest is the body of POST /record.
type RecordRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	UserPrompt string `json:"user_prompt" binding:"required"`
	TargetURL  string `json:"target_url" binding:"required,url"`
	Email      string `json:"email" binding:"required,email"`
}

// Record handles POST /record. The request row is stored first so the session can link back to it.
func (h *Handler) Record(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.Password) > utils.MaxPasswordBytes {
		response.BadRequest(c, "invalid request: password must be at most 72 bytes")
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash target password", zap.Error(err))
		response.Internal(c, "failed to create recording request")
		return
	}
	rr := &models.RecordingRequest{
		Username:     req.Username,
		PasswordHash: hash,
		UserPrompt:   req.UserPrompt,
		TargetURL:    req.TargetURL,
		Email:        req.Email,
		Status:       string(models.SessionStatusPending),
	}
	if err := h.repo.CreateRecordingRequest(c.Request.Context(), rr); err != nil {
		h.logger.Error("create recording request", zap.Error(err))
		response.Internal(c, "failed to create recording request")
		return
	}

	sessionID, err := h.sessions.StartRecording(models.RecordingInput{
		Username:   req.Username,
		Password:   req.Password,
		UserPrompt: req.UserPrompt,
		TargetURL:  req.TargetURL,
		Email:      req.Email,
		RequestID:  rr.ID,
	})
	if err != nil {
		h.logger.Error("start recording", zap.Int64("request_id", rr.ID), zap.Error(err))
		upd := models.RecordingRequestUpdate{Status: string(models.SessionStatusFailed)}
		if uerr := h.repo.UpdateRecordingRequest(c.Request.Context(), rr.ID, upd); uerr != nil {
			h.logger.Warn("mark recording request failed", zap.Int64("request_id", rr.ID), zap.Error(uerr))
		}
		if errors.Is(err, orchestrator.ErrClosed) {
			response.ServiceUnavailable(c, "server is shutting down")
			return
		}
		response.Internal(c, "failed to start recording")
		return
	}

	response.Created(c, gin.H{
		"message":    "Recording request created successfully",
		"request_id": rr.ID,
		"session_id": sessionID,
		"status":     models.SessionStatusPending,
	})
}

// Status handles GET /record/:sessionId/status.
func (h *Handler) Status(c *gin.Context) {
	view, ok := h.sessions.GetSessionStatus(c.Param("sessionId"))
	if !ok {
		response.NotFound(c, "recording session not found")
		return
	}
	response.OK(c, view)
}

// ListSessions handles GET /sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	response.OK(c, h.sessions.GetAllSessions())
}

// Cleanup handles POST /sessions/cleanup.
func (h *Handler) Cleanup(c *gin.Context) {
	response.OK(c, gin.H{"removed": h.sessions.CleanupCompletedSessions()})
}

// ListRequests handles GET /recordings.
func (h *Handler) ListRequests(c *gin.Context) {
	list, err := h.repo.ListRecordingRequests(c.Request.Context())
	if err != nil {
		h.logger.Error("list recording requests", zap.Error(err))
		response.Internal(c, "failed to fetch recording requests")
		return
	}
	if list == nil {
		list = []models.RecordingRequest{}
	}
	response.OK(c, list)
}

// TestEmail handles POST /test-email.
func (h *Handler) TestEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email address required")
		return
	}
	response.OK(c, h.sessions.TestEmailConfiguration(c.Request.Context(), req.Email))
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
		"version":   h.version,
	})
}
