package recordings

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/pkg/response"
)

// GenerateStepsRequest is the body of POST /generate-steps. When WalkthroughID is set the
// suggestions replace that walkthrough's stored steps.
type GenerateStepsRequest struct {
	Description   string `json:"description" binding:"required"`
	TargetApp     string `json:"target_app" binding:"required"`
	TargetURL     string `json:"target_url" binding:"required"`
	WalkthroughID int64  `json:"walkthrough_id"`
}

// GenerateSteps handles POST /generate-steps.
func (h *Handler) GenerateSteps(c *gin.Context) {
	var req GenerateStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "missing required fields: description, target_app, target_url")
		return
	}
	steps := h.steps.GenerateStepSuggestions(c.Request.Context(), req.Description, req.TargetApp, req.TargetURL)

	if req.WalkthroughID > 0 {
		if err := h.repo.ReplaceSteps(c.Request.Context(), req.WalkthroughID, steps); err != nil {
			h.logger.Error("save generated steps", zap.Int64("walkthrough_id", req.WalkthroughID), zap.Error(err))
			response.Internal(c, "failed to save steps")
			return
		}
	}
	response.OK(c, gin.H{"steps": steps})
}

// ListSteps handles GET /walkthroughs/:id/steps.
func (h *Handler) ListSteps(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid walkthrough id")
		return
	}
	steps, err := h.repo.ListSteps(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list steps", zap.Int64("walkthrough_id", id), zap.Error(err))
		response.Internal(c, "failed to fetch steps")
		return
	}
	if steps == nil {
		steps = []models.Step{}
	}
	response.OK(c, gin.H{"steps": steps})
}
