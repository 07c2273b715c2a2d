package recordings

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/pkg/response"
)

// Stream handles GET /recordings/:file where file is <sessionId>.mp4.
func (h *Handler) Stream(c *gin.Context) {
	file := c.Param("file")
	if !strings.HasSuffix(file, ".mp4") {
		response.NotFound(c, "video not found")
		return
	}
	sessionID := strings.TrimSuffix(file, ".mp4")
	c.Header("Cache-Control", "public, max-age=86400")
	h.serveVideo(c, sessionID, fmt.Sprintf("inline; filename=%q", sessionID+".mp4"))
}

// Download handles GET /recordings/:file/download.
func (h *Handler) Download(c *gin.Context) {
	sessionID := strings.TrimSuffix(c.Param("file"), ".mp4")
	h.serveVideo(c, sessionID, fmt.Sprintf("attachment; filename=%q", "walkthrough-"+sessionID+".mp4"))
}

func (h *Handler) serveVideo(c *gin.Context, sessionID, disposition string) {
	sess, ok := h.sessions.GetSession(sessionID)
	if !ok || sess.FilePath == "" {
		response.NotFound(c, "video not found")
		return
	}
	f, err := os.Open(sess.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c, "video file not found")
			return
		}
		h.logger.Error("open recording", zap.String("session_id", sessionID), zap.Error(err))
		response.Internal(c, "failed to serve video")
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		h.logger.Error("stat recording", zap.String("session_id", sessionID), zap.Error(err))
		response.Internal(c, "failed to serve video")
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.Header("Content-Disposition", disposition)
	c.Header("X-File-Size-MB", strconv.FormatFloat(float64(st.Size())/(1024*1024), 'f', 1, 64))
	http.ServeContent(c.Writer, c.Request, st.Name(), st.ModTime(), f)
}

// DownloadURL handles GET /walkthroughs/:id/download-url once the upload worker has stored the file in S3.
func (h *Handler) DownloadURL(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid walkthrough id")
		return
	}
	w, err := h.repo.GetWalkthrough(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get walkthrough", zap.Int64("walkthrough_id", id), zap.Error(err))
		response.Internal(c, "failed to load walkthrough")
		return
	}
	if w == nil {
		response.NotFound(c, "walkthrough not found")
		return
	}
	if w.S3Key == "" {
		response.BadRequest(c, "recording not ready for download")
		return
	}
	if h.presign == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}
	expire := h.presign.PresignExpire()
	url, err := h.presign.GeneratePresignedDownloadURL(c.Request.Context(), w.S3Key, expire)
	if err != nil {
		h.logger.Error("presign walkthrough download", zap.Int64("walkthrough_id", id), zap.Error(err))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}
