package emaillogs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shookla/walkthroughs/internal/models"
)

type fakeLister struct {
	logs      []*models.EmailLog
	err       error
	lastLimit int
}

func (f *fakeLister) List(_ context.Context, limit int) ([]*models.EmailLog, error) {
	f.lastLimit = limit
	return f.logs, f.err
}

func serve(t *testing.T, repo Lister, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/email-logs", NewHandler(repo).List)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestList_DefaultLimitAndEmpty(t *testing.T) {
	repo := &fakeLister{}
	w := serve(t, repo, "/api/email-logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DefaultListLimit, repo.lastLimit)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestList_ReturnsLogs(t *testing.T) {
	repo := &fakeLister{logs: []*models.EmailLog{{ID: 7, SessionID: "rec_1_a", EmailType: models.EmailTypeWalkthroughReady, Status: models.EmailLogStatusFailed, ErrorMessage: "auth failed"}}}
	w := serve(t, repo, "/api/email-logs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, repo.lastLimit)

	var body struct {
		Data []models.EmailLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "auth failed", body.Data[0].ErrorMessage)
}

func TestList_BadLimit(t *testing.T) {
	w := serve(t, &fakeLister{}, "/api/email-logs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList_RepoError(t *testing.T) {
	w := serve(t, &fakeLister{err: errors.New("db down")}, "/api/email-logs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
