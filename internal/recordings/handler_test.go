package recordings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/internal/orchestrator"
)

type fakeSessions struct {
	started  []models.RecordingInput
	startErr error
	byID     map[string]models.RecordingSession
	removed  int
	emailRes orchestrator.EmailTestResult
	emailTo  string
}

func (f *fakeSessions) StartRecording(in models.RecordingInput) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, in)
	return "rec_1760000000000_abcdef012345", nil
}

func (f *fakeSessions) GetSessionStatus(id string) (models.StatusView, bool) {
	s, ok := f.byID[id]
	return s.View(), ok
}

func (f *fakeSessions) GetSession(id string) (models.RecordingSession, bool) {
	s, ok := f.byID[id]
	return s, ok
}

func (f *fakeSessions) GetAllSessions() []models.RecordingSession {
	out := []models.RecordingSession{}
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out
}

func (f *fakeSessions) CleanupCompletedSessions() int { return f.removed }

func (f *fakeSessions) TestEmailConfiguration(_ context.Context, email string) orchestrator.EmailTestResult {
	f.emailTo = email
	return f.emailRes
}

type fakeRepo struct {
	created      []models.RecordingRequest
	updates      map[int64]models.RecordingRequestUpdate
	walkthroughs map[int64]*models.Walkthrough
	steps        map[int64][]models.Step
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		updates:      map[int64]models.RecordingRequestUpdate{},
		walkthroughs: map[int64]*models.Walkthrough{},
		steps:        map[int64][]models.Step{},
	}
}

func (r *fakeRepo) CreateRecordingRequest(_ context.Context, req *models.RecordingRequest) error {
	req.ID = int64(len(r.created) + 7)
	r.created = append(r.created, *req)
	return nil
}

func (r *fakeRepo) UpdateRecordingRequest(_ context.Context, id int64, upd models.RecordingRequestUpdate) error {
	r.updates[id] = upd
	return nil
}

func (r *fakeRepo) ListRecordingRequests(context.Context) ([]models.RecordingRequest, error) {
	return r.created, nil
}

func (r *fakeRepo) GetWalkthrough(_ context.Context, id int64) (*models.Walkthrough, error) {
	return r.walkthroughs[id], nil
}

func (r *fakeRepo) ReplaceSteps(_ context.Context, id int64, steps []models.Step) error {
	r.steps[id] = steps
	return nil
}

func (r *fakeRepo) ListSteps(_ context.Context, id int64) ([]models.Step, error) {
	return r.steps[id], nil
}

type fakeSteps struct{}

func (fakeSteps) GenerateStepSuggestions(_ context.Context, _, _, targetURL string) []models.Step {
	return []models.Step{
		{StepNumber: 1, ActionType: models.StepActionNavigate, TargetElement: "body", Instructions: "Open the app", Data: json.RawMessage(`"` + targetURL + `"`)},
		{StepNumber: 2, ActionType: models.StepActionClick, TargetElement: "#start", Instructions: "Press start"},
	}
}

type fakePresigner struct{}

func (fakePresigner) PresignExpire() time.Duration { return 15 * time.Minute }

func (fakePresigner) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=sig", nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setup(sess *fakeSessions, repo *fakeRepo, presign Presigner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(sess, fakeSteps{}, repo, presign, "1.0.0", nil).Register(r.Group("/api"))
	return r
}

func do(r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestRecord_CreatesRequestAndSession(t *testing.T) {
	sess := &fakeSessions{}
	repo := newFakeRepo()
	r := setup(sess, repo, nil)

	w, env := do(r, http.MethodPost, "/api/record", map[string]string{
		"username":    "demo",
		"password":    "hunter2",
		"user_prompt": "show the homepage",
		"target_url":  "https://example.com",
		"email":       "a@b.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "rec_1760000000000_abcdef012345", data["session_id"])
	assert.Equal(t, float64(7), data["request_id"])
	assert.Equal(t, "pending", data["status"])

	require.Len(t, repo.created, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("hunter2")))
	require.Len(t, sess.started, 1)
	assert.Equal(t, int64(7), sess.started[0].RequestID)
	assert.Equal(t, "hunter2", sess.started[0].Password)
}

func TestRecord_ValidationFailsBeforeSession(t *testing.T) {
	sess := &fakeSessions{}
	repo := newFakeRepo()
	r := setup(sess, repo, nil)

	w, env := do(r, http.MethodPost, "/api/record", map[string]string{
		"user_prompt": "show the homepage",
		"target_url":  "https://example.com",
		"email":       "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Empty(t, repo.created)
	assert.Empty(t, sess.started)
}

func TestRecord_RejectsPasswordBcryptCannotHash(t *testing.T) {
	sess := &fakeSessions{}
	repo := newFakeRepo()
	r := setup(sess, repo, nil)

	w, env := do(r, http.MethodPost, "/api/record", map[string]string{
		"password":    strings.Repeat("p", 80),
		"user_prompt": "tour",
		"target_url":  "https://example.com",
		"email":       "a@b.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "72 bytes")
	assert.Empty(t, repo.created)
	assert.Empty(t, sess.started)

	w, _ = do(r, http.MethodPost, "/api/record", map[string]string{
		"password":    strings.Repeat("p", 72),
		"user_prompt": "tour",
		"target_url":  "https://example.com",
		"email":       "a@b.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, sess.started, 1)
}

func TestRecord_StartFailureMarksRequest(t *testing.T) {
	sess := &fakeSessions{startErr: orchestrator.ErrClosed}
	repo := newFakeRepo()
	r := setup(sess, repo, nil)

	w, _ := do(r, http.MethodPost, "/api/record", map[string]string{
		"user_prompt": "tour",
		"target_url":  "https://example.com",
		"email":       "a@b.com",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "failed", repo.updates[7].Status)
}

func TestStatus(t *testing.T) {
	sent := false
	sess := &fakeSessions{byID: map[string]models.RecordingSession{
		"rec_1": {ID: "rec_1", Status: models.SessionStatusCompleted, VideoURL: "/api/recordings/rec_1.mp4", EmailSent: &sent, EmailError: "email transport not configured"},
	}}
	r := setup(sess, newFakeRepo(), nil)

	w, env := do(r, http.MethodGet, "/api/record/rec_1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view models.StatusView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "rec_1", view.SessionID)
	assert.Equal(t, models.SessionStatusCompleted, view.Status)
	require.NotNil(t, view.EmailSent)
	assert.False(t, *view.EmailSent)

	w, env = do(r, http.MethodGet, "/api/record/rec_404/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "recording session not found", env.Error)
}

func TestSessionsAndCleanup(t *testing.T) {
	sess := &fakeSessions{removed: 3, byID: map[string]models.RecordingSession{
		"rec_1": {ID: "rec_1", Password: "secret", Status: models.SessionStatusRecording},
	}}
	r := setup(sess, newFakeRepo(), nil)

	w, _ := do(r, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Contains(t, w.Body.String(), `"rec_1"`)

	w, env := do(r, http.MethodPost, "/api/sessions/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":3}`, string(env.Data))
}

func TestListRequests(t *testing.T) {
	repo := newFakeRepo()
	r := setup(&fakeSessions{}, repo, nil)

	w, env := do(r, http.MethodGet, "/api/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	repo.created = append(repo.created, models.RecordingRequest{ID: 7, PasswordHash: "$2a$10$x", UserPrompt: "tour", Status: "pending"})
	w, env = do(r, http.MethodGet, "/api/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "$2a$10$x")
	var list []models.RecordingRequest
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "tour", list[0].UserPrompt)
}

func TestStreamAndDownload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec_1.mp4")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x42}, 2048), 0600))

	sess := &fakeSessions{byID: map[string]models.RecordingSession{
		"rec_1":    {ID: "rec_1", FilePath: path},
		"rec_gone": {ID: "rec_gone", FilePath: filepath.Join(dir, "missing.mp4")},
		"rec_none": {ID: "rec_none"},
	}}
	r := setup(sess, newFakeRepo(), nil)

	w, _ := do(r, http.MethodGet, "/api/recordings/rec_1.mp4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
	assert.Equal(t, "0.0", w.Header().Get("X-File-Size-MB"))
	assert.Equal(t, `inline; filename="rec_1.mp4"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, 2048, w.Body.Len())

	w, _ = do(r, http.MethodGet, "/api/recordings/rec_1/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="walkthrough-rec_1.mp4"`, w.Header().Get("Content-Disposition"))

	for _, p := range []string{"/api/recordings/rec_gone.mp4", "/api/recordings/rec_none.mp4", "/api/recordings/rec_x.mp4", "/api/recordings/rec_1.webm"} {
		w, _ = do(r, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, p)
	}
}

func TestDownloadURL(t *testing.T) {
	repo := newFakeRepo()
	repo.walkthroughs[5] = &models.Walkthrough{ID: 5, S3Key: "walkthroughs/5/rec_1.mp4"}
	repo.walkthroughs[6] = &models.Walkthrough{ID: 6}

	r := setup(&fakeSessions{}, repo, fakePresigner{})
	w, env := do(r, http.MethodGet, "/api/walkthroughs/5/download-url", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		DownloadURL string `json:"download_url"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data.DownloadURL, "walkthroughs/5/rec_1.mp4")
	assert.Equal(t, 900, data.ExpiresIn)

	w, _ = do(r, http.MethodGet, "/api/walkthroughs/6/download-url", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(r, http.MethodGet, "/api/walkthroughs/9/download-url", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(r, http.MethodGet, "/api/walkthroughs/abc/download-url", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noS3 := setup(&fakeSessions{}, repo, nil)
	w, _ = do(noS3, http.MethodGet, "/api/walkthroughs/5/download-url", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGenerateSteps(t *testing.T) {
	repo := newFakeRepo()
	r := setup(&fakeSessions{}, repo, nil)

	w, _ := do(r, http.MethodPost, "/api/generate-steps", map[string]string{"description": "create a project"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(r, http.MethodPost, "/api/generate-steps", map[string]any{
		"description":    "create a project",
		"target_app":     "Acme",
		"target_url":     "https://acme.test",
		"walkthrough_id": 12,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Steps []models.Step `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Steps, 2)
	assert.Equal(t, 1, data.Steps[0].StepNumber)
	assert.Len(t, repo.steps[12], 2)

	w, env = do(r, http.MethodGet, "/api/walkthroughs/12/steps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Steps, 2)

	w, env = do(r, http.MethodGet, "/api/walkthroughs/13/steps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"steps":[]}`, string(env.Data))
}

func TestTestEmail(t *testing.T) {
	sess := &fakeSessions{emailRes: orchestrator.EmailTestResult{Success: false, Message: "Email test failed: auth"}}
	r := setup(sess, newFakeRepo(), nil)

	w, _ := do(r, http.MethodPost, "/api/test-email", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(r, http.MethodPost, "/api/test-email", map[string]string{"email": "ops@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Email test failed: auth"}`, string(env.Data))
	assert.Equal(t, "ops@example.com", sess.emailTo)
}

func TestHealth(t *testing.T) {
	r := setup(&fakeSessions{}, newFakeRepo(), nil)
	w, env := do(r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, serviceName, data["service"])
	assert.Equal(t, "1.0.0", data["version"])
	_, err := time.Parse(time.RFC3339, data["timestamp"])
	assert.NoError(t, err)
}

