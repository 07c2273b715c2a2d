package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shookla/walkthroughs/internal/models"
)

func TestHub_LocalFanOut(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a, cancelA := h.Subscribe("rec_1")
	b, cancelB := h.Subscribe("rec_1")
	other, cancelOther := h.Subscribe("rec_2")
	defer cancelOther()

	require.NoError(t, h.PublishSession(context.Background(), models.RecordingSession{ID: "rec_1", Status: models.SessionStatusRecording}))

	assert.Equal(t, models.SessionStatusRecording, (<-a).Status)
	assert.Equal(t, models.SessionStatusRecording, (<-b).Status)
	select {
	case v := <-other:
		t.Fatalf("unexpected update for other session: %+v", v)
	default:
	}

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, h.Subscribers("rec_1"))
	cancelB()
	assert.Equal(t, 0, h.Subscribers("rec_1"))
}

type loopbackRedis struct {
	mu        sync.Mutex
	handlers  map[string]func(string, []byte)
	published int
	cancelled []string
}

func (l *loopbackRedis) PublishSessionEvent(sessionID, event string, payload []byte) error {
	l.mu.Lock()
	l.published++
	h := l.handlers[sessionID]
	l.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (l *loopbackRedis) SubscribeSession(sessionID string, handler func(string, []byte)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handlers == nil {
		l.handlers = map[string]func(string, []byte){}
	}
	l.handlers[sessionID] = handler
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, sessionID)
		l.cancelled = append(l.cancelled, sessionID)
	}, nil
}

func TestHub_RedisDeliversOnce(t *testing.T) {
	r := &loopbackRedis{}
	h := NewHub(nil, r, r)
	ch, cancel := h.Subscribe("rec_1")

	require.NoError(t, h.PublishSession(context.Background(), models.RecordingSession{ID: "rec_1", Status: models.SessionStatusFailed, Error: "boom"}))

	v := <-ch
	assert.Equal(t, models.SessionStatusFailed, v.Status)
	assert.Equal(t, "boom", v.Error)
	assert.Len(t, ch, 0)
	assert.Equal(t, 1, r.published)

	cancel()
	assert.Equal(t, []string{"rec_1"}, r.cancelled)
}

type staticLookup map[string]models.StatusView

func (s staticLookup) GetSessionStatus(id string) (models.StatusView, bool) {
	v, ok := s[id]
	return v, ok
}

func newEventsServer(h *Hub, lookup SessionLookup) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/record/:sessionId/events", ServeSessionEvents(h, lookup, nil))
	return httptest.NewServer(r)
}

func readView(t *testing.T, conn *websocket.Conn) models.StatusView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventSessionUpdate, msg.Event)
	var v models.StatusView
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

func TestServeSessionEvents_StreamsUntilFinal(t *testing.T) {
	h := NewHub(nil, nil, nil)
	lookup := staticLookup{"rec_1": {SessionID: "rec_1", Status: models.SessionStatusRecording}}
	srv := newEventsServer(h, lookup)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/record/rec_1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, models.SessionStatusRecording, readView(t, conn).Status)

	require.Eventually(t, func() bool { return h.Subscribers("rec_1") == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, h.PublishSession(ctx, models.RecordingSession{ID: "rec_1", Status: models.SessionStatusProcessing}))
	assert.Equal(t, models.SessionStatusProcessing, readView(t, conn).Status)

	// completed without an email outcome keeps the stream open
	require.NoError(t, h.PublishSession(ctx, models.RecordingSession{ID: "rec_1", Status: models.SessionStatusCompleted, VideoURL: "/api/recordings/rec_1.mp4"}))
	assert.Nil(t, readView(t, conn).EmailSent)

	sent := true
	require.NoError(t, h.PublishSession(ctx, models.RecordingSession{ID: "rec_1", Status: models.SessionStatusCompleted, EmailSent: &sent}))
	v := readView(t, conn)
	require.NotNil(t, v.EmailSent)
	assert.True(t, *v.EmailSent)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	require.Eventually(t, func() bool { return h.Subscribers("rec_1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeSessionEvents_FinalSnapshotClosesImmediately(t *testing.T) {
	h := NewHub(nil, nil, nil)
	srv := newEventsServer(h, staticLookup{"rec_1": {SessionID: "rec_1", Status: models.SessionStatusFailed, Error: "navigation timeout"}})
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/record/rec_1/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	v := readView(t, conn)
	assert.Equal(t, models.SessionStatusFailed, v.Status)
	assert.Equal(t, "navigation timeout", v.Error)
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestServeSessionEvents_UnknownSession(t *testing.T) {
	srv := newEventsServer(NewHub(nil, nil, nil), staticLookup{})
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/record/rec_x/events", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
