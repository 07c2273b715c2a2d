package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware governs browser origins
	},
}

const writeWait = 10 * time.Second

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SessionLookup returns the current snapshot of a session.
type SessionLookup interface {
	GetSessionStatus(id string) (models.StatusView, bool)
}

// final reports whether no further snapshots will follow: failed, or completed with the email outcome known.
func final(v models.StatusView) bool {
	return v.Status == models.SessionStatusFailed ||
		(v.Status == models.SessionStatusCompleted && v.EmailSent != nil)
}

// ServeSessionEvents handles GET /api/record/:sessionId/events. It sends the current snapshot, then
// every change, and closes once the session is final or the client goes away.
func ServeSessionEvents(hub *Hub, lookup SessionLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if _, ok := lookup.GetSessionStatus(sessionID); !ok {
			response.NotFound(c, "session not found")
			return
		}

		updates, cancel := hub.Subscribe(sessionID)
		defer cancel()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		gone := make(chan struct{})
		go readPump(conn, gone)

		current, ok := lookup.GetSessionStatus(sessionID)
		if !ok {
			closeNormal(conn, "session expired")
			return
		}
		if err := writeView(conn, current); err != nil || final(current) {
			closeNormal(conn, "done")
			return
		}

		ticker := time.NewTicker(PingInterval * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gone:
				return
			case view, ok := <-updates:
				if !ok {
					return
				}
				if err := writeView(conn, view); err != nil {
					return
				}
				if final(view) {
					closeNormal(conn, "done")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

// readPump discards client messages and signals when the connection closes.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeView(conn *websocket.Conn, view models.StatusView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(WSMessage{Event: EventSessionUpdate, Data: data})
}

func closeNormal(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), time.Now().Add(writeWait))
}
