package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60

	// EventSessionUpdate carries a session status snapshot.
	EventSessionUpdate = "session_update"

	subscriberBuffer = 16
)

// RedisPublisher publishes session events for cross-instance broadcast.
type RedisPublisher interface {
	PublishSessionEvent(sessionID, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(sessionID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub fans session snapshots out to local subscribers. With Redis configured, snapshots are published
// to Redis only and delivered back through the subscription so every instance broadcasts once.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan models.StatusView
	remote map[string]func()
	nextID int
	pub    RedisPublisher
	sub    RedisSubscriber
	logger *zap.Logger
}

// NewHub creates a hub. pub and sub may be nil for single-instance deployments.
func NewHub(logger *zap.Logger, pub RedisPublisher, sub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		subs:   make(map[string]map[int]chan models.StatusView),
		remote: make(map[string]func()),
		logger: logger,
	}
	if pub != nil && sub != nil {
		h.pub, h.sub = pub, sub
	}
	return h
}

// PublishSession broadcasts the session's status snapshot.
func (h *Hub) PublishSession(_ context.Context, s models.RecordingSession) error {
	view := s.View()
	if h.pub == nil {
		h.broadcast(s.ID, view)
		return nil
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return h.pub.PublishSessionEvent(s.ID, EventSessionUpdate, payload)
}

// Subscribe registers for snapshots of sessionID. The returned cancel closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan models.StatusView, func()) {
	ch := make(chan models.StatusView, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan models.StatusView)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeSession(sessionID, func(event string, payload []byte) {
				if event != EventSessionUpdate {
					return
				}
				var view models.StatusView
				if err := json.Unmarshal(payload, &view); err != nil {
					return
				}
				h.broadcast(sessionID, view)
			})
			if err != nil {
				h.logger.Warn("redis session subscribe failed", zap.String("session_id", sessionID), zap.Error(err))
			} else {
				h.remote[sessionID] = cancel
			}
		}
	}
	h.subs[sessionID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(sessionID, id) })
	}
}

func (h *Hub) unsubscribe(sessionID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.subs[sessionID]
	if ch, ok := room[id]; ok {
		delete(room, id)
		close(ch)
	}
	if len(room) == 0 {
		delete(h.subs, sessionID)
		if cancel := h.remote[sessionID]; cancel != nil {
			cancel()
			delete(h.remote, sessionID)
		}
	}
}

func (h *Hub) broadcast(sessionID string, view models.StatusView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- view:
		default:
			h.logger.Debug("dropping session update for slow subscriber", zap.String("session_id", sessionID))
		}
	}
}

// Subscribers returns the number of local subscribers for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
