package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broadcaster fans a named event out to connected real-time listeners.
// Delivery is best-effort: no acknowledgment, no guarantee.
type Broadcaster interface {
	Publish(ctx context.Context, event string, payload any)
}

// Message is the wire shape delivered to listeners.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub tracks websocket listeners and fans messages out to them. When a redis
// client is configured the hub publishes through a pub/sub channel instead of
// writing directly, so listeners attached to other instances receive the
// message too; the subscribe loop feeds local connections either way.
type Hub struct {
	mu      sync.RWMutex
	conns   map[*websocket.Conn]struct{}
	redis   *redis.Client
	channel string
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewHub creates the hub. redisClient may be nil for single-instance
// deployments; channel is the redis pub/sub channel name.
func NewHub(redisClient *redis.Client, channel string, logger *zap.Logger) *Hub {
	h := &Hub{
		conns:   make(map[*websocket.Conn]struct{}),
		redis:   redisClient,
		channel: channel,
		logger:  logger,
	}
	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.subscribeLoop(ctx)
	}
	return h
}

// Publish sends the event to all listeners. Failures are logged and
// swallowed; Publish never reports an error to the caller.
func (h *Hub) Publish(ctx context.Context, event string, payload any) {
	data, err := json.Marshal(Message{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("broadcast marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	if h.redis != nil {
		if err := h.redis.Publish(ctx, h.channel, data).Err(); err != nil {
			h.logger.Warn("redis publish failed, falling back to local fan-out",
				zap.String("event", event), zap.Error(err))
			h.fanOut(data)
		}
		return
	}
	h.fanOut(data)
}

// Register adds a websocket listener and blocks reading it until the client
// disconnects. Intended to be called from the websocket route handler.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		h.logger.Debug("websocket client disconnected")
	}()

	// listeners are write-only from our side; the read loop only detects close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close stops the redis subscription loop.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

// fanOut takes the write lock so concurrent publishes never interleave
// writes on the same connection.
func (h *Hub) fanOut(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

func (h *Hub) subscribeLoop(ctx context.Context) {
	sub := h.redis.Subscribe(ctx, h.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.fanOut([]byte(msg.Payload))
		}
	}
}
