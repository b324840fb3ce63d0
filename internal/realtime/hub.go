package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/events"
)

// Message is the wire format pushed to connected clients. The incident
// identifier travels as "id"; subscribers key on it to refresh views.
type Message struct {
	Type       string `json:"type"`
	IncidentID string `json:"id,omitempty"`
}

// envelope wraps a message for the redis bridge so instances can
// discard their own publications.
type envelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

// Client is a registered consumer of broadcast messages. Send is a
// buffered channel; slow consumers get messages dropped, never a stall.
type Client struct {
	ID   string
	Send chan Message
}

// Hub fans broadcast messages out to all registered clients. When a
// redis client is provided, publications are mirrored over pub/sub so
// every instance behind a load balancer sees every message.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	logger   *zap.Logger
	redis    *redis.Client
	channel  string
	instance string
	bufLen   int
}

// NewHub creates a hub. redisClient may be nil for single-instance
// deployments.
func NewHub(logger *zap.Logger, redisClient *redis.Client, channel string, bufLen int) *Hub {
	if bufLen <= 0 {
		bufLen = 16
	}
	return &Hub{
		clients:  make(map[string]*Client),
		logger:   logger,
		redis:    redisClient,
		channel:  channel,
		instance: uuid.NewString(),
		bufLen:   bufLen,
	}
}

// Register adds a client and returns it.
func (h *Hub) Register() *Client {
	client := &Client{
		ID:   uuid.NewString(),
		Send: make(chan Message, h.bufLen),
	}
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	return client
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.mu.Unlock()
}

// Publish broadcasts to local clients and, when bridged, to peers.
func (h *Hub) Publish(ctx context.Context, msg Message) {
	h.broadcast(msg)

	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(envelope{Origin: h.instance, Message: msg})
	if err != nil {
		h.logger.Error("marshal realtime envelope", zap.Error(err))
		return
	}
	if err := h.redis.Publish(ctx, h.channel, payload).Err(); err != nil {
		h.logger.Warn("publish realtime message to redis", zap.Error(err))
	}
}

func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			// Client buffer full; drop rather than block the hub.
			h.logger.Debug("dropping realtime message for slow client",
				zap.String("client_id", client.ID),
			)
		}
	}
}

// Run consumes the redis bridge until ctx is cancelled. No-op without
// a redis client.
func (h *Hub) Run(ctx context.Context) {
	if h.redis == nil {
		return
	}
	sub := h.redis.Subscribe(ctx, h.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				h.logger.Warn("malformed realtime envelope", zap.Error(err))
				continue
			}
			if env.Origin == h.instance {
				continue
			}
			h.broadcast(env.Message)
		}
	}
}

// RegisterHandlers subscribes the hub to the domain events it mirrors
// to connected clients.
func RegisterHandlers(dispatcher events.Dispatcher, hub *Hub) {
	created := func(ctx context.Context, event events.Event) error {
		hub.Publish(ctx, Message{Type: "INCIDENT_CREATED", IncidentID: event.IncidentID})
		return nil
	}
	updated := func(ctx context.Context, event events.Event) error {
		hub.Publish(ctx, Message{Type: "INCIDENT_UPDATED", IncidentID: event.IncidentID})
		return nil
	}

	dispatcher.Subscribe(events.EventIncidentCreated, created)
	dispatcher.Subscribe(events.EventIncidentStatusChanged, updated)
	dispatcher.Subscribe(events.EventIncidentAssigned, updated)
	dispatcher.Subscribe(events.EventIncidentPriorityChanged, updated)
	dispatcher.Subscribe(events.EventIncidentCommentAdded, updated)
}
