package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"planhub-be/internal/model"
	"planhub-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// clusterMessage is what instances exchange over redis. Origin lets an
// instance skip its own publications, which it already delivered locally.
type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// UserID -> connections (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// nil runs the hub in single-instance mode
	rdb *redis.Client

	instanceID string
	logger     logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("HUB", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("HUB", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

// reply answers one socket. Send is only written while the client is still
// registered so it can never race with remove closing the channel.
func (h *Hub) reply(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[client.UserID] {
		if c == client {
			client.enqueue(data)
			return
		}
	}
}

// ConnectedUsers is the number of users with at least one live socket here.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeNotification(notification model.Notification) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})
	return data
}

// deliverLocal pushes to this instance's sockets. A nil userID reaches
// everyone. Slow clients are dropped rather than blocking the hub.
func (h *Hub) deliverLocal(userID *uuid.UUID, data []byte) {
	var stale []*Client

	h.mu.RLock()
	for uid, clients := range h.clients {
		if userID != nil && uid != *userID {
			continue
		}
		for _, client := range clients {
			if !client.enqueue(data) {
				stale = append(stale, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.logger.Warn("HUB", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
		h.remove(client)
	}
}

func (h *Hub) publishCluster(target string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(clusterMessage{
		Origin:       h.instanceID,
		TargetUserID: target,
		Message:      data,
	})
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("HUB", "Failed to publish cluster event", map[string]interface{}{"error": err.Error()})
	}
}

// Broadcast sends a notification to every connected client on every instance.
func (h *Hub) Broadcast(notification model.Notification) {
	data := encodeNotification(notification)
	h.deliverLocal(nil, data)
	h.publishCluster("*", data)
}

// Send delivers to all of one user's devices on every instance.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	data := encodeNotification(notification)
	h.deliverLocal(&userID, data)
	h.publishCluster(userID.String(), data)
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("HUB", "Malformed cluster event", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}

		if payload.TargetUserID == "*" {
			h.deliverLocal(nil, payload.Message)
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(&uid, payload.Message)
	}
}
