package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// inboundFrame is the only shape clients may send. Browsers that cannot see
// protocol-level pings use {"type":"ping"} as an application heartbeat.
type inboundFrame struct {
	Type string `json:"type"`
}

var pongFrame = []byte(`{"type":"pong"}`)

// Client is one socket of a signed-in user. A user may hold several.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID uuid.UUID
	Send   chan []byte

	connectedAt time.Time
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		Hub:         hub,
		Conn:        conn,
		UserID:      userID,
		Send:        make(chan []byte, sendBuffer),
		connectedAt: time.Now(),
	}
}

// enqueue never blocks; a full buffer means the writer is already stalled.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
		c.Hub.logger.Info("HUB", "Socket closed", map[string]interface{}{
			"user_id":  c.UserID,
			"duration": time.Since(c.connectedAt).String(),
		})
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("HUB", "Unexpected websocket close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			return
		}

		var frame inboundFrame
		if json.Unmarshal(raw, &frame) != nil {
			continue
		}
		if frame.Type == "ping" {
			c.Conn.SetReadDeadline(time.Now().Add(pongWait))
			c.Hub.reply(c, pongFrame)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per notification so clients can JSON.parse each message.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
