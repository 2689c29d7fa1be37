package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBufferSize = 64

// Client is one open websocket connection with an authenticated identity.
type Client struct {
	id       string
	userID   string
	username string

	hub  *Hub
	conn *websocket.Conn

	// sendMu serialises trySend against closeSend: push methods snapshot
	// their targets before sending, so a client can disconnect between the
	// snapshot and the send. The closed flag turns that late send into a
	// drop instead of a send on a closed channel.
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	writeWait time.Duration
	pongWait  time.Duration
	logger    *zap.Logger
}

// trySend queues payload for the write pump without blocking.
// A full buffer means the client is too slow to keep up; the frame is
// dropped and delivery for that handle is silently lost. Sends racing a
// disconnect are dropped the same way.
func (c *Client) trySend(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("send buffer full, frame dropped",
			zap.String("user_id", c.userID),
			zap.String("conn_id", c.id),
		)
		return false
	}
}

// closeSend shuts the send channel exactly once, ending the write pump.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes inbound frames until the connection errors or closes,
// then unregisters the client. Runs as its own goroutine per connection.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("unexpected close", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.handleFrame(ctx, raw)
	}
}

var maxInboundBytes int64 = 4096

type joinLeavePayload struct {
	TaskID string `json:"taskId"`
}

type markReadPayload struct {
	NotificationID string `json:"notificationId"`
}

func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.trySend(EncodeFrame(EventError, map[string]string{"message": "malformed frame"}))
		return
	}

	switch f.Event {
	case EventJoinTaskRoom:
		var p joinLeavePayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.TaskID == "" {
			c.trySend(EncodeFrame(EventError, map[string]string{"message": "taskId required"}))
			return
		}
		c.hub.joinRoom(c, p.TaskID)
		c.logger.Info("joined task room",
			zap.String("user_id", c.userID), zap.String("task_id", p.TaskID))
		c.trySend(EncodeFrame(EventJoinedTaskRoom, p))

	case EventLeaveTaskRoom:
		var p joinLeavePayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.TaskID == "" {
			c.trySend(EncodeFrame(EventError, map[string]string{"message": "taskId required"}))
			return
		}
		c.hub.leaveRoom(c, p.TaskID)
		c.trySend(EncodeFrame(EventLeftTaskRoom, p))

	case EventMarkRead:
		var p markReadPayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.NotificationID == "" {
			c.trySend(EncodeFrame(EventError, map[string]string{"message": "notificationId required"}))
			return
		}
		if err := c.hub.marker.MarkRead(ctx, p.NotificationID, c.userID); err != nil {
			c.trySend(EncodeFrame(EventError, map[string]string{"message": "could not mark read"}))
			return
		}
		c.trySend(EncodeFrame(EventMarkedRead, p))

	default:
		c.trySend(EncodeFrame(EventError, map[string]string{"message": "unknown event"}))
	}
}

// writePump flushes queued frames and keeps the connection alive with pings.
// Runs as its own goroutine per connection; exits when the send channel is
// closed by unregister or a write fails.
func (c *Client) writePump() {
	pingInterval := c.pongWait * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
