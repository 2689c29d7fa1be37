package gateway

import (
	"encoding/json"
	"time"
)

// Wire event names pushed by the server.
const (
	EventConnected        = "connected"
	EventNotification     = "notification"
	EventTaskNotification = "task-notification"
	EventBroadcast        = "broadcast-notification"
	EventJoinedTaskRoom   = "joined-task-room"
	EventLeftTaskRoom     = "left-task-room"
	EventMarkedRead       = "notification-marked-read"
	EventError            = "error"
)

// Wire event names accepted from clients.
const (
	EventJoinTaskRoom  = "join-task-room"
	EventLeaveTaskRoom = "leave-task-room"
	EventMarkRead      = "mark-notification-read"
)

// Frame is the envelope for every message in either direction.
type Frame struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EncodeFrame builds the wire bytes for an outbound frame.
// Marshal errors are impossible for the payload types we push; a failure
// returns nil and the push becomes a no-op.
func EncodeFrame(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	f := Frame{Event: event, Data: raw, Timestamp: time.Now().UTC()}
	out, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return out
}
