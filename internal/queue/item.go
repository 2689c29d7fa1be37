package queue

// Kind selects the delivery path for a queued item.
type Kind string

const (
	// KindUser is a persisted per-user notification push.
	KindUser Kind = "user"
	// KindTaskRoom is a broadcast to everyone watching a task room.
	KindTaskRoom Kind = "task-room"
	// KindBroadcast goes to every connected client.
	KindBroadcast Kind = "broadcast"
)

// Item is the minimal data placed on the delivery queue.
// Workers fetch the full Notification from the DB using the ID (user kind),
// keeping the queue lightweight and the domain data authoritative.
// Task-room and broadcast items carry their payload inline since nothing
// is persisted for those paths.
type Item struct {
	Kind           Kind
	NotificationID string // KindUser
	UserID         string // KindUser: recipient
	TaskID         string // KindTaskRoom: target room
	ExcludeUserID  string // KindTaskRoom: actor to skip, if any
	Payload        []byte // KindTaskRoom / KindBroadcast: pre-encoded frame
}
