package domain

import "time"

// NotificationType classifies what kind of task activity produced a notification.
type NotificationType string

const (
	TypeTaskCreated       NotificationType = "task_created"
	TypeTaskUpdated       NotificationType = "task_updated"
	TypeTaskAssigned      NotificationType = "task_assigned"
	TypeTaskStatusChanged NotificationType = "task_status_changed"
	TypeCommentAdded      NotificationType = "comment_added"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case TypeTaskCreated, TypeTaskUpdated, TypeTaskAssigned,
		TypeTaskStatusChanged, TypeCommentAdded:
		return true
	}
	return false
}

// Status tracks the delivery lifecycle of a notification.
// Transitions are monotonic: pending -> sent -> read. A row may also go
// straight from pending to read (the user fetched it before a live push
// happened) or to failed. It never moves backwards to pending.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusRead    Status = "read"
	StatusFailed  Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusRead, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next respects the
// monotonic lifecycle.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusSent || next == StatusRead || next == StatusFailed
	case StatusSent:
		return next == StatusRead
	}
	return false
}

// Notification is one per-recipient row produced by the fan-out.
type Notification struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Data          map[string]any   `json:"data,omitempty"`
	Status        Status           `json:"status"`
	TaskID        *string          `json:"task_id,omitempty"`
	TaskTitle     *string          `json:"task_title,omitempty"`
	ActorID       *string          `json:"actor_id,omitempty"`
	ActorUsername *string          `json:"actor_username,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ReadAt        *time.Time       `json:"read_at,omitempty"`
	SentAt        *time.Time       `json:"sent_at,omitempty"`
}

// CreateNotificationRequest is the inbound payload for creating a
// notification directly through the REST API.
type CreateNotificationRequest struct {
	UserID        string           `json:"user_id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Data          map[string]any   `json:"data,omitempty"`
	TaskID        *string          `json:"task_id,omitempty"`
	TaskTitle     *string          `json:"task_title,omitempty"`
	ActorID       *string          `json:"actor_id,omitempty"`
	ActorUsername *string          `json:"actor_username,omitempty"`
}

func (r *CreateNotificationRequest) Validate() error {
	if r.UserID == "" {
		return ErrInvalidRecipient
	}
	if !r.Type.IsValid() {
		return ErrInvalidType
	}
	if r.Title == "" || len(r.Title) > maxTitleLength {
		return ErrInvalidTitle
	}
	if r.Message == "" || len(r.Message) > maxMessageLength {
		return ErrInvalidMessage
	}
	return nil
}

const (
	maxTitleLength   = 255
	maxMessageLength = 4096
)

// CreateBulkRequest wraps a slice of notification requests.
type CreateBulkRequest struct {
	Notifications []CreateNotificationRequest `json:"notifications"`
}

// ListFilter holds query parameters for paginated per-user listing.
type ListFilter struct {
	UserID string
	Status *Status
	Page   int
	Limit  int
}

// Stats is the per-user notification count summary.
type Stats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
	Read   int `json:"read"`
}
