package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Broker topics. Each maps to one topic exchange on the broker.
const (
	TopicTaskEvents    = "task-events"
	TopicCommentEvents = "comment-events"
	TopicUserEvents    = "user-events"
)

// EventKind is the closed set of event types carried over the broker.
// Dispatch is total over this enum; anything that does not parse lands on
// KindUnknown and is logged and dropped rather than silently defaulted.
type EventKind string

const (
	KindUnknown EventKind = "unknown"

	KindTaskCreated       EventKind = "task.created"
	KindTaskUpdated       EventKind = "task.updated"
	KindTaskAssigned      EventKind = "task.assigned"
	KindTaskStatusChanged EventKind = "task.status_changed"
	KindTaskDeleted       EventKind = "task.deleted"

	KindCommentAdded   EventKind = "comment.added"
	KindCommentUpdated EventKind = "comment.updated"
	KindCommentDeleted EventKind = "comment.deleted"

	KindUserRegistered      EventKind = "user.registered"
	KindUserLoggedIn        EventKind = "user.logged_in"
	KindUserUpdated         EventKind = "user.updated"
	KindUserPasswordChanged EventKind = "user.password_changed"
	KindUserAssigned        EventKind = "user.assigned"
	KindUserUnassigned      EventKind = "user.unassigned"
)

// ParseEventKind maps a wire event-type string to its EventKind.
func ParseEventKind(s string) EventKind {
	switch EventKind(s) {
	case KindTaskCreated, KindTaskUpdated, KindTaskAssigned,
		KindTaskStatusChanged, KindTaskDeleted,
		KindCommentAdded, KindCommentUpdated, KindCommentDeleted,
		KindUserRegistered, KindUserLoggedIn, KindUserUpdated,
		KindUserPasswordChanged, KindUserAssigned, KindUserUnassigned:
		return EventKind(s)
	}
	return KindUnknown
}

// Topic returns the broker topic an event kind is published to.
func (k EventKind) Topic() string {
	switch k {
	case KindTaskCreated, KindTaskUpdated, KindTaskAssigned,
		KindTaskStatusChanged, KindTaskDeleted:
		return TopicTaskEvents
	case KindCommentAdded, KindCommentUpdated, KindCommentDeleted:
		return TopicCommentEvents
	case KindUserRegistered, KindUserLoggedIn, KindUserUpdated,
		KindUserPasswordChanged, KindUserAssigned, KindUserUnassigned:
		return TopicUserEvents
	}
	return ""
}

// Event is the decoded form of a broker message. Exactly one concrete type
// exists per EventKind; consumers dispatch with a type switch.
type Event interface {
	Kind() EventKind
}

// FieldChange records an old/new value pair for one changed task field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

type TaskCreatedEvent struct {
	TaskID            string    `json:"taskId"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	AssignedUsers     []string  `json:"assignedUsers"`
	CreatedBy         string    `json:"createdBy"`
	CreatedByUsername string    `json:"createdByUsername"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (TaskCreatedEvent) Kind() EventKind { return KindTaskCreated }

type TaskUpdatedEvent struct {
	TaskID            string                 `json:"taskId"`
	Title             string                 `json:"title"`
	AssignedUsers     []string               `json:"assignedUsers"`
	UpdatedBy         string                 `json:"updatedBy"`
	UpdatedByUsername string                 `json:"updatedByUsername"`
	Changes           map[string]FieldChange `json:"changes"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

func (TaskUpdatedEvent) Kind() EventKind { return KindTaskUpdated }

type TaskAssignedEvent struct {
	TaskID             string    `json:"taskId"`
	Title              string    `json:"title"`
	AssignedTo         string    `json:"assignedTo"`
	AssignedBy         string    `json:"assignedBy"`
	AssignedByUsername string    `json:"assignedByUsername"`
	AssignedAt         time.Time `json:"assignedAt"`
}

func (TaskAssignedEvent) Kind() EventKind { return KindTaskAssigned }

// TaskStatusChangedEvent reuses the updated-event shape; the status change
// is carried under Changes["status"].
type TaskStatusChangedEvent struct {
	TaskUpdatedEvent
}

func (TaskStatusChangedEvent) Kind() EventKind { return KindTaskStatusChanged }

type TaskDeletedEvent struct {
	TaskID            string    `json:"taskId"`
	Title             string    `json:"title"`
	AssignedUsers     []string  `json:"assignedUsers"`
	DeletedBy         string    `json:"deletedBy"`
	DeletedByUsername string    `json:"deletedByUsername"`
	DeletedAt         time.Time `json:"deletedAt"`
}

func (TaskDeletedEvent) Kind() EventKind { return KindTaskDeleted }

type CommentAddedEvent struct {
	TaskID           string    `json:"taskId"`
	TaskTitle        string    `json:"taskTitle"`
	CommentID        string    `json:"commentId"`
	Content          string    `json:"content"`
	AuthorID         string    `json:"authorId"`
	AuthorUsername   string    `json:"authorUsername"`
	ParticipantUsers []string  `json:"participantUsers"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (CommentAddedEvent) Kind() EventKind { return KindCommentAdded }

type CommentUpdatedEvent struct {
	CommentAddedEvent
}

func (CommentUpdatedEvent) Kind() EventKind { return KindCommentUpdated }

type CommentDeletedEvent struct {
	TaskID           string    `json:"taskId"`
	TaskTitle        string    `json:"taskTitle"`
	CommentID        string    `json:"commentId"`
	AuthorID         string    `json:"authorId"`
	AuthorUsername   string    `json:"authorUsername"`
	ParticipantUsers []string  `json:"participantUsers"`
	DeletedAt        time.Time `json:"deletedAt"`
}

func (CommentDeletedEvent) Kind() EventKind { return KindCommentDeleted }

// UserEvent covers the auth-service event types, which all share a shape.
type UserEvent struct {
	kind     EventKind
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	At       time.Time `json:"timestamp"`
}

func (e UserEvent) Kind() EventKind { return e.kind }

// NewUserEvent builds a user event of the given kind. Used by publishers;
// the consumer path sets the kind during decode instead.
func NewUserEvent(kind EventKind, userID, username, email string, at time.Time) UserEvent {
	return UserEvent{kind: kind, UserID: userID, Username: username, Email: email, At: at}
}

type UserAssignedEvent struct {
	UserID     string    `json:"userId"`
	TaskID     string    `json:"taskId"`
	AssignedBy string    `json:"assignedBy"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (UserAssignedEvent) Kind() EventKind { return KindUserAssigned }

type UserUnassignedEvent struct {
	UserID       string    `json:"userId"`
	TaskID       string    `json:"taskId"`
	UnassignedBy string    `json:"unassignedBy"`
	UnassignedAt time.Time `json:"unassignedAt"`
}

func (UserUnassignedEvent) Kind() EventKind { return KindUserUnassigned }

// UnknownEvent preserves the raw body of a message whose type did not parse.
type UnknownEvent struct {
	Type string
	Body json.RawMessage
}

func (UnknownEvent) Kind() EventKind { return KindUnknown }

// DecodeEvent turns a raw message body into its typed event. The eventType
// argument comes from the message headers, falling back to the body's own
// "type" field when the header is absent. A body that is not valid JSON for
// the expected shape returns an error; the consumer drops such messages.
func DecodeEvent(eventType string, body []byte) (Event, error) {
	if eventType == "" {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(body, &probe); err != nil {
			return nil, fmt.Errorf("decode event type probe: %w", err)
		}
		eventType = probe.Type
	}

	kind := ParseEventKind(eventType)

	switch kind {
	case KindTaskCreated:
		var e TaskCreatedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindTaskUpdated:
		var e TaskUpdatedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindTaskAssigned:
		var e TaskAssignedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindTaskStatusChanged:
		var e TaskStatusChangedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindTaskDeleted:
		var e TaskDeletedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindCommentAdded:
		var e CommentAddedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindCommentUpdated:
		var e CommentUpdatedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindCommentDeleted:
		var e CommentDeletedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindUserRegistered, KindUserLoggedIn, KindUserUpdated, KindUserPasswordChanged:
		var e UserEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		e.kind = kind
		return e, nil
	case KindUserAssigned:
		var e UserAssignedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindUserUnassigned:
		var e UserUnassignedEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	}

	return UnknownEvent{Type: eventType, Body: body}, nil
}
