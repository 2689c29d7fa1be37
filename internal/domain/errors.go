package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidType      = errors.New("invalid notification type")
	ErrInvalidRecipient = errors.New("recipient user id must not be empty")
	ErrInvalidTitle     = errors.New("title must not be empty")
	ErrInvalidMessage   = errors.New("message must not be empty")
	ErrBulkEmpty        = errors.New("bulk request must contain at least one notification")
	ErrBulkTooLarge     = errors.New("bulk request exceeds maximum of 1000 notifications")
	ErrQueueFull        = errors.New("delivery queue is at capacity")
	ErrUnknownEvent     = errors.New("unknown event type")
)
