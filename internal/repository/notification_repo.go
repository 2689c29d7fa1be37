package repository

import (
	"context"
	"time"

	"github.com/taskhub/notifier/internal/domain"
)

// NotificationRepository defines all persistence operations for notifications.
// The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// CreateBatch persists the fan-out result in one transaction.
	CreateBatch(ctx context.Context, notifications []*domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Notification, int, error)
	ListUnread(ctx context.Context, userID string) ([]*domain.Notification, error)

	// MarkSent transitions pending -> sent. The update is guarded: a row that
	// has already moved past pending is left untouched and false is returned,
	// which keeps the status lifecycle monotonic under concurrent delivery.
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	// MarkRead transitions pending|sent -> read for a row owned by userID.
	MarkRead(ctx context.Context, id, userID string, readAt time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error)

	Delete(ctx context.Context, id, userID string) (bool, error)
	Stats(ctx context.Context, userID string) (*domain.Stats, error)
}
