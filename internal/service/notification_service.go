package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/repository"
)

// NotificationService coordinates the repository and the delivery queue.
// All business rules (fan-out, actor exclusion, status lifecycle) live here.
// HTTP handlers, the consumer, and the workers depend on this service, not
// on each other.
type NotificationService struct {
	repo   repository.NotificationRepository
	q      *queue.DeliveryQueue
	logger *zap.Logger

	// onCreated is a metrics hook incremented per persisted row.
	onCreated func(n int)
}

func NewNotificationService(
	repo repository.NotificationRepository,
	q *queue.DeliveryQueue,
	logger *zap.Logger,
	onCreated func(int),
) *NotificationService {
	if onCreated == nil {
		onCreated = func(int) {}
	}
	return &NotificationService{repo: repo, q: q, logger: logger, onCreated: onCreated}
}

// Create validates, persists, and enqueues a single notification.
func (s *NotificationService) Create(
	ctx context.Context,
	req domain.CreateNotificationRequest,
) (*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := buildNotification(req)
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	s.onCreated(1)

	s.enqueueUser(n)
	return n, nil
}

// CreateBulk validates and creates up to 1000 notifications in a single
// transaction, then enqueues each for delivery.
func (s *NotificationService) CreateBulk(
	ctx context.Context,
	requests []domain.CreateNotificationRequest,
) ([]*domain.Notification, error) {
	if len(requests) == 0 {
		return nil, domain.ErrBulkEmpty
	}
	if len(requests) > 1000 {
		return nil, domain.ErrBulkTooLarge
	}

	notifications := make([]*domain.Notification, len(requests))
	for i, req := range requests {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		notifications[i] = buildNotification(req)
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return nil, fmt.Errorf("persist bulk: %w", err)
	}
	s.onCreated(len(notifications))

	for _, n := range notifications {
		s.enqueueUser(n)
	}
	return notifications, nil
}

func (s *NotificationService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Notification, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *NotificationService) Unread(ctx context.Context, userID string) ([]*domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID)
}

// MarkRead transitions a user's notification to read. Rows already read, or
// belonging to someone else, surface as ErrNotFound.
// Also satisfies the gateway's ReadMarker so connected clients can mark
// over the socket.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	ok, err := s.repo.MarkRead(ctx, notificationID, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
}

func (s *NotificationService) Delete(ctx context.Context, notificationID, userID string) error {
	ok, err := s.repo.Delete(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NotificationService) Stats(ctx context.Context, userID string) (*domain.Stats, error) {
	return s.repo.Stats(ctx, userID)
}

// ---- private helpers ----

func buildNotification(req domain.CreateNotificationRequest) *domain.Notification {
	now := time.Now().UTC()
	return &domain.Notification{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		Data:          req.Data,
		Status:        domain.StatusPending,
		TaskID:        req.TaskID,
		TaskTitle:     req.TaskTitle,
		ActorID:       req.ActorID,
		ActorUsername: req.ActorUsername,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// enqueueUser places a persisted row on the delivery queue. A full queue is
// logged and the row stays pending; it surfaces on the user's next fetch.
func (s *NotificationService) enqueueUser(n *domain.Notification) {
	err := s.q.Enqueue(queue.Item{
		Kind:           queue.KindUser,
		NotificationID: n.ID,
		UserID:         n.UserID,
	})
	if err != nil {
		s.logger.Warn("delivery queue full: notification stays pending",
			zap.String("id", n.ID), zap.Error(err))
	}
}
