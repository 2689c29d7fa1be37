package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/repository"
	"github.com/taskhub/notifier/internal/service"
)

func newService() (*service.NotificationService, *repository.MockNotificationRepository, *queue.DeliveryQueue) {
	repo := repository.NewMockNotificationRepository()
	q := queue.New()
	svc := service.NewNotificationService(repo, q, zap.NewNop(), nil)
	return svc, repo, q
}

var validReq = domain.CreateNotificationRequest{
	UserID:  "user-1",
	Type:    domain.TypeTaskCreated,
	Title:   "New task assigned",
	Message: "alice created the task \"Ship it\" and assigned it to you",
}

func TestNotificationService_Create(t *testing.T) {
	svc, repo, q := newService()
	ctx := context.Background()

	n, err := svc.Create(ctx, validReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected a non-empty ID")
	}
	if n.Status != domain.StatusPending {
		t.Fatalf("expected status=pending, got %s", n.Status)
	}
	if repo.Count() != 1 {
		t.Fatalf("expected 1 persisted row, got %d", repo.Count())
	}

	user, _, _ := q.Depths()
	if user != 1 {
		t.Fatalf("expected 1 user item enqueued, got %d", user)
	}
}

func TestNotificationService_Create_InvalidRequest(t *testing.T) {
	svc, _, _ := newService()

	bad := validReq
	bad.Type = "carrier_pigeon"
	_, err := svc.Create(context.Background(), bad)
	if err != domain.ErrInvalidType {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestNotificationService_Create_RepoFailure(t *testing.T) {
	svc, repo, q := newService()
	repo.CreateErr = errors.New("db down")

	if _, err := svc.Create(context.Background(), validReq); err == nil {
		t.Fatal("expected an error when persistence fails")
	}

	// Nothing should reach the queue when the row was never persisted.
	user, _, _ := q.Depths()
	if user != 0 {
		t.Fatalf("expected empty queue, got %d items", user)
	}
}

func TestNotificationService_CreateBulk(t *testing.T) {
	svc, repo, q := newService()

	requests := make([]domain.CreateNotificationRequest, 5)
	for i := range requests {
		requests[i] = validReq
	}

	notifications, err := svc.CreateBulk(context.Background(), requests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 5 {
		t.Fatalf("expected 5 notifications, got %d", len(notifications))
	}
	if repo.Count() != 5 {
		t.Fatalf("expected 5 persisted rows, got %d", repo.Count())
	}
	user, _, _ := q.Depths()
	if user != 5 {
		t.Fatalf("expected 5 queued items, got %d", user)
	}
}

func TestNotificationService_CreateBulk_Empty(t *testing.T) {
	svc, _, _ := newService()
	_, err := svc.CreateBulk(context.Background(), nil)
	if err != domain.ErrBulkEmpty {
		t.Fatalf("expected ErrBulkEmpty, got %v", err)
	}
}

func TestNotificationService_CreateBulk_TooLarge(t *testing.T) {
	svc, _, _ := newService()

	requests := make([]domain.CreateNotificationRequest, 1001)
	for i := range requests {
		requests[i] = validReq
	}

	_, err := svc.CreateBulk(context.Background(), requests)
	if err != domain.ErrBulkTooLarge {
		t.Fatalf("expected ErrBulkTooLarge, got %v", err)
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)

	if err := svc.MarkRead(ctx, n.ID, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _, _ := svc.List(ctx, domain.ListFilter{UserID: "user-1"})
	if got[0].Status != domain.StatusRead {
		t.Fatalf("expected status=read, got %s", got[0].Status)
	}
	if got[0].ReadAt == nil {
		t.Fatal("expected read_at to be set")
	}
}

func TestNotificationService_MarkRead_WrongUser(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)

	// Another user cannot read someone else's notification.
	if err := svc.MarkRead(ctx, n.ID, "intruder"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationService_MarkRead_AlreadyRead(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)
	_ = svc.MarkRead(ctx, n.ID, "user-1")

	// A second mark-read finds no row still in pending or sent.
	if err := svc.MarkRead(ctx, n.ID, "user-1"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound on double read, got %v", err)
	}
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Create(ctx, validReq)
	}
	other := validReq
	other.UserID = "user-2"
	_, _ = svc.Create(ctx, other)

	updated, err := svc.MarkAllRead(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 3 {
		t.Fatalf("expected 3 rows updated, got %d", updated)
	}

	// The other user's notification is untouched.
	unread, _ := svc.Unread(ctx, "user-2")
	if len(unread) != 1 {
		t.Fatalf("expected user-2 to keep 1 unread, got %d", len(unread))
	}
}

func TestNotificationService_Delete(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	n, _ := svc.Create(ctx, validReq)

	if err := svc.Delete(ctx, n.ID, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.Count() != 0 {
		t.Fatalf("expected row deleted, %d remain", repo.Count())
	}

	if err := svc.Delete(ctx, n.ID, "user-1"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

func TestNotificationService_List_Defaults(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, validReq)

	// Zero page and limit fall back to page 1, limit 20.
	notifications, total, err := svc.List(ctx, domain.ListFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(notifications) != 1 {
		t.Fatalf("expected 1 result, got total=%d len=%d", total, len(notifications))
	}
}

func TestNotificationService_Stats(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	a, _ := svc.Create(ctx, validReq)
	_, _ = svc.Create(ctx, validReq)
	_ = svc.MarkRead(ctx, a.ID, "user-1")

	stats, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 2 || stats.Unread != 1 || stats.Read != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
