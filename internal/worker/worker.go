package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/gateway"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/ratelimiter"
	"github.com/taskhub/notifier/internal/repository"
)

// Pusher delivers pre-encoded frames to live connections. Satisfied by
// *gateway.Hub; tests substitute a recording fake.
type Pusher interface {
	PushToUser(userID string, payload []byte) int
	PushToTaskRoom(taskID, excludeUserID string, payload []byte) int
	Broadcast(payload []byte) int
}

// Online reports connection presence. Satisfied by *registry.ConnectionRegistry.
type Online interface {
	IsOnline(userID string) bool
}

// Worker is a single goroutine that continuously pulls items from the delivery
// queue, applies per-kind rate limiting, and pushes frames over the gateway.
// Per-user items also flip the persisted row to sent once at least one
// connection received the frame.
type Worker struct {
	id      int
	q       *queue.DeliveryQueue
	repo    repository.NotificationRepository
	hub     Pusher
	online  Online
	limiter *ratelimiter.KindLimiters
	logger  *zap.Logger

	// Hooks for metrics, injected by the pool so the worker stays metrics-agnostic.
	onDelivered func(kind queue.Kind, latency time.Duration)
	onSkipped   func(kind queue.Kind)
}

// NewWorker constructs a worker. onDelivered and onSkipped are optional (nil = no-op).
func NewWorker(
	id int,
	q *queue.DeliveryQueue,
	repo repository.NotificationRepository,
	hub Pusher,
	online Online,
	limiter *ratelimiter.KindLimiters,
	logger *zap.Logger,
	onDelivered func(queue.Kind, time.Duration),
	onSkipped func(queue.Kind),
) *Worker {
	if onDelivered == nil {
		onDelivered = func(queue.Kind, time.Duration) {}
	}
	if onSkipped == nil {
		onSkipped = func(queue.Kind) {}
	}
	return &Worker{
		id: id, q: q, repo: repo, hub: hub,
		online: online, limiter: limiter, logger: logger,
		onDelivered: onDelivered, onSkipped: onSkipped,
	}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("delivery worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("delivery worker stopping", zap.Int("id", w.id))
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	// Block here until the per-kind rate limiter grants a token.
	if err := w.limiter.Wait(ctx, item.Kind); err != nil {
		// ctx cancelled while waiting, worker is shutting down.
		return
	}

	switch item.Kind {
	case queue.KindUser:
		w.deliverUser(ctx, item)
	case queue.KindTaskRoom:
		start := time.Now()
		sent := w.hub.PushToTaskRoom(item.TaskID, item.ExcludeUserID, item.Payload)
		if sent == 0 {
			w.onSkipped(item.Kind)
			return
		}
		w.onDelivered(item.Kind, time.Since(start))
	case queue.KindBroadcast:
		start := time.Now()
		sent := w.hub.Broadcast(item.Payload)
		if sent == 0 {
			w.onSkipped(item.Kind)
			return
		}
		w.onDelivered(item.Kind, time.Since(start))
	default:
		w.logger.Error("unknown queue item kind", zap.String("kind", string(item.Kind)))
	}
}

// deliverUser pushes a persisted notification to the recipient's connections.
// Rows that already left pending (read via the REST surface between enqueue
// and processing) are skipped; an offline recipient leaves the row pending so
// the unread fetch picks it up on the next login.
func (w *Worker) deliverUser(ctx context.Context, item queue.Item) {
	start := time.Now()
	log := w.logger.With(
		zap.String("notification_id", item.NotificationID),
		zap.String("user_id", item.UserID),
	)

	if !w.online.IsOnline(item.UserID) {
		log.Debug("recipient offline, row stays pending")
		w.onSkipped(queue.KindUser)
		return
	}

	n, err := w.repo.GetByID(ctx, item.NotificationID)
	if err != nil {
		log.Error("failed to fetch notification", zap.Error(err))
		return
	}
	if n.Status != domain.StatusPending {
		log.Debug("notification already progressed", zap.String("status", string(n.Status)))
		return
	}

	payload := gateway.EncodeFrame(gateway.EventNotification, n)
	sent := w.hub.PushToUser(item.UserID, payload)
	if sent == 0 {
		// Connection closed between the presence check and the push.
		log.Debug("no live connection at push time, row stays pending")
		w.onSkipped(queue.KindUser)
		return
	}

	updated, err := w.repo.MarkSent(ctx, n.ID, time.Now().UTC())
	if err != nil {
		log.Error("failed to mark as sent", zap.Error(err))
		return
	}
	if !updated {
		// Lost the race against a concurrent mark-read; the push already
		// happened, which is fine, the status just never goes backwards.
		log.Debug("row moved past pending before mark-sent")
	}

	elapsed := time.Since(start)
	w.onDelivered(queue.KindUser, elapsed)
	log.Info("notification delivered",
		zap.Int("connections", sent), zap.Duration("latency", elapsed))
}
