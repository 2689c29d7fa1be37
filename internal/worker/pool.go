package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/config"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/ratelimiter"
	"github.com/taskhub/notifier/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnDelivered func(kind queue.Kind, latency time.Duration)
	OnSkipped   func(kind queue.Kind)
}

// Pool manages the lifecycle of all delivery workers.
// All workers share the same delivery queue; the queue's double-select
// pattern handles priority ordering internally.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates the configured number of delivery workers. All workers are
// identical; the item's Kind field selects the delivery path.
func NewPool(
	cfg *config.Config,
	q *queue.DeliveryQueue,
	repo repository.NotificationRepository,
	hub Pusher,
	online Online,
	limiter *ratelimiter.KindLimiters,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	workers := make([]*Worker, cfg.DeliveryWorkers)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, repo, hub, online, limiter,
			logger.With(zap.Int("worker_id", i)),
			hooks.OnDelivered,
			hooks.OnSkipped,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context to ensure in-flight pushes finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
