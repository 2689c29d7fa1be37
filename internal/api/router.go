package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/api/handler"
	apimw "github.com/taskhub/notifier/internal/api/middleware"
	"github.com/taskhub/notifier/internal/broker"
	"github.com/taskhub/notifier/internal/config"
	"github.com/taskhub/notifier/internal/gateway"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/registry"
	"github.com/taskhub/notifier/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	cfg *config.Config,
	svc *service.NotificationService,
	gw *gateway.Gateway,
	q *queue.DeliveryQueue,
	consumer *broker.Consumer,
	connReg *registry.ConnectionRegistry,
	promReg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)     // recover panics, return 500
	r.Use(chimw.RealIP)        // trust X-Forwarded-For / X-Real-IP
	r.Use(apimw.CorrelationID) // X-Correlation-ID inject / echo

	// --- handler instances ---
	nh := handler.NewNotificationHandler(svc, logger)
	bh := handler.NewBulkHandler(svc, logger)
	ph := handler.NewPipelineHandler(q, consumer, connReg)
	hh := handler.NewHealthHandler(consumer)

	// The websocket endpoint must stay outside RequestLogger: the logging
	// wrapper does not implement http.Hijacker, which the upgrade needs.
	// The gateway authenticates the handshake itself (query token).
	r.Handle("/ws", gw)

	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
		r.Use(apimw.RequestLogger(logger))
		r.Use(apimw.RequireAuth(cfg.JWTSecret))

		r.Route("/api/v1", func(r chi.Router) {
			// Literal segments must be registered before /{id} so chi does
			// not treat "unread", "stats", "bulk" or "read-all" as an ID.
			r.Get("/notifications/unread", nh.Unread)
			r.Get("/notifications/stats", nh.Stats)
			r.Post("/notifications/bulk", bh.CreateBulk)
			r.Patch("/notifications/read-all", nh.MarkAllRead)

			r.Get("/notifications", nh.List)
			r.Post("/notifications", nh.Create)
			r.Patch("/notifications/{id}/read", nh.MarkRead)
			r.Delete("/notifications/{id}", nh.Delete)

			// JSON pipeline snapshot
			r.Get("/pipeline/stats", ph.GetStats)
		})
	})

	return r
}
