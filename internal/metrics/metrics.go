package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/queue"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EventsConsumed       *prometheus.CounterVec
	EventsDropped        *prometheus.CounterVec
	NotificationsCreated prometheus.Counter
	NotificationsPushed  *prometheus.CounterVec
	DeliverySkipped      *prometheus.CounterVec
	DeliveryLatency      *prometheus.HistogramVec
	QueueDepthUser       prometheus.Gauge
	QueueDepthTaskRoom   prometheus.Gauge
	QueueDepthBroadcast  prometheus.Gauge
	OnlineUsers          prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of broker events decoded and handled, by event type.",
		}, []string{"event_type"}),

		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of broker messages acked without effect, by reason.",
		}, []string{"reason"}),

		NotificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notification rows persisted.",
		}),

		NotificationsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_pushed_total",
			Help: "Total number of frames pushed over live connections, by delivery kind.",
		}, []string{"kind"}),

		DeliverySkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deliveries_skipped_total",
			Help: "Total number of queue items that reached no connection, by delivery kind.",
		}, []string{"kind"}),

		DeliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "delivery_seconds",
			Help:    "Latency from dequeue to the frame leaving the hub.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		QueueDepthUser: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_queue_depth_user",
			Help: "Current number of items in the per-user delivery queue.",
		}),
		QueueDepthTaskRoom: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_queue_depth_task_room",
			Help: "Current number of items in the task-room delivery queue.",
		}),
		QueueDepthBroadcast: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_queue_depth_broadcast",
			Help: "Current number of items in the broadcast delivery queue.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "online_users",
			Help: "Number of distinct users with at least one live connection.",
		}),
	}

	reg.MustRegister(
		m.EventsConsumed,
		m.EventsDropped,
		m.NotificationsCreated,
		m.NotificationsPushed,
		m.DeliverySkipped,
		m.DeliveryLatency,
		m.QueueDepthUser,
		m.QueueDepthTaskRoom,
		m.QueueDepthBroadcast,
		m.OnlineUsers,
	)

	return m
}

// ConsumerHooks returns the metric callbacks expected by broker.Hooks.
func (m *Metrics) ConsumerHooks() (
	onConsumed func(domain.EventKind),
	onDropped func(reason string),
) {
	onConsumed = func(k domain.EventKind) {
		m.EventsConsumed.WithLabelValues(string(k)).Inc()
	}
	onDropped = func(reason string) {
		m.EventsDropped.WithLabelValues(reason).Inc()
	}
	return
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so worker.go stays import-free.
func (m *Metrics) WorkerHooks() (
	onDelivered func(queue.Kind, time.Duration),
	onSkipped func(queue.Kind),
) {
	onDelivered = func(k queue.Kind, latency time.Duration) {
		m.NotificationsPushed.WithLabelValues(string(k)).Inc()
		m.DeliveryLatency.WithLabelValues(string(k)).Observe(latency.Seconds())
	}
	onSkipped = func(k queue.Kind) {
		m.DeliverySkipped.WithLabelValues(string(k)).Inc()
	}
	return
}

// OnCreated returns the callback invoked by the service after each persist.
func (m *Metrics) OnCreated() func(count int) {
	return func(count int) {
		m.NotificationsCreated.Add(float64(count))
	}
}

// OnlineGauge returns the callback the hub invokes on registry changes.
func (m *Metrics) OnlineGauge() func(count int) {
	return func(count int) {
		m.OnlineUsers.Set(float64(count))
	}
}

// ObserveQueueDepths copies the queue's current depths into the gauges.
// Called from a small ticker goroutine in main.
func (m *Metrics) ObserveQueueDepths(q *queue.DeliveryQueue) {
	user, taskRoom, broadcast := q.Depths()
	m.QueueDepthUser.Set(float64(user))
	m.QueueDepthTaskRoom.Set(float64(taskRoom))
	m.QueueDepthBroadcast.Set(float64(broadcast))
}
