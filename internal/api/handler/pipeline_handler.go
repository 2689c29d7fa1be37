package handler

import (
	"net/http"

	"github.com/taskhub/notifier/internal/broker"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/registry"
)

// PipelineHandler serves a human-readable JSON snapshot of the delivery
// pipeline. Raw Prometheus metrics (counters, histograms) are available at
// /metrics via promhttp.Handler and are separate from this endpoint.
type PipelineHandler struct {
	q        *queue.DeliveryQueue
	consumer *broker.Consumer
	registry *registry.ConnectionRegistry
}

func NewPipelineHandler(q *queue.DeliveryQueue, c *broker.Consumer, reg *registry.ConnectionRegistry) *PipelineHandler {
	return &PipelineHandler{q: q, consumer: c, registry: reg}
}

// GetStats handles GET /api/v1/pipeline/stats
//
// @Summary  Real-time pipeline snapshot
// @Tags     pipeline
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/pipeline/stats [get]
func (h *PipelineHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user, taskRoom, broadcast := h.q.Depths()
	respondJSON(w, http.StatusOK, map[string]any{
		"consumer_state": h.consumer.State().String(),
		"online_users":   h.registry.OnlineCount(),
		"queue_depth": map[string]int{
			"user":      user,
			"task_room": taskRoom,
			"broadcast": broadcast,
			"total":     user + taskRoom + broadcast,
		},
	})
}
