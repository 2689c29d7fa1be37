package handler

import (
	"net/http"

	"github.com/taskhub/notifier/internal/broker"
)

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	consumer *broker.Consumer
}

func NewHealthHandler(c *broker.Consumer) *HealthHandler {
	return &HealthHandler{consumer: c}
}

// Health handles GET /health
//
// @Summary  Liveness probe, includes the broker consumer state
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"consumer": h.consumer.State().String(),
	})
}
