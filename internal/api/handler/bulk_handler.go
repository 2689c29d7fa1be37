package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/service"
)

// BulkHandler handles the bulk-creation endpoint used by sibling services
// that need to notify many users in one call.
type BulkHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewBulkHandler(svc *service.NotificationService, logger *zap.Logger) *BulkHandler {
	return &BulkHandler{svc: svc, logger: logger}
}

// CreateBulk handles POST /api/v1/notifications/bulk
//
// @Summary  Create up to 1000 notifications in a single request
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      domain.CreateBulkRequest  true  "Bulk payload"
// @Success  201   {object}  map[string]any
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications/bulk [post]
func (h *BulkHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	notifications, err := h.svc.CreateBulk(r.Context(), req.Notifications)
	if err != nil {
		h.logger.Warn("create bulk failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"data":  notifications,
		"count": len(notifications),
	})
}
