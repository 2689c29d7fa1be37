package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/taskhub/notifier/internal/api/middleware"
	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/service"
)

// NotificationHandler handles the per-user notification endpoints. Every
// route is scoped to the authenticated caller: the user ID always comes
// from the token, never from the request body or query.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  List the caller's notifications with filtering and pagination
// @Tags     notifications
// @Produce  json
// @Param    status  query     string  false  "Filter by status"
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 20, max 100)"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	filter.UserID = apimw.GetUserID(r.Context())

	notifications, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  notifications,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// Unread handles GET /api/v1/notifications/unread
//
// @Summary  List the caller's unread notifications
// @Tags     notifications
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/notifications/unread [get]
func (h *NotificationHandler) Unread(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.Unread(r.Context(), apimw.GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list unread notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  notifications,
		"count": len(notifications),
	})
}

// Stats handles GET /api/v1/notifications/stats
//
// @Summary  Per-user notification counts
// @Tags     notifications
// @Produce  json
// @Success  200  {object}  domain.Stats
// @Router   /api/v1/notifications/stats [get]
func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), apimw.GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Create handles POST /api/v1/notifications
//
// @Summary  Create a notification directly, bypassing the event pipeline
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      domain.CreateNotificationRequest  true  "Notification payload"
// @Success  201   {object}  domain.Notification
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications [post]
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create notification failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("created_by", apimw.GetUsername(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

// MarkRead handles PATCH /api/v1/notifications/{id}/read
//
// @Summary  Mark one of the caller's notifications as read
// @Tags     notifications
// @Param    id   path      string  true  "Notification UUID"
// @Success  200  {object}  map[string]string
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.MarkRead(r.Context(), id, apimw.GetUserID(r.Context())); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllRead handles PATCH /api/v1/notifications/read-all
//
// @Summary  Mark all of the caller's unread notifications as read
// @Tags     notifications
// @Produce  json
// @Success  200  {object}  map[string]int64
// @Router   /api/v1/notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.MarkAllRead(r.Context(), apimw.GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Delete handles DELETE /api/v1/notifications/{id}
//
// @Summary  Delete one of the caller's notifications
// @Tags     notifications
// @Param    id   path      string  true  "Notification UUID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id} [delete]
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id, apimw.GetUserID(r.Context())); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if st := domain.Status(q.Get("status")); st.IsValid() {
		filter.Status = &st
	}
	return filter
}
