package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/api"
	"github.com/taskhub/notifier/internal/auth"
	"github.com/taskhub/notifier/internal/broker"
	"github.com/taskhub/notifier/internal/config"
	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/gateway"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/registry"
	"github.com/taskhub/notifier/internal/repository"
	"github.com/taskhub/notifier/internal/service"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) (http.Handler, *repository.MockNotificationRepository) {
	t.Helper()

	logger := zap.NewNop()
	cfg := &config.Config{JWTSecret: testSecret}
	repo := repository.NewMockNotificationRepository()
	q := queue.New()
	svc := service.NewNotificationService(repo, q, logger, nil)
	connReg := registry.New()
	hub := gateway.NewHub(connReg, svc, logger, nil)
	gw := gateway.New(hub, testSecret, gateway.Options{}, logger)
	consumer := broker.NewConsumer(nil, "test", 1, svc, nil, broker.Hooks{}, logger)

	return api.NewRouter(cfg, svc, gw, q, consumer, connReg, prometheus.NewRegistry(), logger), repo
}

func authedRequest(t *testing.T, method, path, userID string, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	token, err := auth.Generate(testSecret, userID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
	if body["consumer"] != "disconnected" {
		t.Fatalf("expected consumer=disconnected before Run, got %q", body["consumer"])
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodGet, "/api/v1/notifications/unread"},
		{http.MethodPost, "/api/v1/notifications"},
		{http.MethodPatch, "/api/v1/notifications/read-all"},
		{http.MethodGet, "/api/v1/pipeline/stats"},
	}
	for _, tc := range paths {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRouter_CreateAndListFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	// The creating caller can target any user; listing is scoped to the token.
	payload := `{"user_id":"u1","type":"task_created","title":"New task assigned","message":"alice assigned you a task"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/v1/notifications", "creator", payload))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad create response: %v", err)
	}

	// u1 sees it in the list and in unread.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/v1/notifications", "u1", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Data  []domain.Notification `json:"data"`
		Total int                   `json:"total"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Data) != 1 {
		t.Fatalf("expected 1 notification for u1, got %+v", list)
	}

	// Another user sees nothing.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/v1/notifications", "u2", ""))
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Fatalf("expected no notifications for u2, got %+v", list)
	}

	// Mark read, then stats reflect it.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/notifications/%s/read", created.ID), "u1", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on mark read, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/v1/notifications/stats", "u1", ""))
	var stats domain.Stats
	_ = json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.Total != 1 || stats.Read != 1 || stats.Unread != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRouter_MarkRead_OtherUsersNotification(t *testing.T) {
	r, repo := newTestRouter(t)

	payload := `{"user_id":"u1","type":"task_created","title":"t","message":"m"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/v1/notifications", "creator", payload))

	id := repo.All()[0].ID
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/notifications/%s/read", id), "intruder", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for someone else's notification, got %d", rec.Code)
	}
}

func TestRouter_Create_Invalid(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name    string
		payload string
		code    int
	}{
		{"bad json", `{oops`, http.StatusBadRequest},
		{"bad type", `{"user_id":"u1","type":"pigeon","title":"t","message":"m"}`, http.StatusUnprocessableEntity},
		{"missing user", `{"type":"task_created","title":"t","message":"m"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/v1/notifications", "creator", tc.payload))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_Bulk(t *testing.T) {
	r, repo := newTestRouter(t)

	payload := `{"notifications":[
		{"user_id":"u1","type":"task_created","title":"t","message":"m"},
		{"user_id":"u2","type":"comment_added","title":"t","message":"m"}
	]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/v1/notifications/bulk", "creator", payload))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.Count() != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", repo.Count())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/v1/notifications/bulk", "creator", `{"notifications":[]}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty bulk, got %d", rec.Code)
	}
}

func TestRouter_PipelineStats(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/v1/pipeline/stats", "u1", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		ConsumerState string         `json:"consumer_state"`
		OnlineUsers   int            `json:"online_users"`
		QueueDepth    map[string]int `json:"queue_depth"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad stats body: %v", err)
	}
	if body.ConsumerState != "disconnected" {
		t.Fatalf("expected consumer_state=disconnected, got %q", body.ConsumerState)
	}
	if body.QueueDepth["total"] != 0 {
		t.Fatalf("expected empty queue, got %v", body.QueueDepth)
	}
}

func TestRouter_Metrics(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from the scrape endpoint, got %d", rec.Code)
	}
}

func TestRouter_DeleteFlow(t *testing.T) {
	r, repo := newTestRouter(t)

	payload := `{"user_id":"u1","type":"task_created","title":"t","message":"m"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/v1/notifications", "creator", payload))
	id := repo.All()[0].ID

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/api/v1/notifications/"+id, "u1", ""))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if repo.Count() != 0 {
		t.Fatalf("expected row deleted, %d remain", repo.Count())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/api/v1/notifications/"+id, "u1", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}
