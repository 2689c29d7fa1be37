package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskhub/notifier/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr      error
	CreateBatchErr error
	GetByIDErr     error
	MarkSentErr    error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MockNotificationRepository) CreateBatch(_ context.Context, notifications []*domain.Notification) error {
	if m.CreateBatchErr != nil {
		return m.CreateBatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range notifications {
		clone := *n
		m.notifications[n.ID] = &clone
	}
	return nil
}

func (m *MockNotificationRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MockNotificationRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.Notification, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Notification
	for _, n := range m.notifications {
		if n.UserID != f.UserID {
			continue
		}
		if f.Status != nil && n.Status != *f.Status {
			continue
		}
		clone := *n
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockNotificationRepository) ListUnread(_ context.Context, userID string) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var unread []*domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (n.Status == domain.StatusPending || n.Status == domain.StatusSent) {
			clone := *n
			unread = append(unread, &clone)
		}
	}
	sort.Slice(unread, func(i, j int) bool {
		return unread[i].CreatedAt.After(unread[j].CreatedAt)
	})
	return unread, nil
}

func (m *MockNotificationRepository) MarkSent(_ context.Context, id string, sentAt time.Time) (bool, error) {
	if m.MarkSentErr != nil {
		return false, m.MarkSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || !n.Status.CanTransition(domain.StatusSent) {
		return false, nil
	}
	n.Status = domain.StatusSent
	n.SentAt = &sentAt
	n.UpdatedAt = sentAt
	return true, nil
}

func (m *MockNotificationRepository) MarkRead(_ context.Context, id, userID string, readAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	if !n.Status.CanTransition(domain.StatusRead) {
		return false, nil
	}
	n.Status = domain.StatusRead
	n.ReadAt = &readAt
	n.UpdatedAt = readAt
	return true, nil
}

func (m *MockNotificationRepository) MarkAllRead(_ context.Context, userID string, readAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if n.Status.CanTransition(domain.StatusRead) {
			n.Status = domain.StatusRead
			n.ReadAt = &readAt
			n.UpdatedAt = readAt
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) Delete(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(m.notifications, id)
	return true, nil
}

func (m *MockNotificationRepository) Stats(_ context.Context, userID string) (*domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s domain.Stats
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		s.Total++
		switch n.Status {
		case domain.StatusPending, domain.StatusSent:
			s.Unread++
		case domain.StatusRead:
			s.Read++
		}
	}
	return &s, nil
}

// Count returns the number of stored rows, for test assertions.
func (m *MockNotificationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}

// All returns a snapshot of every stored row, for test assertions.
func (m *MockNotificationRepository) All() []*domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		clone := *n
		out = append(out, &clone)
	}
	return out
}

var _ NotificationRepository = (*MockNotificationRepository)(nil)
