package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/registry"
)

// ReadMarker lets connected clients mark a notification read over the socket.
// Implemented by the notification service.
type ReadMarker interface {
	MarkRead(ctx context.Context, notificationID, userID string) error
}

// Hub owns all connected clients, their per-user grouping, and task rooms.
//
// The hub only moves bytes: deciding what to push and recording delivery
// status is the delivery worker's job. Pushes to clients whose send buffer
// is full are dropped; a slow tab never blocks the pipeline.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	registry *registry.ConnectionRegistry
	marker   ReadMarker
	logger   *zap.Logger

	// onOnline is a metrics hook reporting the distinct online user count.
	onOnline func(n int)
}

func NewHub(reg *registry.ConnectionRegistry, marker ReadMarker, logger *zap.Logger, onOnline func(int)) *Hub {
	if onOnline == nil {
		onOnline = func(int) {}
	}
	return &Hub{
		clients:  make(map[*Client]struct{}),
		byUser:   make(map[string]map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		registry: reg,
		marker:   marker,
		logger:   logger,
		onOnline: onOnline,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	set, ok := h.byUser[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.byUser[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.registry.Register(c.userID, c.id)
	h.onOnline(h.registry.OnlineCount())

	h.logger.Info("client connected",
		zap.String("user_id", c.userID),
		zap.String("conn_id", c.id),
	)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	if set, ok := h.byUser[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	for taskID, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, taskID)
		}
	}
	h.mu.Unlock()

	c.closeSend()
	h.registry.Unregister(c.userID, c.id)
	h.onOnline(h.registry.OnlineCount())

	h.logger.Info("client disconnected",
		zap.String("user_id", c.userID),
		zap.String("conn_id", c.id),
	)
}

func (h *Hub) joinRoom(c *Client, taskID string) {
	h.mu.Lock()
	room, ok := h.rooms[taskID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[taskID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leaveRoom(c *Client, taskID string) {
	h.mu.Lock()
	if room, ok := h.rooms[taskID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, taskID)
		}
	}
	h.mu.Unlock()
}

// PushToUser sends payload to every open handle of the user and returns the
// number of handles reached. Zero means the user went offline since the
// caller's IsOnline check; that race is tolerated and the caller treats the
// push as a no-op.
func (h *Hub) PushToUser(userID string, payload []byte) int {
	if payload == nil {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	pushed := 0
	for _, c := range targets {
		if c.trySend(payload) {
			pushed++
		}
	}
	return pushed
}

// PushToTaskRoom sends payload to every client in the task's room, skipping
// all handles of excludeUserID (the actor) when non-empty.
func (h *Hub) PushToTaskRoom(taskID, excludeUserID string, payload []byte) int {
	if payload == nil {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[taskID]))
	for c := range h.rooms[taskID] {
		if excludeUserID != "" && c.userID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	pushed := 0
	for _, c := range targets {
		if c.trySend(payload) {
			pushed++
		}
	}
	return pushed
}

// Broadcast sends payload to every connected client.
func (h *Hub) Broadcast(payload []byte) int {
	if payload == nil {
		return 0
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	pushed := 0
	for _, c := range targets {
		if c.trySend(payload) {
			pushed++
		}
	}
	return pushed
}

// RoomSize returns the number of clients in a task room, for tests and the
// stats snapshot.
func (h *Hub) RoomSize(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[taskID])
}
