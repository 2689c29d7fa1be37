package queue

import (
	"context"
	"fmt"

	"github.com/taskhub/notifier/internal/domain"
)

// DeliveryQueue dispatches items to one of three buffered channels based on kind.
//
// Buffer sizes reflect expected traffic ratios:
//
//	User:      5 000  — one item per persisted notification row, bulk of traffic
//	TaskRoom:  2 000  — one item per task event, fanned out at push time
//	Broadcast:   500  — rare, whole-system announcements
//
// Workers dequeue via the double-select pattern, which guarantees that
// per-user notifications are always served before room or broadcast pushes,
// while still allowing fair competition between the two when user is empty.
type DeliveryQueue struct {
	user      chan Item
	taskRoom  chan Item
	broadcast chan Item
}

func New() *DeliveryQueue {
	return &DeliveryQueue{
		user:      make(chan Item, 5000),
		taskRoom:  make(chan Item, 2000),
		broadcast: make(chan Item, 500),
	}
}

// Enqueue places an item on the channel for its kind.
// It is non-blocking: if the target channel is full, ErrQueueFull is returned
// immediately rather than blocking the consumer loop.
func (q *DeliveryQueue) Enqueue(item Item) error {
	switch item.Kind {
	case KindUser:
		select {
		case q.user <- item:
			return nil
		default:
			return domain.ErrQueueFull
		}
	case KindTaskRoom:
		select {
		case q.taskRoom <- item:
			return nil
		default:
			return domain.ErrQueueFull
		}
	case KindBroadcast:
		select {
		case q.broadcast <- item:
			return nil
		default:
			return domain.ErrQueueFull
		}
	default:
		return fmt.Errorf("unknown delivery kind %q", item.Kind)
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
//
// Priority guarantee — the double-select pattern:
//  1. A non-blocking select checks the user channel first. If an item is
//     waiting there, it is returned immediately regardless of the others.
//  2. Only when user is empty does the goroutine enter a fair blocking select
//     across all three channels plus the done signal. This keeps personal
//     notifications ahead of room chatter without busy-waiting.
//
// Returns (Item{}, false) when ctx is cancelled (graceful shutdown signal).
func (q *DeliveryQueue) Dequeue(ctx context.Context) (Item, bool) {
	// Step 1: drain user items before entering a fair wait.
	select {
	case item := <-q.user:
		return item, true
	default:
	}

	// Step 2: fair competition when user is empty.
	select {
	case item := <-q.user:
		return item, true
	case item := <-q.taskRoom:
		return item, true
	case item := <-q.broadcast:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depths returns the current number of items waiting per kind.
// Used by the stats handler and the queue-depth gauges.
func (q *DeliveryQueue) Depths() (user, taskRoom, broadcast int) {
	return len(q.user), len(q.taskRoom), len(q.broadcast)
}
