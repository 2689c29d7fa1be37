package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/taskhub/notifier/internal/queue"
)

func userItem(id string) queue.Item {
	return queue.Item{Kind: queue.KindUser, NotificationID: id, UserID: "u1"}
}

func TestDeliveryQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	if err := q.Enqueue(userItem("1")); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected item, got nothing")
	}
	if got.NotificationID != "1" {
		t.Fatalf("expected id=1, got %s", got.NotificationID)
	}
}

// TestDeliveryQueue_UserBeforeRoom verifies that a per-user item inserted
// after a task-room item is still served first: persisted notifications take
// priority over ephemeral room chatter.
func TestDeliveryQueue_UserBeforeRoom(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	_ = q.Enqueue(queue.Item{Kind: queue.KindTaskRoom, TaskID: "t1", Payload: []byte("{}")})
	_ = q.Enqueue(userItem("first"))

	got, _ := q.Dequeue(ctx)
	if got.Kind != queue.KindUser {
		t.Fatalf("expected user item dequeued first, got kind %q", got.Kind)
	}
}

// TestDeliveryQueue_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestDeliveryQueue_ContextCancellation(t *testing.T) {
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestDeliveryQueue_UnknownKind(t *testing.T) {
	q := queue.New()
	if err := q.Enqueue(queue.Item{Kind: "pigeon"}); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

// TestDeliveryQueue_ConcurrentEnqueueDequeue verifies there are no races
// when multiple goroutines enqueue and dequeue simultaneously.
func TestDeliveryQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	q := queue.New()

	const producers = 5
	const itemsPerProducer = 100
	const total = producers * itemsPerProducer

	received := make(chan struct{}, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumerDone sync.WaitGroup
	consumerDone.Add(1)
	go func() {
		defer consumerDone.Done()
		for {
			_, ok := q.Dequeue(ctx)
			if !ok {
				return
			}
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < itemsPerProducer; j++ {
				_ = q.Enqueue(userItem("id"))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d items", i, total)
		}
	}
	cancel()
	consumerDone.Wait()
}

func TestDeliveryQueue_Depths(t *testing.T) {
	q := queue.New()

	_ = q.Enqueue(userItem("a"))
	_ = q.Enqueue(userItem("b"))
	_ = q.Enqueue(queue.Item{Kind: queue.KindTaskRoom, TaskID: "t1"})
	_ = q.Enqueue(queue.Item{Kind: queue.KindBroadcast, Payload: []byte("{}")})

	user, taskRoom, broadcast := q.Depths()
	if user != 2 || taskRoom != 1 || broadcast != 1 {
		t.Fatalf("unexpected depths: user=%d task_room=%d broadcast=%d", user, taskRoom, broadcast)
	}
}
