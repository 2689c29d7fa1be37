package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/dedup"
	"github.com/taskhub/notifier/internal/domain"
)

type recordingHandler struct {
	events []domain.Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, ev domain.Event) error {
	h.events = append(h.events, ev)
	return h.err
}

// seenGuard reports every id as already seen.
type seenGuard struct{}

func (seenGuard) Seen(context.Context, string) (bool, error) { return true, nil }

// brokenGuard simulates an unavailable dedup backend.
type brokenGuard struct{}

func (brokenGuard) Seen(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newTestConsumer(h Handler, guard dedup.Guard, hooks Hooks) *Consumer {
	return NewConsumer(nil, "test-queue", 1, h, guard, hooks, zap.NewNop())
}

func delivery(eventType string, body []byte) amqp.Delivery {
	return amqp.Delivery{
		MessageId: "m1",
		Headers:   amqp.Table{"eventType": eventType},
		Body:      body,
	}
}

func TestConsumer_Process_DispatchesDecodedEvent(t *testing.T) {
	h := &recordingHandler{}
	var consumed []domain.EventKind
	c := newTestConsumer(h, nil, Hooks{
		OnConsumed: func(k domain.EventKind) { consumed = append(consumed, k) },
	})

	c.process(context.Background(), delivery("task.created",
		[]byte(`{"taskId":"t1","title":"Ship it","assignedUsers":["u1"],"createdBy":"u2"}`)))

	if len(h.events) != 1 {
		t.Fatalf("expected 1 handled event, got %d", len(h.events))
	}
	if _, ok := h.events[0].(domain.TaskCreatedEvent); !ok {
		t.Fatalf("expected TaskCreatedEvent, got %T", h.events[0])
	}
	if len(consumed) != 1 || consumed[0] != domain.KindTaskCreated {
		t.Fatalf("expected consumed hook for task.created, got %v", consumed)
	}
}

func TestConsumer_Process_FallsBackToBodyType(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(h, nil, Hooks{})

	// No eventType header; the body carries its own type.
	c.process(context.Background(), amqp.Delivery{
		Body: []byte(`{"type":"comment.added","taskId":"t1","content":"hi","authorId":"u1"}`),
	})

	if len(h.events) != 1 {
		t.Fatalf("expected 1 handled event, got %d", len(h.events))
	}
	if _, ok := h.events[0].(domain.CommentAddedEvent); !ok {
		t.Fatalf("expected CommentAddedEvent, got %T", h.events[0])
	}
}

func TestConsumer_Process_MalformedDropped(t *testing.T) {
	h := &recordingHandler{}
	var dropped []string
	c := newTestConsumer(h, nil, Hooks{
		OnDropped: func(reason string) { dropped = append(dropped, reason) },
	})

	c.process(context.Background(), delivery("task.created", []byte(`{broken`)))

	if len(h.events) != 0 {
		t.Fatal("malformed message must not reach the handler")
	}
	if len(dropped) != 1 || dropped[0] != "malformed" {
		t.Fatalf("expected a malformed drop, got %v", dropped)
	}
}

func TestConsumer_Process_UnknownTypeDropped(t *testing.T) {
	h := &recordingHandler{}
	var dropped []string
	c := newTestConsumer(h, nil, Hooks{
		OnDropped: func(reason string) { dropped = append(dropped, reason) },
	})

	c.process(context.Background(), delivery("task.exploded", []byte(`{}`)))

	if len(h.events) != 0 {
		t.Fatal("unknown event must not reach the handler")
	}
	if len(dropped) != 1 || dropped[0] != "unknown_type" {
		t.Fatalf("expected an unknown_type drop, got %v", dropped)
	}
}

// Handler failures are swallowed: the message counts as dropped but
// processing continues and nothing is redelivered.
func TestConsumer_Process_HandlerErrorSwallowed(t *testing.T) {
	h := &recordingHandler{err: errors.New("fan-out failed")}
	var dropped []string
	c := newTestConsumer(h, nil, Hooks{
		OnDropped: func(reason string) { dropped = append(dropped, reason) },
	})

	c.process(context.Background(), delivery("task.created",
		[]byte(`{"taskId":"t1","title":"x","assignedUsers":["u1"]}`)))

	if len(dropped) != 1 || dropped[0] != "handler_error" {
		t.Fatalf("expected a handler_error drop, got %v", dropped)
	}
}

func TestConsumer_Process_DuplicateSkipped(t *testing.T) {
	h := &recordingHandler{}
	var dropped []string
	c := newTestConsumer(h, seenGuard{}, Hooks{
		OnDropped: func(reason string) { dropped = append(dropped, reason) },
	})

	c.process(context.Background(), delivery("task.created", []byte(`{"taskId":"t1"}`)))

	if len(h.events) != 0 {
		t.Fatal("duplicate delivery must not reach the handler")
	}
	if len(dropped) != 1 || dropped[0] != "duplicate" {
		t.Fatalf("expected a duplicate drop, got %v", dropped)
	}
}

// A failing guard must not block processing: better a duplicate notification
// than a lost one.
func TestConsumer_Process_GuardErrorProceeds(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(h, brokenGuard{}, Hooks{})

	c.process(context.Background(), delivery("task.created",
		[]byte(`{"taskId":"t1","title":"x","assignedUsers":["u1"]}`)))

	if len(h.events) != 1 {
		t.Fatalf("expected the event handled despite guard failure, got %d", len(h.events))
	}
}

func TestHeaderEventType(t *testing.T) {
	if got := headerEventType(nil); got != "" {
		t.Fatalf("expected empty for nil headers, got %q", got)
	}
	if got := headerEventType(amqp.Table{"eventType": "task.created"}); got != "task.created" {
		t.Fatalf("expected task.created, got %q", got)
	}
	if got := headerEventType(amqp.Table{"eventType": 42}); got != "" {
		t.Fatalf("expected empty for non-string header, got %q", got)
	}
}
