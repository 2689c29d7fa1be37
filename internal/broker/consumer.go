package broker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/dedup"
	"github.com/taskhub/notifier/internal/domain"
)

// Handler processes one decoded event. Implementations must be safe for
// concurrent use; the fan-out service is the production implementation.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// State is the consumer lifecycle: Disconnected -> Connecting -> Subscribed -> Consuming.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateConsuming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateConsuming:
		return "consuming"
	}
	return "disconnected"
}

// Hooks carries the metric callbacks injected by main.
type Hooks struct {
	OnConsumed func(kind domain.EventKind)
	OnDropped  func(reason string)
}

// Consumer subscribes one queue to all three topic exchanges and feeds every
// message through the handler.
//
// Every message is acked exactly once, whatever happens to it: malformed
// bodies are logged and dropped, handler errors are logged and swallowed.
// Combined with the broker's at-least-once transport this yields at-most-once
// effective delivery: a consumer-side failure never causes redelivery.
type Consumer struct {
	conn     *amqp.Connection
	queue    string
	prefetch int
	handler  Handler
	guard    dedup.Guard
	hooks    Hooks
	logger   *zap.Logger
	state    atomic.Int32
}

func NewConsumer(
	conn *amqp.Connection,
	queue string,
	prefetch int,
	handler Handler,
	guard dedup.Guard,
	hooks Hooks,
	logger *zap.Logger,
) *Consumer {
	if prefetch <= 0 {
		prefetch = 50
	}
	if hooks.OnConsumed == nil {
		hooks.OnConsumed = func(domain.EventKind) {}
	}
	if hooks.OnDropped == nil {
		hooks.OnDropped = func(string) {}
	}
	if guard == nil {
		guard = dedup.NoopGuard{}
	}
	return &Consumer{
		conn:     conn,
		queue:    queue,
		prefetch: prefetch,
		handler:  handler,
		guard:    guard,
		hooks:    hooks,
		logger:   logger,
	}
}

// State returns the current lifecycle state, for the health endpoint.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Run blocks consuming messages until ctx is cancelled or the broker
// channel closes. One bad message never stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	ch, err := c.conn.Channel()
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := c.setup(ch); err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}
	c.state.Store(int32(StateSubscribed))

	deliveries, err := ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // autoAck: we ack manually, once per message
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("start consume: %w", err)
	}

	c.state.Store(int32(StateConsuming))
	c.logger.Info("consumer started",
		zap.String("queue", c.queue),
		zap.Strings("topics", topics),
	)

	for {
		select {
		case <-ctx.Done():
			c.state.Store(int32(StateDisconnected))
			c.logger.Info("consumer stopping")
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				c.state.Store(int32(StateDisconnected))
				return fmt.Errorf("delivery channel closed")
			}
			c.process(ctx, msg)
			// Ack unconditionally: processing failures are swallowed by
			// design, never redelivered.
			if err := msg.Ack(false); err != nil {
				c.logger.Error("ack failed", zap.Error(err))
			}
		}
	}
}

func (c *Consumer) setup(ch *amqp.Channel) error {
	if err := declareTopics(ch); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	// One binding per topic, wildcard routing key: this service wants every
	// event type on every topic.
	for _, topic := range topics {
		if err := ch.QueueBind(c.queue, "#", topic, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", topic, err)
		}
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	if msg.MessageId != "" {
		seen, err := c.guard.Seen(ctx, msg.MessageId)
		if err != nil {
			// Guard unavailable: fall through and process. Better an
			// occasional duplicate notification than none at all.
			c.logger.Warn("dedup guard error", zap.Error(err))
		} else if seen {
			c.logger.Debug("duplicate delivery skipped", zap.String("message_id", msg.MessageId))
			c.hooks.OnDropped("duplicate")
			return
		}
	}

	eventType := headerEventType(msg.Headers)
	ev, err := domain.DecodeEvent(eventType, msg.Body)
	if err != nil {
		c.logger.Warn("malformed message dropped",
			zap.String("routing_key", msg.RoutingKey),
			zap.Error(err),
		)
		c.hooks.OnDropped("malformed")
		return
	}

	if unk, ok := ev.(domain.UnknownEvent); ok {
		c.logger.Warn("unknown event type ignored", zap.String("event_type", unk.Type))
		c.hooks.OnDropped("unknown_type")
		return
	}

	if err := c.handler.Handle(ctx, ev); err != nil {
		// Per-message catch: the message is still considered processed from
		// the broker's perspective.
		c.logger.Error("event handler failed",
			zap.String("event_type", string(ev.Kind())),
			zap.Error(err),
		)
		c.hooks.OnDropped("handler_error")
		return
	}

	c.hooks.OnConsumed(ev.Kind())
}

func headerEventType(headers amqp.Table) string {
	if headers == nil {
		return ""
	}
	if v, ok := headers["eventType"].(string); ok {
		return v
	}
	return ""
}
