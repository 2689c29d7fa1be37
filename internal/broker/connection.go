// Package broker carries domain events over RabbitMQ. Each logical topic
// (task-events, comment-events, user-events) is a durable topic exchange;
// the event type string doubles as the routing key.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
)

var topics = []string{
	domain.TopicTaskEvents,
	domain.TopicCommentEvents,
	domain.TopicUserEvents,
}

// Dial connects to the broker with a bounded retry budget. Attempts are
// spaced by wait with doubling backoff. Once connected, no reconnect logic
// runs: a dropped connection surfaces through the consume loop and ends the
// process, leaving restart policy to the supervisor.
func Dial(ctx context.Context, url string, attempts int, wait time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	backoff := wait
	for i := 0; i < attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn("broker connect failed",
			zap.Int("attempt", i+1),
			zap.Int("budget", attempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("broker unreachable after %d attempts: %w", attempts, lastErr)
}

// declareTopics declares the three durable topic exchanges. Idempotent.
func declareTopics(ch *amqp.Channel) error {
	for _, topic := range topics {
		if err := ch.ExchangeDeclare(
			topic,
			"topic",
			true,  // durable
			false, // autoDelete
			false, // internal
			false, // noWait
			nil,
		); err != nil {
			return fmt.Errorf("declare exchange %s: %w", topic, err)
		}
	}
	return nil
}
