package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
)

const sourceName = "taskhub"

// Publisher writes domain events to the topic exchanges.
//
// Publishing is best-effort, fire-and-forget: callers on a request path log
// the returned error and move on. A successful API response therefore does
// not guarantee the downstream notification is ever created: there is no
// outbox, no publish retry, no dead-letter. This weak guarantee is
// deliberate and documented; do not silently upgrade it.
type Publisher struct {
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewPublisher(conn *amqp.Connection, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopics(ch); err != nil {
		ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch, logger: logger}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Publish serializes payload and sends it to the exchange for the event's
// topic with the event type as routing key. The event type also travels in
// the headers; consumers fall back to the body's "type" field when absent.
func (p *Publisher) Publish(kind domain.EventKind, payload any) error {
	topic := kind.Topic()
	if topic == "" {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	now := time.Now().UTC()
	err = p.ch.Publish(
		topic,        // exchange
		string(kind), // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Timestamp:    now,
			Headers: amqp.Table{
				"eventType": string(kind),
				"timestamp": now.Format(time.RFC3339),
				"source":    sourceName,
			},
			Body: body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}

	p.logger.Info("event published",
		zap.String("topic", topic),
		zap.String("event_type", string(kind)),
	)
	return nil
}

// ---- typed helpers used by the upstream services and the producer CLI ----

func (p *Publisher) PublishTaskCreated(e domain.TaskCreatedEvent) error {
	return p.publishTyped(domain.KindTaskCreated, e)
}

func (p *Publisher) PublishTaskUpdated(e domain.TaskUpdatedEvent) error {
	return p.publishTyped(domain.KindTaskUpdated, e)
}

func (p *Publisher) PublishTaskAssigned(e domain.TaskAssignedEvent) error {
	return p.publishTyped(domain.KindTaskAssigned, e)
}

func (p *Publisher) PublishTaskStatusChanged(e domain.TaskStatusChangedEvent) error {
	return p.publishTyped(domain.KindTaskStatusChanged, e)
}

func (p *Publisher) PublishTaskDeleted(e domain.TaskDeletedEvent) error {
	return p.publishTyped(domain.KindTaskDeleted, e)
}

func (p *Publisher) PublishCommentAdded(e domain.CommentAddedEvent) error {
	return p.publishTyped(domain.KindCommentAdded, e)
}

func (p *Publisher) PublishUserRegistered(e domain.UserEvent) error {
	return p.publishTyped(domain.KindUserRegistered, e)
}

func (p *Publisher) publishTyped(kind domain.EventKind, payload any) error {
	body, err := withType(payload, kind)
	if err != nil {
		return err
	}
	return p.Publish(kind, body)
}

// withType embeds the event type in the body alongside the payload fields,
// mirroring the header, so consumers without header access still dispatch.
func withType(payload any, kind domain.EventKind) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("flatten %s payload: %w", kind, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	m["type"] = string(kind)
	return m, nil
}
