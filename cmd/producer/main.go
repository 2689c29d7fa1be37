package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/broker"
	"github.com/taskhub/notifier/internal/config"
	"github.com/taskhub/notifier/internal/domain"
)

// Small smoke-testing CLI: publishes one sample event of the requested kind
// so the full pipeline (broker, consumer, fan-out, gateway) can be exercised
// without running the upstream task or auth services.
//
//	go run ./cmd/producer -event task.created -actor u1 -users u2,u3
func main() {
	var (
		event = flag.String("event", "task.created", "event kind to publish")
		actor = flag.String("actor", "user-1", "acting user ID")
		users = flag.String("users", "user-2,user-3", "comma-separated recipient user IDs")
		task  = flag.String("task", "", "task ID (random when empty)")
		title = flag.String("title", "Ship the release notes", "task title")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BrokerRequestWait)
	defer cancel()

	conn, err := broker.Dial(ctx, cfg.BrokerURL, cfg.BrokerConnectRetry, cfg.BrokerConnectWait, logger)
	if err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer conn.Close()

	pub, err := broker.NewPublisher(conn, logger)
	if err != nil {
		logger.Fatal("failed to open publisher channel", zap.Error(err))
	}
	defer pub.Close()

	taskID := *task
	if taskID == "" {
		taskID = uuid.New().String()
	}
	recipients := strings.Split(*users, ",")
	now := time.Now().UTC()
	actorName := "producer-cli"

	kind := domain.ParseEventKind(*event)
	switch kind {
	case domain.KindTaskCreated:
		err = pub.PublishTaskCreated(domain.TaskCreatedEvent{
			TaskID: taskID, Title: *title,
			AssignedUsers: recipients,
			CreatedBy:     *actor, CreatedByUsername: actorName,
			CreatedAt: now,
		})
	case domain.KindTaskUpdated:
		err = pub.PublishTaskUpdated(domain.TaskUpdatedEvent{
			TaskID: taskID, Title: *title,
			AssignedUsers: recipients,
			UpdatedBy:     *actor, UpdatedByUsername: actorName,
			Changes:   map[string]domain.FieldChange{"title": {From: "old title", To: *title}},
			UpdatedAt: now,
		})
	case domain.KindTaskAssigned:
		err = pub.PublishTaskAssigned(domain.TaskAssignedEvent{
			TaskID: taskID, Title: *title,
			AssignedTo: recipients[0],
			AssignedBy: *actor, AssignedByUsername: actorName,
			AssignedAt: now,
		})
	case domain.KindTaskStatusChanged:
		err = pub.PublishTaskStatusChanged(domain.TaskStatusChangedEvent{
			TaskUpdatedEvent: domain.TaskUpdatedEvent{
				TaskID: taskID, Title: *title,
				AssignedUsers: recipients,
				UpdatedBy:     *actor, UpdatedByUsername: actorName,
				Changes:   map[string]domain.FieldChange{"status": {From: "todo", To: "in_progress"}},
				UpdatedAt: now,
			},
		})
	case domain.KindCommentAdded:
		err = pub.PublishCommentAdded(domain.CommentAddedEvent{
			TaskID: taskID, TaskTitle: *title,
			CommentID: uuid.New().String(),
			Content:   "Looks good, just one nit on the second paragraph.",
			AuthorID:  *actor, AuthorUsername: actorName,
			ParticipantUsers: recipients,
			CreatedAt:        now,
		})
	case domain.KindUserRegistered:
		err = pub.PublishUserRegistered(domain.NewUserEvent(domain.KindUserRegistered, *actor, actorName, "", now))
	default:
		fmt.Fprintf(os.Stderr, "unsupported event kind %q\n", *event)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal("publish failed", zap.Error(err))
	}
	logger.Info("event published",
		zap.String("event", string(kind)), zap.String("task_id", taskID))
}
