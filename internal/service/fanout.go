package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
	"github.com/taskhub/notifier/internal/gateway"
	"github.com/taskhub/notifier/internal/queue"
)

// commentPreviewLimit caps the comment excerpt embedded in a notification
// message; longer bodies are cut at this many runes and suffixed with "...".
const commentPreviewLimit = 100

// NotifyTaskCreated fans a task-created notification out to every assigned
// user except the actor. Task assignment reuses this method with a
// single-element participant list.
func (s *NotificationService) NotifyTaskCreated(
	ctx context.Context,
	taskID, title string,
	participants []string,
	actorID, actorUsername string,
) error {
	return s.fanOut(ctx, fanOutParams{
		Type:          domain.TypeTaskCreated,
		Title:         "New task assigned",
		Message:       fmt.Sprintf("%s created the task %q and assigned it to you", actorUsername, title),
		TaskID:        taskID,
		TaskTitle:     title,
		Participants:  participants,
		ActorID:       actorID,
		ActorUsername: actorUsername,
		Data:          map[string]any{"taskId": taskID, "title": title, "assignedUsers": participants},
	})
}

// NotifyTaskUpdated fans a task-updated notification out to every participant
// except the actor. Status changes arrive here with a single "status" entry
// under changes.
func (s *NotificationService) NotifyTaskUpdated(
	ctx context.Context,
	taskID, title string,
	participants []string,
	actorID, actorUsername string,
	changes map[string]domain.FieldChange,
) error {
	data := map[string]any{"taskId": taskID, "title": title}
	if len(changes) > 0 {
		data["changes"] = changes
	}
	return s.fanOut(ctx, fanOutParams{
		Type:          domain.TypeTaskUpdated,
		Title:         "Task updated",
		Message:       fmt.Sprintf("%s updated the task %q", actorUsername, title),
		TaskID:        taskID,
		TaskTitle:     title,
		Participants:  participants,
		ActorID:       actorID,
		ActorUsername: actorUsername,
		Data:          data,
	})
}

// NotifyCommentAdded fans a comment notification out to the task's
// participants except the author. The comment body is trimmed to
// commentPreviewLimit runes in the message; the full body is kept in data.
func (s *NotificationService) NotifyCommentAdded(
	ctx context.Context,
	taskID, taskTitle string,
	participants []string,
	authorID, authorUsername, content string,
) error {
	return s.fanOut(ctx, fanOutParams{
		Type:          domain.TypeCommentAdded,
		Title:         "New comment",
		Message:       fmt.Sprintf("%s commented on the task %q: %q", authorUsername, taskTitle, truncate(content, commentPreviewLimit)),
		TaskID:        taskID,
		TaskTitle:     taskTitle,
		Participants:  participants,
		ActorID:       authorID,
		ActorUsername: authorUsername,
		Data:          map[string]any{"taskId": taskID, "taskTitle": taskTitle, "commentContent": content},
	})
}

type fanOutParams struct {
	Type          domain.NotificationType
	Title         string
	Message       string
	TaskID        string
	TaskTitle     string
	Participants  []string
	ActorID       string
	ActorUsername string
	Data          map[string]any
}

// fanOut builds one row per participant excluding the actor, persists them
// in a single batch, and enqueues each for live delivery. An empty set
// after exclusion is a no-op: no rows, no delivery.
func (s *NotificationService) fanOut(ctx context.Context, p fanOutParams) error {
	recipients := excludeActor(p.Participants, p.ActorID)
	if len(recipients) == 0 {
		return nil
	}

	now := time.Now().UTC()
	notifications := make([]*domain.Notification, len(recipients))
	for i, userID := range recipients {
		taskID, taskTitle := p.TaskID, p.TaskTitle
		actorID, actorUsername := p.ActorID, p.ActorUsername
		notifications[i] = &domain.Notification{
			ID:            uuid.New().String(),
			UserID:        userID,
			Type:          p.Type,
			Title:         p.Title,
			Message:       p.Message,
			Data:          p.Data,
			Status:        domain.StatusPending,
			TaskID:        &taskID,
			TaskTitle:     &taskTitle,
			ActorID:       &actorID,
			ActorUsername: &actorUsername,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return fmt.Errorf("persist fan-out: %w", err)
	}
	s.onCreated(len(notifications))

	s.logger.Info("fan-out persisted",
		zap.String("type", string(p.Type)),
		zap.String("task_id", p.TaskID),
		zap.Int("recipients", len(notifications)),
	)

	for _, n := range notifications {
		s.enqueueUser(n)
	}
	return nil
}

// notifyTaskRoom enqueues an ephemeral frame for everyone currently watching
// the task's room, excluding the actor. Nothing is persisted on this path.
func (s *NotificationService) notifyTaskRoom(taskID, actorID string, payload any) {
	frame := gateway.EncodeFrame(gateway.EventTaskNotification, payload)
	err := s.q.Enqueue(queue.Item{
		Kind:          queue.KindTaskRoom,
		TaskID:        taskID,
		ExcludeUserID: actorID,
		Payload:       frame,
	})
	if err != nil {
		s.logger.Warn("delivery queue full: task room frame dropped",
			zap.String("task_id", taskID), zap.Error(err))
	}
}

// notifyBroadcast enqueues an ephemeral frame for every connected client.
func (s *NotificationService) notifyBroadcast(payload any) {
	frame := gateway.EncodeFrame(gateway.EventBroadcast, payload)
	if err := s.q.Enqueue(queue.Item{Kind: queue.KindBroadcast, Payload: frame}); err != nil {
		s.logger.Warn("delivery queue full: broadcast frame dropped", zap.Error(err))
	}
}

func excludeActor(participants []string, actorID string) []string {
	out := make([]string, 0, len(participants))
	for _, id := range participants {
		if id == "" || id == actorID {
			continue
		}
		out = append(out, id)
	}
	return out
}

// truncate cuts s to at most limit runes, appending "..." when it was cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
