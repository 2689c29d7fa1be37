package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/domain"
)

// taskRoomUpdate is the ephemeral payload pushed to task-room watchers.
type taskRoomUpdate struct {
	TaskID        string                        `json:"taskId"`
	TaskTitle     string                        `json:"taskTitle"`
	Type          domain.NotificationType       `json:"type"`
	ActorID       string                        `json:"actorId"`
	ActorUsername string                        `json:"actorUsername"`
	Changes       map[string]domain.FieldChange `json:"changes,omitempty"`
}

// Handle dispatches one decoded broker event. The switch is total over the
// closed event union: every kind has an explicit arm, and the kinds that
// deliberately produce no notifications say so instead of falling through a
// silent default.
func (s *NotificationService) Handle(ctx context.Context, ev domain.Event) error {
	switch e := ev.(type) {
	case domain.TaskCreatedEvent:
		s.notifyTaskRoom(e.TaskID, e.CreatedBy, taskRoomUpdate{
			TaskID: e.TaskID, TaskTitle: e.Title, Type: domain.TypeTaskCreated,
			ActorID: e.CreatedBy, ActorUsername: e.CreatedByUsername,
		})
		return s.NotifyTaskCreated(ctx, e.TaskID, e.Title, e.AssignedUsers, e.CreatedBy, e.CreatedByUsername)

	case domain.TaskUpdatedEvent:
		s.notifyTaskRoom(e.TaskID, e.UpdatedBy, taskRoomUpdate{
			TaskID: e.TaskID, TaskTitle: e.Title, Type: domain.TypeTaskUpdated,
			ActorID: e.UpdatedBy, ActorUsername: e.UpdatedByUsername, Changes: e.Changes,
		})
		return s.NotifyTaskUpdated(ctx, e.TaskID, e.Title, e.AssignedUsers, e.UpdatedBy, e.UpdatedByUsername, e.Changes)

	case domain.TaskAssignedEvent:
		// Assignment reuses the created template with a one-element list.
		return s.NotifyTaskCreated(ctx, e.TaskID, e.Title, []string{e.AssignedTo}, e.AssignedBy, e.AssignedByUsername)

	case domain.TaskStatusChangedEvent:
		// Only fan out when the event actually carries a status change.
		change, ok := e.Changes["status"]
		if !ok {
			s.logger.Debug("status-changed event without status change", zap.String("task_id", e.TaskID))
			return nil
		}
		changes := map[string]domain.FieldChange{"status": change}
		s.notifyTaskRoom(e.TaskID, e.UpdatedBy, taskRoomUpdate{
			TaskID: e.TaskID, TaskTitle: e.Title, Type: domain.TypeTaskStatusChanged,
			ActorID: e.UpdatedBy, ActorUsername: e.UpdatedByUsername, Changes: changes,
		})
		return s.NotifyTaskUpdated(ctx, e.TaskID, e.Title, e.AssignedUsers, e.UpdatedBy, e.UpdatedByUsername, changes)

	case domain.CommentAddedEvent:
		return s.NotifyCommentAdded(ctx, e.TaskID, e.TaskTitle, e.ParticipantUsers, e.AuthorID, e.AuthorUsername, e.Content)

	case domain.TaskDeletedEvent:
		// Deletions produce no notifications; watchers learn on next fetch.
		s.logger.Debug("task deleted event ignored", zap.String("task_id", e.TaskID))
		return nil

	case domain.CommentUpdatedEvent:
		s.logger.Debug("comment updated event ignored", zap.String("comment_id", e.CommentID))
		return nil

	case domain.CommentDeletedEvent:
		s.logger.Debug("comment deleted event ignored", zap.String("comment_id", e.CommentID))
		return nil

	case domain.UserAssignedEvent:
		s.logger.Debug("user assigned to task",
			zap.String("user_id", e.UserID), zap.String("task_id", e.TaskID))
		return nil

	case domain.UserUnassignedEvent:
		s.logger.Debug("user unassigned from task",
			zap.String("user_id", e.UserID), zap.String("task_id", e.TaskID))
		return nil

	case domain.UserEvent:
		if e.Kind() == domain.KindUserRegistered {
			s.notifyBroadcast(map[string]string{
				"message":  fmt.Sprintf("%s joined the workspace", e.Username),
				"userId":   e.UserID,
				"username": e.Username,
			})
		}
		return nil

	case domain.UnknownEvent:
		// The consumer filters these out already; kept for totality.
		s.logger.Warn("unknown event reached dispatch", zap.String("event_type", e.Type))
		return nil
	}

	return fmt.Errorf("%w: %T", domain.ErrUnknownEvent, ev)
}
