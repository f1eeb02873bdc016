package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"socialgraph/internal/model"
	"socialgraph/internal/queue"
)

// NotificationCreator persists a notification and pings the recipient.
// Implemented by service.NotificationService.
type NotificationCreator interface {
	Notify(ctx context.Context, recipientID, senderID int64, notifType string, entityID *int64) error
}

// Handler turns activity events into notifications.
type Handler struct {
	notifier NotificationCreator
	logger   *zap.Logger
}

func NewHandler(notifier NotificationCreator, logger *zap.Logger) *Handler {
	return &Handler{notifier: notifier, logger: logger.Named("activity")}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()

	var notifType string
	switch event.Type {
	case queue.EventPostCommented:
		notifType = model.NotificationTypeComment
	case queue.EventPostReacted:
		notifType = model.NotificationTypeReaction
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if event.ActorID == 0 || event.RecipientID == 0 {
		return fmt.Errorf("%s event missing actor or recipient", event.Type)
	}

	if err := h.notifier.Notify(ctx, event.RecipientID, event.ActorID, notifType, event.EntityID); err != nil {
		return fmt.Errorf("create %s notification: %w", notifType, err)
	}

	h.logger.Debug("activity handled",
		zap.String("type", event.Type),
		zap.Int64("actor_id", event.ActorID),
		zap.Int64("recipient_id", event.RecipientID),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}
