package service

import (
	"context"

	"go.uber.org/zap"

	"socialgraph/internal/model"
	"socialgraph/internal/repository"
)

// NotificationPinger tells a connected client to re-fetch its notifications.
type NotificationPinger interface {
	DeliverNotificationPing(recipientID int64)
}

// Notifier is the write path used by the follow service and the activity worker.
type Notifier interface {
	Notify(ctx context.Context, recipientID, senderID int64, notifType string, entityID *int64) error
}

// NotificationService persists notifications and pings recipients in real time.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	pinger    NotificationPinger
	logger    *zap.Logger
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	pinger NotificationPinger,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		pinger:    pinger,
		logger:    logger.Named("notifications"),
	}
}

// Notify stores a notification and pings the recipient. Self-actions
// produce nothing.
func (s *NotificationService) Notify(ctx context.Context, recipientID, senderID int64, notifType string, entityID *int64) error {
	if recipientID == senderID {
		return nil
	}

	n := &model.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notifType,
		EntityID:    entityID,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return err
	}

	s.logger.Debug("notification created",
		zap.Int64("recipient_id", recipientID),
		zap.Int64("sender_id", senderID),
		zap.String("type", notifType))

	if s.pinger != nil {
		s.pinger.DeliverNotificationPing(recipientID)
	}
	return nil
}

// GetNotifications returns the newest notifications with sender summaries attached.
func (s *NotificationService) GetNotifications(ctx context.Context, userID int64, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	notifications, err := s.notifRepo.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]int64, 0, len(notifications))
	for _, n := range notifications {
		senderIDs = append(senderIDs, n.SenderID)
	}
	senders, err := s.userRepo.GetSummaries(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	for i := range notifications {
		if sender, ok := senders[notifications[i].SenderID]; ok {
			sender := sender
			notifications[i].Sender = &sender
		}
	}

	unread, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}
	return &model.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// MarkAllAsRead marks all notifications for a user as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the number of unread notifications (for badge display).
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}
