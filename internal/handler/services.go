package handler

import (
	"context"

	"github.com/google/uuid"

	"socialgraph/internal/model"
)

// The handlers depend on these narrow views of the service layer.

type UserResolver interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type FollowManager interface {
	RequestFollow(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error)
	ApproveFollow(ctx context.Context, followeeID, followerID int64) error
	DenyFollow(ctx context.Context, followeeID, followerID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	ListApprovedFollowers(ctx context.Context, viewerID int64, subject *model.User) ([]model.UserSummary, error)
	ListApprovedFollowing(ctx context.Context, viewerID int64, subject *model.User) ([]model.UserSummary, error)
	ListPendingRequests(ctx context.Context, followeeID int64) ([]model.FollowRequest, error)
}

type ContentGuard interface {
	CanViewContent(ctx context.Context, viewerID int64, subject *model.User) (bool, error)
	Relationship(ctx context.Context, viewerID int64, subject *model.User) (*model.Relationship, error)
}

type ConversationManager interface {
	GetOrCreateConversation(ctx context.Context, initiatorID, recipientID int64) (*model.Conversation, bool, error)
	SendMessage(ctx context.Context, conversationID uuid.UUID, senderID int64, req model.SendMessageRequest) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, requesterID int64) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, requesterID int64) error
	ListConversations(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error)
}

type NotificationReader interface {
	GetNotifications(ctx context.Context, userID int64, limit int) (*model.NotificationListResponse, error)
	MarkAllAsRead(ctx context.Context, userID int64) error
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
}
