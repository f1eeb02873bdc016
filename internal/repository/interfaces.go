package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"socialgraph/internal/model"
)

// Methods taking a *sqlx.Tx run inside the caller's transaction so that edge
// changes and counter updates commit together.

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
}

type FollowRepository interface {
	// Get returns the edge or model.ErrFollowNotFound.
	Get(ctx context.Context, followerID, followeeID int64) (*model.FollowEdge, error)
	// CreatePending inserts a pending edge unless any edge exists. Reports whether it inserted.
	CreatePending(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	// UpsertApproved inserts an approved edge or promotes an existing one.
	// Reports whether the edge became approved by this call.
	UpsertApproved(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	// Approve moves a pending edge to approved or returns model.ErrFollowRequestNotFound.
	Approve(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	// DeletePending removes a pending edge or returns model.ErrFollowRequestNotFound.
	DeletePending(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	// Delete removes the edge in any state and returns its prior status,
	// or model.ErrFollowNotFound.
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (model.FollowStatus, error)
	IsApproved(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListApprovedFollowers(ctx context.Context, userID int64) ([]model.UserSummary, error)
	ListApprovedFollowing(ctx context.Context, userID int64) ([]model.UserSummary, error)
	ListPending(ctx context.Context, followeeID int64) ([]model.FollowRequest, error)
}

type ConversationRepository interface {
	// FindByParticipants returns the conversation of the unordered pair or
	// model.ErrConversationNotFound.
	FindByParticipants(ctx context.Context, userA, userB int64) (*model.Conversation, error)
	// Create inserts the conversation and both participant rows. When the pair
	// already has a conversation it is returned with created=false.
	Create(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Conversation, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error)
	// MarkRead sets read_at on messages not sent by readerID that are still unread.
	MarkRead(ctx context.Context, conversationID uuid.UUID, readerID int64) (int64, error)
	// MarkReadIDs is MarkRead restricted to the given message ids.
	MarkReadIDs(ctx context.Context, conversationID uuid.UUID, readerID int64, ids []int64) (int64, error)
	SetLinkPreview(ctx context.Context, messageID int64, preview *model.LinkPreview) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error)
	MarkAllAsRead(ctx context.Context, recipientID int64) error
	GetUnreadCount(ctx context.Context, recipientID int64) (int, error)
}
