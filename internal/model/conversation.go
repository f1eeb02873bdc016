package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct conversation between exactly two users. The
// pair is stored ordered (UserLow < UserHigh) so that it is unique per
// unordered pair of participants.
type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserLow   int64     `db:"user_low" json:"-"`
	UserHigh  int64     `db:"user_high" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderedPair returns a and b with the smaller id first.
func OrderedPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID int64) int64 {
	if c.UserLow == userID {
		return c.UserHigh
	}
	return c.UserLow
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.UserLow == userID || c.UserHigh == userID
}

// ConversationSummary is one row of the caller's inbox.
type ConversationSummary struct {
	ID          uuid.UUID   `json:"id"`
	OtherUser   UserSummary `json:"other_user"`
	LastMessage *Message    `json:"last_message,omitempty"`
	UnreadCount int         `json:"unread_count"`
	CreatedAt   time.Time   `json:"created_at"`
}

type ConversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	RecipientID int64 `json:"recipientId"`
}

var (
	ErrSelfConversation     = newError(KindAuthorization, "cannot start a conversation with yourself")
	ErrDMForbidden          = newError(KindAuthorization, "this user only accepts messages from people they follow")
	ErrNotParticipant       = newError(KindAuthorization, "you are not a participant in this conversation")
	ErrConversationNotFound = newError(KindNotFound, "conversation not found")
)
