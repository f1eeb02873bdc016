package model

import (
	"time"
)

// Notification types
const (
	NotificationTypeFollow         = "follow"
	NotificationTypeFollowRequest  = "follow_request"
	NotificationTypeFollowApproved = "follow_approved"
	NotificationTypeComment        = "comment"
	NotificationTypeReaction       = "reaction"
)

// Notification represents a single notification record in the database.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID int64     `db:"recipient_id" json:"-"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	Type        string    `db:"type" json:"type"`
	EntityID    *int64    `db:"entity_id" json:"entity_id,omitempty"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// Joined field for display
	Sender *UserSummary `json:"sender,omitempty"`
}

// NotificationListResponse is the notification list response.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
