package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"socialgraph/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a new notification and fills in its id and created_at.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, sender_id, type, entity_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at
	`
	row := r.db.QueryRowxContext(ctx, query, n.RecipientID, n.SenderID, n.Type, n.EntityID)
	if err := row.Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the recipient's notifications newest first with sender info.
func (r *notificationRepository) List(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error) {
	query := `
		SELECT n.id, n.recipient_id, n.sender_id, n.type, n.entity_id, n.is_read, n.created_at,
		       u.username AS sender_username, u.display_name AS sender_display_name,
		       u.avatar_url AS sender_avatar_url
		FROM notifications n
		JOIN users u ON u.id = n.sender_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2
	`

	type notifRow struct {
		ID              int64     `db:"id"`
		RecipientID     int64     `db:"recipient_id"`
		SenderID        int64     `db:"sender_id"`
		Type            string    `db:"type"`
		EntityID        *int64    `db:"entity_id"`
		IsRead          bool      `db:"is_read"`
		CreatedAt       time.Time `db:"created_at"`
		SenderUsername  string    `db:"sender_username"`
		SenderDisplay   *string   `db:"sender_display_name"`
		SenderAvatarURL *string   `db:"sender_avatar_url"`
	}

	var rows []notifRow
	if err := r.db.SelectContext(ctx, &rows, query, recipientID, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]model.Notification, len(rows))
	for i, row := range rows {
		notifications[i] = model.Notification{
			ID:          row.ID,
			RecipientID: row.RecipientID,
			SenderID:    row.SenderID,
			Type:        row.Type,
			EntityID:    row.EntityID,
			IsRead:      row.IsRead,
			CreatedAt:   row.CreatedAt,
			Sender: &model.UserSummary{
				ID:          row.SenderID,
				Username:    row.SenderUsername,
				DisplayName: row.SenderDisplay,
				AvatarURL:   row.SenderAvatarURL,
			},
		}
	}
	return notifications, nil
}

// MarkAllAsRead marks all notifications for a recipient as read.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, recipientID int64) error {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE recipient_id = $1 AND is_read = false
	`
	if _, err := r.db.ExecContext(ctx, query, recipientID); err != nil {
		return fmt.Errorf("mark all notifications as read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications.
func (r *notificationRepository) GetUnreadCount(ctx context.Context, recipientID int64) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false`
	var count int
	err := r.db.GetContext(ctx, &count, query, recipientID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
