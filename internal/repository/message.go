package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialgraph/internal/model"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts msg and fills in its id and created_at.
func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, media_url, media_type, link_preview)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	row := r.db.QueryRowxContext(ctx, query,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.MediaURL,
		msg.MediaType,
		msg.LinkPreview,
	)
	if err := row.Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, media_url, media_type, link_preview, created_at, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`
	messages := []model.Message{}
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkRead only touches rows whose read_at is still NULL, so an existing
// read_at is never overwritten.
func (r *messageRepository) MarkRead(ctx context.Context, conversationID uuid.UUID, readerID int64) (int64, error) {
	query := `
		UPDATE messages
		SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// MarkReadIDs marks only the listed messages, so a message that arrives
// after a listing stays unread.
func (r *messageRepository) MarkReadIDs(ctx context.Context, conversationID uuid.UUID, readerID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		UPDATE messages
		SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL AND id = ANY($3)
	`
	result, err := r.db.ExecContext(ctx, query, conversationID, readerID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("mark listed messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func (r *messageRepository) SetLinkPreview(ctx context.Context, messageID int64, preview *model.LinkPreview) error {
	query := `UPDATE messages SET link_preview = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, messageID, preview); err != nil {
		return fmt.Errorf("set link preview: %w", err)
	}
	return nil
}
