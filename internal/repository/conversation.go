package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"socialgraph/internal/model"
)

type conversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindByParticipants(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	low, high := model.OrderedPair(userA, userB)
	query := `SELECT id, user_low, user_high, created_at FROM conversations WHERE user_low = $1 AND user_high = $2`

	var c model.Conversation
	if err := r.db.GetContext(ctx, &c, query, low, high); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &c, nil
}

// Create is safe against a concurrent creator for the same pair: the unique
// (user_low, user_high) constraint lets exactly one insert win and the loser
// reads the winner's row.
func (r *conversationRepository) Create(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Conversation, bool, error) {
	low, high := model.OrderedPair(userA, userB)

	insert := `
		INSERT INTO conversations (id, user_low, user_high)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_low, user_high) DO NOTHING
		RETURNING id, user_low, user_high, created_at
	`
	var c model.Conversation
	err := tx.GetContext(ctx, &c, insert, uuid.New(), low, high)
	if errors.Is(err, sql.ErrNoRows) {
		existing := `SELECT id, user_low, user_high, created_at FROM conversations WHERE user_low = $1 AND user_high = $2`
		if err := tx.GetContext(ctx, &c, existing, low, high); err != nil {
			return nil, false, fmt.Errorf("failed to load existing conversation: %w", err)
		}
		return &c, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	participants := `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2), ($1, $3)
	`
	if _, err := tx.ExecContext(ctx, participants, c.ID, low, high); err != nil {
		return nil, false, fmt.Errorf("failed to add participants: %w", err)
	}

	return &c, true, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	query := `SELECT id, user_low, user_high, created_at FROM conversations WHERE id = $1`

	var c model.Conversation
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &c, nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, conversationID, userID); err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return ok, nil
}

// ListForUser returns the user's conversations with the other participant,
// the latest message and the unread count, newest activity first.
func (r *conversationRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error) {
	query := `
		SELECT c.id, c.created_at,
		       u.id AS other_id, u.username AS other_username,
		       u.display_name AS other_display_name, u.avatar_url AS other_avatar_url,
		       m.id AS last_id, m.sender_id AS last_sender_id, m.content AS last_content,
		       m.media_url AS last_media_url, m.media_type AS last_media_type,
		       m.created_at AS last_created_at, m.read_at AS last_read_at,
		       (SELECT COUNT(*) FROM messages um
		         WHERE um.conversation_id = c.id AND um.sender_id <> $1 AND um.read_at IS NULL) AS unread_count
		FROM conversation_participants p
		JOIN conversations c ON c.id = p.conversation_id
		JOIN users u ON u.id = CASE WHEN c.user_low = $1 THEN c.user_high ELSE c.user_low END
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, media_url, media_type, created_at, read_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE p.user_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC
		LIMIT $2
	`

	type row struct {
		ID               uuid.UUID  `db:"id"`
		CreatedAt        time.Time  `db:"created_at"`
		OtherID          int64      `db:"other_id"`
		OtherUsername    string     `db:"other_username"`
		OtherDisplayName *string    `db:"other_display_name"`
		OtherAvatarURL   *string    `db:"other_avatar_url"`
		LastID           *int64     `db:"last_id"`
		LastSenderID     *int64     `db:"last_sender_id"`
		LastContent      *string    `db:"last_content"`
		LastMediaURL     *string    `db:"last_media_url"`
		LastMediaType    *string    `db:"last_media_type"`
		LastCreatedAt    *time.Time `db:"last_created_at"`
		LastReadAt       *time.Time `db:"last_read_at"`
		UnreadCount      int        `db:"unread_count"`
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	out := make([]model.ConversationSummary, 0, len(rows))
	for _, rw := range rows {
		s := model.ConversationSummary{
			ID: rw.ID,
			OtherUser: model.UserSummary{
				ID:          rw.OtherID,
				Username:    rw.OtherUsername,
				DisplayName: rw.OtherDisplayName,
				AvatarURL:   rw.OtherAvatarURL,
			},
			UnreadCount: rw.UnreadCount,
			CreatedAt:   rw.CreatedAt,
		}
		if rw.LastID != nil {
			s.LastMessage = &model.Message{
				ID:             *rw.LastID,
				ConversationID: rw.ID,
				SenderID:       *rw.LastSenderID,
				Content:        rw.LastContent,
				MediaURL:       rw.LastMediaURL,
				MediaType:      rw.LastMediaType,
				CreatedAt:      *rw.LastCreatedAt,
				ReadAt:         rw.LastReadAt,
			}
		}
		out = append(out, s)
	}
	return out, nil
}
