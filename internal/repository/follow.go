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

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Get(ctx context.Context, followerID, followeeID int64) (*model.FollowEdge, error) {
	query := `
		SELECT follower_id, followee_id, status, created_at
		FROM follows
		WHERE follower_id = $1 AND followee_id = $2
	`
	var edge model.FollowEdge
	if err := r.db.GetContext(ctx, &edge, query, followerID, followeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrFollowNotFound
		}
		return nil, fmt.Errorf("failed to get follow: %w", err)
	}
	return &edge, nil
}

// CreatePending never touches an existing edge, whatever its status, so a
// repeated request while pending (or after approval) is a no-op.
func (r *followRepository) CreatePending(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpsertApproved relies on ON CONFLICT ... DO UPDATE ... WHERE reporting zero
// rows when the edge was already approved.
func (r *followRepository) UpsertApproved(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id, status)
		VALUES ($1, $2, 'approved')
		ON CONFLICT (follower_id, followee_id)
		DO UPDATE SET status = 'approved', updated_at = NOW()
		WHERE follows.status <> 'approved'
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *followRepository) Approve(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	query := `
		UPDATE follows SET status = 'approved', updated_at = NOW()
		WHERE follower_id = $1 AND followee_id = $2 AND status = 'pending'
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to approve follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrFollowRequestNotFound
	}
	return nil
}

func (r *followRepository) DeletePending(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2 AND status = 'pending'`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to deny follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrFollowRequestNotFound
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (model.FollowStatus, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2 RETURNING status`

	var status model.FollowStatus
	if err := tx.GetContext(ctx, &status, query, followerID, followeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FollowNone, model.ErrFollowNotFound
		}
		return model.FollowNone, fmt.Errorf("failed to delete follow: %w", err)
	}
	return status, nil
}

func (r *followRepository) IsApproved(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2 AND status = 'approved')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, followerID, followeeID); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// ListApprovedFollowers returns approved followers ordered by display name,
// falling back to the username for users without one.
func (r *followRepository) ListApprovedFollowers(ctx context.Context, userID int64) ([]model.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.display_name, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1 AND f.status = 'approved'
		ORDER BY LOWER(COALESCE(u.display_name, u.username)), u.id
	`
	users := []model.UserSummary{}
	if err := r.db.SelectContext(ctx, &users, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return users, nil
}

func (r *followRepository) ListApprovedFollowing(ctx context.Context, userID int64) ([]model.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.display_name, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1 AND f.status = 'approved'
		ORDER BY LOWER(COALESCE(u.display_name, u.username)), u.id
	`
	users := []model.UserSummary{}
	if err := r.db.SelectContext(ctx, &users, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return users, nil
}

// ListPending returns pending requests addressed to followeeID, newest first.
func (r *followRepository) ListPending(ctx context.Context, followeeID int64) ([]model.FollowRequest, error) {
	query := `
		SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1 AND f.status = 'pending'
		ORDER BY f.created_at DESC
	`

	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var rows []userWithTime
	if err := r.db.SelectContext(ctx, &rows, query, followeeID); err != nil {
		return nil, fmt.Errorf("failed to get follow requests: %w", err)
	}

	requests := make([]model.FollowRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, model.FollowRequest{
			Follower:  row.UserSummary,
			CreatedAt: row.CreatedAt,
		})
	}
	return requests, nil
}
