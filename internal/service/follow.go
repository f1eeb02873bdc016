package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"socialgraph/internal/database"
	"socialgraph/internal/model"
	"socialgraph/internal/queue"
	"socialgraph/internal/repository"
)

// FollowService owns the follow state machine: NONE -> PENDING -> APPROVED,
// with NONE reachable again through deny and unfollow.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	tx         database.Transactor
	guard      *PrivacyGuard
	notifier   Notifier
	publisher  queue.Publisher // nil when Redis is not configured
	logger     *zap.Logger
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	tx database.Transactor,
	guard *PrivacyGuard,
	notifier Notifier,
	publisher queue.Publisher,
	logger *zap.Logger,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		tx:         tx,
		guard:      guard,
		notifier:   notifier,
		publisher:  publisher,
		logger:     logger.Named("follows"),
	}
}

// RequestFollow returns the resulting edge status. Private accounts get a
// pending request, public accounts an approved edge.
func (s *FollowService) RequestFollow(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	if followerID == followeeID {
		return "", model.ErrSelfFollow
	}

	followee, err := s.userRepo.GetByID(ctx, followeeID)
	if err != nil {
		return "", err
	}

	if followee.IsPrivate() {
		return s.requestPrivate(ctx, followerID, followeeID)
	}
	return s.followPublic(ctx, followerID, followeeID)
}

func (s *FollowService) requestPrivate(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	var inserted bool
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		inserted, err = s.followRepo.CreatePending(ctx, tx, followerID, followeeID)
		return err
	})
	if err != nil {
		return "", err
	}

	if !inserted {
		// Some edge already exists; report what it is.
		edge, err := s.followRepo.Get(ctx, followerID, followeeID)
		if err != nil {
			return "", err
		}
		return edge.Status, nil
	}

	s.notify(ctx, followeeID, followerID, model.NotificationTypeFollowRequest)
	return model.FollowPending, nil
}

func (s *FollowService) followPublic(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	var promoted bool
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		promoted, err = s.followRepo.UpsertApproved(ctx, tx, followerID, followeeID)
		if err != nil || !promoted {
			return err
		}
		return s.adjustCounts(ctx, tx, followerID, followeeID, 1)
	})
	if err != nil {
		return "", err
	}

	if promoted {
		s.publish(ctx, queue.NewUserFollowedEvent(followerID, followeeID))
	}
	s.notify(ctx, followeeID, followerID, model.NotificationTypeFollow)
	return model.FollowApproved, nil
}

// ApproveFollow moves followerID's pending request to followeeID to approved.
func (s *FollowService) ApproveFollow(ctx context.Context, followeeID, followerID int64) error {
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.followRepo.Approve(ctx, tx, followerID, followeeID); err != nil {
			return err
		}
		return s.adjustCounts(ctx, tx, followerID, followeeID, 1)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, queue.NewUserFollowedEvent(followerID, followeeID))
	s.notify(ctx, followerID, followeeID, model.NotificationTypeFollowApproved)
	return nil
}

// DenyFollow removes a pending request. The requester is not notified.
func (s *FollowService) DenyFollow(ctx context.Context, followeeID, followerID int64) error {
	return s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.followRepo.DeletePending(ctx, tx, followerID, followeeID)
	})
}

// Unfollow removes the edge in any state, which also withdraws a pending request.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	var prior model.FollowStatus
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		prior, err = s.followRepo.Delete(ctx, tx, followerID, followeeID)
		if err != nil || prior != model.FollowApproved {
			return err
		}
		return s.adjustCounts(ctx, tx, followerID, followeeID, -1)
	})
	if err != nil {
		return err
	}

	if prior == model.FollowApproved {
		s.publish(ctx, queue.NewUserUnfollowedEvent(followerID, followeeID))
	}
	return nil
}

// ListApprovedFollowers returns subject's followers when viewerID may see subject's content.
func (s *FollowService) ListApprovedFollowers(ctx context.Context, viewerID int64, subject *model.User) ([]model.UserSummary, error) {
	if err := s.guard.AuthorizeContent(ctx, viewerID, subject); err != nil {
		return nil, err
	}
	return s.followRepo.ListApprovedFollowers(ctx, subject.ID)
}

// ListApprovedFollowing returns the accounts subject follows when viewerID may see subject's content.
func (s *FollowService) ListApprovedFollowing(ctx context.Context, viewerID int64, subject *model.User) ([]model.UserSummary, error) {
	if err := s.guard.AuthorizeContent(ctx, viewerID, subject); err != nil {
		return nil, err
	}
	return s.followRepo.ListApprovedFollowing(ctx, subject.ID)
}

func (s *FollowService) ListPendingRequests(ctx context.Context, followeeID int64) ([]model.FollowRequest, error) {
	return s.followRepo.ListPending(ctx, followeeID)
}

func (s *FollowService) adjustCounts(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, delta int) error {
	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, delta); err != nil {
		return err
	}
	return s.userRepo.IncrementFollowingCount(ctx, tx, followerID, delta)
}

// notify runs after commit; the edge change stands even if the notification fails.
func (s *FollowService) notify(ctx context.Context, recipientID, senderID int64, notifType string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, senderID, notifType, nil); err != nil {
		s.logger.Warn("notification failed",
			zap.String("type", notifType),
			zap.Int64("recipient_id", recipientID),
			zap.Int64("sender_id", senderID),
			zap.Error(err))
	}
}

// publish runs after commit so the feed subsystem never sees an uncommitted edge.
func (s *FollowService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	msgID, err := s.publisher.Publish(ctx, queue.StreamFollows, event)
	if err != nil {
		s.logger.Warn("publish follow event failed",
			zap.String("type", event.Type),
			zap.Int64("follower_id", event.FollowerID),
			zap.Int64("followee_id", event.FolloweeID),
			zap.Error(err))
		return
	}
	s.logger.Debug("follow event published", zap.String("type", event.Type), zap.String("msg_id", msgID))
}
