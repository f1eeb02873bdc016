package service

import (
	"context"
	"errors"

	"socialgraph/internal/model"
	"socialgraph/internal/repository"
)

// PrivacyGuard answers visibility and messaging questions from the follow
// graph and the subject's privacy settings. It never mutates state.
type PrivacyGuard struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	convRepo   repository.ConversationRepository
}

func NewPrivacyGuard(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	convRepo repository.ConversationRepository,
) *PrivacyGuard {
	return &PrivacyGuard{
		userRepo:   userRepo,
		followRepo: followRepo,
		convRepo:   convRepo,
	}
}

// CanViewContent reports whether viewerID may see subject's posts and
// profile content. A zero viewerID is an anonymous viewer.
func (g *PrivacyGuard) CanViewContent(ctx context.Context, viewerID int64, subject *model.User) (bool, error) {
	if !subject.IsPrivate() {
		return true, nil
	}
	if viewerID == 0 {
		return false, nil
	}
	if viewerID == subject.ID {
		return true, nil
	}
	return g.followRepo.IsApproved(ctx, viewerID, subject.ID)
}

// CanViewContentByID loads the subject first. Used by collaborators that
// only hold an author id.
func (g *PrivacyGuard) CanViewContentByID(ctx context.Context, viewerID, subjectID int64) (bool, error) {
	subject, err := g.userRepo.GetByID(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return g.CanViewContent(ctx, viewerID, subject)
}

// AuthorizeContent is CanViewContent as an error: model.ErrPrivateContent on denial.
func (g *PrivacyGuard) AuthorizeContent(ctx context.Context, viewerID int64, subject *model.User) error {
	ok, err := g.CanViewContent(ctx, viewerID, subject)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPrivateContent
	}
	return nil
}

// CanInitiateConversation returns nil when initiatorID may message
// recipient, or model.ErrDMForbidden. An existing conversation is never
// re-gated.
func (g *PrivacyGuard) CanInitiateConversation(ctx context.Context, initiatorID int64, recipient *model.User) error {
	if initiatorID == recipient.ID {
		return model.ErrSelfConversation
	}

	_, err := g.convRepo.FindByParticipants(ctx, initiatorID, recipient.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrConversationNotFound) {
		return err
	}

	if recipient.DMPrivacy != model.DMMutuals {
		return nil
	}

	// Mutuals: the recipient must already follow the initiator.
	followsBack, err := g.followRepo.IsApproved(ctx, recipient.ID, initiatorID)
	if err != nil {
		return err
	}
	if !followsBack {
		return model.ErrDMForbidden
	}
	return nil
}

// Relationship summarizes how viewerID relates to subject.
func (g *PrivacyGuard) Relationship(ctx context.Context, viewerID int64, subject *model.User) (*model.Relationship, error) {
	rel := &model.Relationship{
		Following:  model.FollowNone,
		FollowedBy: model.FollowNone,
	}

	canView, err := g.CanViewContent(ctx, viewerID, subject)
	if err != nil {
		return nil, err
	}
	rel.CanViewContent = canView

	if viewerID == 0 || viewerID == subject.ID {
		return rel, nil
	}

	if rel.Following, err = g.edgeStatus(ctx, viewerID, subject.ID); err != nil {
		return nil, err
	}
	if rel.FollowedBy, err = g.edgeStatus(ctx, subject.ID, viewerID); err != nil {
		return nil, err
	}

	switch err := g.CanInitiateConversation(ctx, viewerID, subject); {
	case err == nil:
		rel.CanMessage = true
	case errors.Is(err, model.ErrDMForbidden):
		rel.CanMessage = false
	default:
		return nil, err
	}
	return rel, nil
}

func (g *PrivacyGuard) edgeStatus(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	edge, err := g.followRepo.Get(ctx, followerID, followeeID)
	if errors.Is(err, model.ErrFollowNotFound) {
		return model.FollowNone, nil
	}
	if err != nil {
		return "", err
	}
	return edge.Status, nil
}
