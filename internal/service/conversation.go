package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"socialgraph/internal/database"
	"socialgraph/internal/model"
	"socialgraph/internal/repository"
)

// MessageDeliverer pushes a stored message to a connected recipient.
type MessageDeliverer interface {
	DeliverMessage(recipientID int64, msg *model.Message)
}

// ConversationService owns direct conversations and their messages.
type ConversationService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	userRepo  repository.UserRepository
	tx        database.Transactor
	guard     *PrivacyGuard
	previewer LinkPreviewer    // optional
	deliverer MessageDeliverer // optional
	logger    *zap.Logger
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	tx database.Transactor,
	guard *PrivacyGuard,
	previewer LinkPreviewer,
	deliverer MessageDeliverer,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		userRepo:  userRepo,
		tx:        tx,
		guard:     guard,
		previewer: previewer,
		deliverer: deliverer,
		logger:    logger.Named("conversations"),
	}
}

// GetOrCreateConversation returns the pair's conversation, creating it when
// the guard allows. created reports whether this call inserted it.
func (s *ConversationService) GetOrCreateConversation(ctx context.Context, initiatorID, recipientID int64) (*model.Conversation, bool, error) {
	if initiatorID == recipientID {
		return nil, false, model.ErrSelfConversation
	}

	conv, err := s.convRepo.FindByParticipants(ctx, initiatorID, recipientID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, model.ErrConversationNotFound) {
		return nil, false, err
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, false, err
	}

	if err := s.guard.CanInitiateConversation(ctx, initiatorID, recipient); err != nil {
		return nil, false, err
	}

	var created bool
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		conv, created, err = s.convRepo.Create(ctx, tx, initiatorID, recipientID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("conversation created",
			zap.String("conversation_id", conv.ID.String()),
			zap.Int64("initiator_id", initiatorID))
	}
	return conv, created, nil
}

// SendMessage stores a message from senderID and pushes it to the other
// participant if they are connected.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID uuid.UUID, senderID int64, req model.SendMessageRequest) (*model.Message, error) {
	conv, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        req.Content,
		MediaURL:       req.MediaURL,
		MediaType:      req.MediaType,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.deliverer != nil {
		delivered := *msg
		s.deliverer.DeliverMessage(conv.Other(senderID), &delivered)
	}

	s.attachPreview(ctx, msg)
	return msg, nil
}

// attachPreview runs after delivery so a slow link never delays the push.
// The recipient sees the preview on their next fetch.
func (s *ConversationService) attachPreview(ctx context.Context, msg *model.Message) {
	if s.previewer == nil || msg.Content == nil {
		return
	}
	preview := s.previewer.Preview(ctx, *msg.Content)
	if preview == nil {
		return
	}
	if err := s.msgRepo.SetLinkPreview(ctx, msg.ID, preview); err != nil {
		s.logger.Warn("store link preview",
			zap.Int64("message_id", msg.ID),
			zap.Error(err))
		return
	}
	msg.LinkPreview = preview
}

// ListMessages returns the conversation oldest-first and then marks the
// returned messages from the other participant read. read_at in the
// response reflects the state before this call. Messages that arrive
// between the listing and the update stay unread.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID uuid.UUID, requesterID int64) ([]model.Message, error) {
	if _, err := s.participantConversation(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var unread []int64
	for _, m := range messages {
		if m.SenderID != requesterID && m.ReadAt == nil {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		if _, err := s.msgRepo.MarkReadIDs(ctx, conversationID, requesterID, unread); err != nil {
			return nil, err
		}
	}

	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}

// MarkRead marks the other participant's messages read without listing them.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID uuid.UUID, requesterID int64) error {
	if _, err := s.participantConversation(ctx, conversationID, requesterID); err != nil {
		return err
	}
	n, err := s.msgRepo.MarkRead(ctx, conversationID, requesterID)
	if err != nil {
		return err
	}
	s.logger.Debug("messages marked read",
		zap.String("conversation_id", conversationID.String()),
		zap.Int64("reader_id", requesterID),
		zap.Int64("count", n))
	return nil
}

// ListConversations returns the caller's inbox, newest activity first.
func (s *ConversationService) ListConversations(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	convs, err := s.convRepo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []model.ConversationSummary{}
	}
	return convs, nil
}

// IsParticipant reports whether userID belongs to the conversation.
func (s *ConversationService) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error) {
	return s.convRepo.IsParticipant(ctx, conversationID, userID)
}

// participantConversation loads the conversation for a participant. A
// missing conversation and a non-participant look the same to the caller.
func (s *ConversationService) participantConversation(ctx context.Context, conversationID uuid.UUID, userID int64) (*model.Conversation, error) {
	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNotParticipant
	}
	return s.convRepo.GetByID(ctx, conversationID)
}
