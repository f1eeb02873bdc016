package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"socialgraph/internal/httputil"
	"socialgraph/internal/model"
	"socialgraph/internal/transport/http/middleware"
)

// maxMessageBody bounds POST /conversations/{id}/messages bodies.
const maxMessageBody = 64 << 10

type ConversationHandler struct {
	conversations ConversationManager
	logger        *zap.Logger
}

func NewConversationHandler(conversations ConversationManager, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        logger.Named("conversation_handler"),
	}
}

// Create handles POST /conversations
// 201 when created, 200 when the pair already had one.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecipientID <= 0 {
		httputil.WriteBadRequest(w, "recipientId is required")
		return
	}

	conv, created, err := h.conversations.GetOrCreateConversation(r.Context(), userID, req.RecipientID)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to open conversation")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, conv)
}

// List handles GET /conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 100 {
			httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	convs, err := h.conversations.ListConversations(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to fetch conversations")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.ConversationListResponse{Conversations: convs})
}

// SendMessage handles POST /conversations/{id}/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationRequest(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	msg, err := h.conversations.SendMessage(r.Context(), convID, userID, req)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to send message")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /conversations/{id}/messages
// Listing marks the other participant's messages read.
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationRequest(w, r)
	if !ok {
		return
	}

	messages, err := h.conversations.ListMessages(r.Context(), convID, userID)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to fetch messages")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.MessageListResponse{Messages: messages})
}

// MarkRead handles PATCH /conversations/{id}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationRequest(w, r)
	if !ok {
		return
	}

	if err := h.conversations.MarkRead(r.Context(), convID, userID); err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to mark conversation read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) conversationRequest(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return 0, uuid.Nil, false
	}

	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid conversation ID")
		return 0, uuid.Nil, false
	}
	return userID, convID, true
}
