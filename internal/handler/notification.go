package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"socialgraph/internal/httputil"
	"socialgraph/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notifications NotificationReader
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationReader, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.Named("notification_handler"),
	}
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 20 // default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	resp, err := h.notifications.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// MarkAllRead handles POST /notifications/read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.notifications.MarkAllAsRead(r.Context(), userID); err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to mark notifications as read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.notifications.GetUnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}
