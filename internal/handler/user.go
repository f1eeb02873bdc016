package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialgraph/internal/httputil"
	"socialgraph/internal/transport/http/middleware"
)

type UserHandler struct {
	users  UserResolver
	guard  ContentGuard
	logger *zap.Logger
}

func NewUserHandler(users UserResolver, guard ContentGuard, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		guard:  guard,
		logger: logger.Named("user_handler"),
	}
}

// Relationship handles GET /users/{username}/relationship
func (h *UserHandler) Relationship(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	subject, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to fetch relationship")
		return
	}

	rel, err := h.guard.Relationship(r.Context(), viewerID, subject)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to fetch relationship")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rel)
}

// Visibility handles GET /users/{username}/visibility for the content
// subsystem. Anonymous callers are allowed.
func (h *UserHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	subject, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to check visibility")
		return
	}

	canView, err := h.guard.CanViewContent(r.Context(), viewerID, subject)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to check visibility")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"can_view_content": canView})
}
