package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialgraph/internal/httputil"
	"socialgraph/internal/model"
	"socialgraph/internal/transport/http/middleware"
)

type FollowHandler struct {
	follows FollowManager
	users   UserResolver
	logger  *zap.Logger
}

func NewFollowHandler(follows FollowManager, users UserResolver, logger *zap.Logger) *FollowHandler {
	return &FollowHandler{
		follows: follows,
		users:   users,
		logger:  logger.Named("follow_handler"),
	}
}

type followStatusResponse struct {
	Status model.FollowStatus `json:"status"`
}

// Follow handles POST /follows/{username}
// 202 when the request awaits approval, 201 when the edge is approved.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followee, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to follow user")
		return
	}

	status, err := h.follows.RequestFollow(r.Context(), followerID, followee.ID)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to follow user")
		return
	}

	code := http.StatusCreated
	if status == model.FollowPending {
		code = http.StatusAccepted
	}
	httputil.WriteJSON(w, code, followStatusResponse{Status: status})
}

// Unfollow handles DELETE /follows/{username}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followee, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to unfollow user")
		return
	}

	if err := h.follows.Unfollow(r.Context(), followerID, followee.ID); err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to unfollow user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, followStatusResponse{Status: model.FollowNone})
}

// ListRequests handles GET /follow-requests
func (h *FollowHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	requests, err := h.follows.ListPendingRequests(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to fetch follow requests")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.FollowRequestListResponse{Requests: requests})
}

// Approve handles POST /follow-requests/approve
func (h *FollowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "approve", func(followeeID, followerID int64) (model.FollowStatus, error) {
		return model.FollowApproved, h.follows.ApproveFollow(r.Context(), followeeID, followerID)
	})
}

// Deny handles POST /follow-requests/deny
func (h *FollowHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "deny", func(followeeID, followerID int64) (model.FollowStatus, error) {
		return model.FollowNone, h.follows.DenyFollow(r.Context(), followeeID, followerID)
	})
}

func (h *FollowHandler) respond(w http.ResponseWriter, r *http.Request, action string, fn func(followeeID, followerID int64) (model.FollowStatus, error)) {
	followeeID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.FollowActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FollowerID <= 0 {
		httputil.WriteBadRequest(w, "followerId is required")
		return
	}

	status, err := fn(followeeID, req.FollowerID)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, "Failed to "+action+" follow request")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, followStatusResponse{Status: status})
}

// GetFollowers handles GET /users/{username}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.follows.ListApprovedFollowers, "Failed to fetch followers")
}

// GetFollowing handles GET /users/{username}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.follows.ListApprovedFollowing, "Failed to fetch following")
}

type listFunc func(ctx context.Context, viewerID int64, subject *model.User) ([]model.UserSummary, error)

func (h *FollowHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc, failure string) {
	// Anonymous viewers have id 0.
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	subject, err := h.users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, failure)
		return
	}

	users, err := fn(r.Context(), viewerID, subject)
	if err != nil {
		httputil.WriteDomainError(w, h.logger, err, failure)
		return
	}
	if users == nil {
		users = []model.UserSummary{}
	}

	httputil.WriteJSON(w, http.StatusOK, model.FollowListResponse{Users: users})
}
