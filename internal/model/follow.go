package model

import (
	"time"
)

// FollowStatus is the approval state of a follow edge. The absence of an
// edge means "not following".
type FollowStatus string

const (
	FollowNone     FollowStatus = "none"
	FollowPending  FollowStatus = "pending"
	FollowApproved FollowStatus = "approved"
)

// FollowEdge is keyed by (follower_id, followee_id); at most one per ordered pair.
type FollowEdge struct {
	FollowerID int64        `db:"follower_id" json:"follower_id"`
	FolloweeID int64        `db:"followee_id" json:"followee_id"`
	Status     FollowStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// FollowRequest is a pending edge joined with the requester's profile.
type FollowRequest struct {
	Follower  UserSummary `json:"follower"`
	CreatedAt time.Time   `json:"created_at"`
}

type FollowListResponse struct {
	Users []UserSummary `json:"users"`
}

type FollowRequestListResponse struct {
	Requests []FollowRequest `json:"requests"`
}

// FollowActionRequest is the body of approve/deny calls.
type FollowActionRequest struct {
	FollowerID int64 `json:"followerId"`
}

// Relationship describes how the caller relates to another user.
type Relationship struct {
	Following      FollowStatus `json:"following"`
	FollowedBy     FollowStatus `json:"followed_by"`
	CanViewContent bool         `json:"can_view_content"`
	CanMessage     bool         `json:"can_message"`
}

var (
	ErrSelfFollow            = newError(KindAuthorization, "cannot follow yourself")
	ErrFollowNotFound        = newError(KindNotFound, "not following this user")
	ErrFollowRequestNotFound = newError(KindNotFound, "no pending follow request from this user")
)
