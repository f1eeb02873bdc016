package model

import (
	"time"
)

// AccountPrivacy controls who may see a user's content.
type AccountPrivacy string

const (
	AccountPublic  AccountPrivacy = "public"
	AccountPrivate AccountPrivacy = "private"
)

// DMPrivacy controls who may open a new conversation with a user.
type DMPrivacy string

const (
	DMOpen    DMPrivacy = "open"
	DMMutuals DMPrivacy = "mutuals"
)

// User is owned by the profile subsystem; this service only reads it.
type User struct {
	ID             int64          `db:"id" json:"id"`
	Username       string         `db:"username" json:"username"`
	DisplayName    *string        `db:"display_name" json:"display_name"`
	AvatarURL      *string        `db:"avatar_url" json:"avatar_url"`
	AccountPrivacy AccountPrivacy `db:"account_privacy" json:"account_privacy"`
	DMPrivacy      DMPrivacy      `db:"dm_privacy" json:"dm_privacy"`
	FollowerCount  int            `db:"follower_count" json:"follower_count"`
	FollowingCount int            `db:"following_count" json:"following_count"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// IsPrivate reports whether the account requires follow approval.
func (u *User) IsPrivate() bool {
	return u.AccountPrivacy == AccountPrivate
}

// Summary returns the compact representation used in lists.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = newError(KindNotFound, "user not found")

	// ErrPrivateContent is returned when the viewer may not see the subject's content
	ErrPrivateContent = newError(KindAuthorization, "this account is private")
)
