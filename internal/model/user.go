// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// User represents a registered account. The same record serves two roles:
// an account (credentials, session state) and a channel (the target of
// subscription edges).
//
// Username and Email are stored lowercased and trimmed; uniqueness of both
// is enforced by the store. PasswordHash always holds a bcrypt hash, never
// plaintext. RefreshToken holds the single currently-valid refresh token
// ("" means no active session); both secret fields are excluded from JSON.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Username     string    `json:"username"     db:"username"`
	Email        string    `json:"email"        db:"email"`
	FullName     string    `json:"fullName"     db:"full_name"`
	AvatarURL    string    `json:"avatar"       db:"avatar_url"`
	CoverURL     string    `json:"coverImage,omitempty" db:"cover_url"`
	PasswordHash string    `json:"-"            db:"password_hash"`
	RefreshToken string    `json:"-"            db:"refresh_token"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// Sanitized returns a copy with the credential fields zeroed. Handlers and
// the auth middleware expose only sanitized users.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

// Owner returns the reduced public projection used when a user appears as
// the owner of someone else's content (e.g. watch-history entries).
func (u User) Owner() VideoOwner {
	return VideoOwner{
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// NormalizeIdentifier lowercases and trims a username or email so lookups
// and uniqueness checks are case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ChannelProfile is the public-facing view of a user in their channel role,
// enriched with subscription aggregates for a particular viewer.
type ChannelProfile struct {
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	AvatarURL                 string `json:"avatar"`
	CoverURL                  string `json:"coverImage,omitempty"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}
