// Package repository defines the typed storage interfaces the services are
// built against. The sqlite subpackage provides the production
// implementation; tests use in-memory fakes.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/streamhub/internal/model"
)

// ErrStaleRefreshToken is returned by RotateRefreshToken when the presented
// token no longer matches the persisted value: it was already rotated or
// revoked by another session transition.
var ErrStaleRefreshToken = errors.New("repository: refresh token is expired or already used")

// AccountUpdate is a partial update of a user's profile. Nil fields are left
// untouched; only the named fields are written, so no other column's
// invariants are in play.
type AccountUpdate struct {
	FullName  *string
	Email     *string
	AvatarURL *string
	CoverURL  *string
}

// ListOptions bounds list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// Create inserts a new user. Username and email are case-normalized
	// before the insert; a duplicate of either surfaces a conflict error.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByIdentifier resolves a login identifier that may be a username or
	// an email address.
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	Update(ctx context.Context, id string, upd AccountUpdate) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshToken unconditionally overwrites the persisted refresh
	// token, invalidating any previous session's token.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken atomically replaces the persisted refresh token,
	// succeeding only if it still equals presented. With two concurrent
	// rotations of the same token, exactly one wins; the other gets
	// ErrStaleRefreshToken.
	RotateRefreshToken(ctx context.Context, id, presented, next string) error
	// ClearRefreshToken removes the persisted refresh token. Idempotent.
	ClearRefreshToken(ctx context.Context, id string) error

	// WatchHistory returns the user's video references in append order.
	WatchHistory(ctx context.Context, id string) ([]string, error)
	// AppendWatchHistory appends a video reference to the user's history.
	AppendWatchHistory(ctx context.Context, id, videoID string) error
}

type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Video, error)
	Delete(ctx context.Context, id string) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	// Exists reports whether at least one subscriber → channel edge exists.
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	// CountSubscribers counts edges whose channel end is channelID.
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	// CountSubscribedTo counts edges whose subscriber end is subscriberID.
	CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error)
}
