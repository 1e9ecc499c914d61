// Package service holds the business logic, sitting between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// SessionService orchestrates login, refresh, and logout.
//
// The session model is single-active: the user record holds at most one
// valid refresh token. Login overwrites it (revoking any prior session),
// refresh rotates it atomically, and logout clears it.
type SessionService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	access    *auth.TokenService
	refresh   *auth.TokenService
	logger    *slog.Logger
}

func NewSessionService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	access, refresh *auth.TokenService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:     users,
		passwords: passwords,
		access:    access,
		refresh:   refresh,
		logger:    logger,
	}
}

// AccessTTL returns the access-token lifetime, used to bound cookie ages.
func (s *SessionService) AccessTTL() time.Duration { return s.access.TTL() }

// RefreshTTL returns the refresh-token lifetime.
func (s *SessionService) RefreshTTL() time.Duration { return s.refresh.TTL() }

// TokenPair bundles the two credentials a session transition hands to the
// caller.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is returned by Login: the sanitized user plus the issued pair.
type LoginResult struct {
	User   model.User `json:"user"`
	Tokens TokenPair
}

// Login verifies credentials and starts a new session.
//
// The identifier may be a username or an email. An unknown identifier is a
// not-found error; a wrong password is an auth error. On success the issued
// refresh token is persisted, unconditionally replacing whatever was there;
// a previous session's refresh token stops working at that moment.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if identifier == "" {
		return nil, apperror.ValidationFailed("identifier", "username or email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(ctx, user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("invalid user credentials")
		}
		return nil, fmt.Errorf("service/session: verifying password: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("service/session: persisting refresh token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &LoginResult{User: user.Sanitized(), Tokens: *pair}, nil
}

// Refresh exchanges a refresh token for a new access/refresh pair.
//
// The inbound token must carry a valid signature and be unexpired, resolve
// to an existing user, and still equal the persisted value. The new refresh
// token is written with a conditional update keyed on the presented one, so
// of two concurrent refreshes with the same token exactly one succeeds. The
// loser gets the same auth error as every other failure here.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*LoginResult, error) {
	if presented == "" {
		return nil, apperror.Unauthorized("unauthorized request")
	}

	claims, err := s.refresh.Verify(presented)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("service/session: loading user: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrStaleRefreshToken) {
			s.logger.Warn("stale refresh token presented", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized("refresh token is expired or already used")
		}
		return nil, fmt.Errorf("service/session: rotating refresh token: %w", err)
	}

	return &LoginResult{User: user.Sanitized(), Tokens: *pair}, nil
}

// Logout ends the session by clearing the persisted refresh token.
// Idempotent: logging out twice leaves the same state and no error.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("service/session: clearing refresh token: %w", err)
	}
	s.logger.Info("user logged out", slog.String("userID", userID))
	return nil
}

func (s *SessionService) issuePair(user *model.User) (*TokenPair, error) {
	accessToken, err := s.access.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("service/session: issuing access token: %w", err)
	}
	refreshToken, err := s.refresh.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/session: issuing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
