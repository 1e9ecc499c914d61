package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// AccountService owns the user record lifecycle: registration, password
// changes, and profile updates.
type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput carries the fields required to create an account. The image
// URLs come from the upload service; AvatarURL is mandatory.
type RegisterInput struct {
	FullName  string
	Username  string
	Email     string
	Password  string
	AvatarURL string
	CoverURL  string
}

// Register creates a new user. All identity fields and the avatar must be
// non-empty; duplicate username or email surfaces a conflict from the store.
// The returned user is sanitized.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	for field, value := range map[string]string{
		"fullName": in.FullName,
		"username": in.Username,
		"email":    in.Email,
		"password": in.Password,
	} {
		if strings.TrimSpace(value) == "" {
			return nil, apperror.ValidationFailed(field, field+" is required")
		}
	}
	if in.AvatarURL == "" {
		return nil, apperror.ValidationFailed("avatar", "avatar file is required")
	}

	hash, err := s.passwords.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		AvatarURL:    in.AvatarURL,
		CoverURL:     in.CoverURL,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// ChangePassword verifies the old password before storing a hash of the new
// one. A wrong old password is a validation failure, matching the endpoint
// contract.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return apperror.ValidationFailed("newPassword", "new password is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.passwords.Verify(ctx, user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.ValidationFailed("oldPassword", "invalid old password")
		}
		return fmt.Errorf("service/account: verifying old password: %w", err)
	}

	// Unchanged value keeps the stored hash as-is instead of re-hashing.
	hash, err := s.passwords.HashIfChanged(ctx, user.PasswordHash, newPassword)
	if err != nil {
		return fmt.Errorf("service/account: hashing new password: %w", err)
	}
	if hash == user.PasswordHash {
		return nil
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// GetByID returns the sanitized user for the given ID.
func (s *AccountService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// UpdateAccount updates display name and email. Both are required, per the
// update-account endpoint contract.
func (s *AccountService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*model.User, error) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" {
		return nil, apperror.ValidationFailed("fullName", "all fields are required")
	}

	return s.update(ctx, userID, repository.AccountUpdate{
		FullName: &fullName,
		Email:    &email,
	})
}

// UpdateAvatar replaces the avatar asset reference.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*model.User, error) {
	if avatarURL == "" {
		return nil, apperror.ValidationFailed("avatar", "avatar file is missing")
	}
	return s.update(ctx, userID, repository.AccountUpdate{AvatarURL: &avatarURL})
}

// UpdateCover replaces the cover image asset reference.
func (s *AccountService) UpdateCover(ctx context.Context, userID, coverURL string) (*model.User, error) {
	if coverURL == "" {
		return nil, apperror.ValidationFailed("coverImage", "cover image file is missing")
	}
	return s.update(ctx, userID, repository.AccountUpdate{CoverURL: &coverURL})
}

func (s *AccountService) update(ctx context.Context, userID string, upd repository.AccountUpdate) (*model.User, error) {
	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		return nil, err
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}
