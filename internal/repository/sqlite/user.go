package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// UserStore implements repository.UserRepository on SQLite.
type UserStore struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, username, email, full_name, avatar_url, cover_url,
	password_hash, refresh_token, created_at, updated_at`

// Create inserts a new user. Username and email are normalized first; a
// duplicate of either surfaces apperror.ErrConflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Username = model.NormalizeIdentifier(user.Username)
	user.Email = model.NormalizeIdentifier(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, avatar_url, cover_url,
			password_hash, refresh_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.CoverURL,
		user.PasswordHash,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username+" / "+user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user by their case-normalized username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`,
		model.NormalizeIdentifier(username))
}

// GetByIdentifier resolves a login identifier against both unique columns.
func (s *UserStore) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	return s.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`,
		model.NormalizeIdentifier(identifier), model.NormalizeIdentifier(identifier))
}

func (s *UserStore) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var u model.User
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CoverURL,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	return &u, nil
}

// Update applies a partial profile update and returns the updated record.
// Only non-nil fields are written.
func (s *UserStore) Update(ctx context.Context, id string, upd repository.AccountUpdate) (*model.User, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)

	if upd.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, strings.TrimSpace(*upd.FullName))
	}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, model.NormalizeIdentifier(*upd.Email))
	}
	if upd.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, *upd.AvatarURL)
	}
	if upd.CoverURL != nil {
		sets = append(sets, "cover_url = ?")
		args = append(args, *upd.CoverURL)
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("user", id)
		}
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return s.GetByID(ctx, id)
}

// UpdatePassword replaces the stored password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// SetRefreshToken overwrites the persisted refresh token unconditionally.
// Any previous session's token stops matching from this point on.
func (s *UserStore) SetRefreshToken(ctx context.Context, id, token string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: setting refresh token for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// RotateRefreshToken is the compare-and-rotate step: the write succeeds only
// while the persisted token still equals presented. SQLite serializes the
// two concurrent UPDATEs, so exactly one matches and the other observes
// ErrStaleRefreshToken.
func (s *UserStore) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ?
		 WHERE id = ? AND refresh_token = ? AND refresh_token != ''`,
		next, time.Now().UTC(), id, presented)
	if err != nil {
		return fmt.Errorf("sqlite: rotating refresh token for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrStaleRefreshToken
	}
	return nil
}

// ClearRefreshToken removes the persisted refresh token. Clearing an
// already-clear token is not an error.
func (s *UserStore) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = '', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: clearing refresh token for user %s: %w", id, err)
	}
	return nil
}

// WatchHistory returns the user's video references in append order.
func (s *UserStore) WatchHistory(ctx context.Context, id string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT video_id FROM watch_history WHERE user_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading watch history for user %s: %w", id, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning watch history row: %w", err)
		}
		ids = append(ids, videoID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating watch history: %w", err)
	}

	return ids, nil
}

// AppendWatchHistory appends a video reference at the next position.
func (s *UserStore) AppendWatchHistory(ctx context.Context, id, videoID string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, video_id, position)
		 SELECT ?, ?, COALESCE(MAX(position) + 1, 0)
		 FROM watch_history WHERE user_id = ?`,
		id, videoID, id)
	if err != nil {
		return fmt.Errorf("sqlite: appending watch history for user %s: %w", id, err)
	}
	return nil
}
