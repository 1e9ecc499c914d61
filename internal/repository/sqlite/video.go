package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// VideoStore implements repository.VideoRepository on SQLite.
type VideoStore struct {
	conn *sql.DB
}

var _ repository.VideoRepository = (*VideoStore)(nil)

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url,
	duration_ns, views, created_at, updated_at`

// Create inserts a new video record.
func (s *VideoStore) Create(ctx context.Context, video *model.Video) error {
	now := time.Now().UTC()
	video.ID = xid.New().String()
	video.CreatedAt = now
	video.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO videos (id, owner_id, title, description, video_url,
			thumbnail_url, duration_ns, views, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ID,
		video.OwnerID,
		video.Title,
		video.Description,
		video.VideoURL,
		video.ThumbnailURL,
		int64(video.Duration),
		video.Views,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting video %q: %w", video.Title, err)
	}
	return nil
}

// GetByID retrieves a video by ID. Returns apperror.ErrNotFound when absent.
func (s *VideoStore) GetByID(ctx context.Context, id string) (*model.Video, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)

	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("video", id)
		}
		return nil, fmt.Errorf("sqlite: getting video %s: %w", id, err)
	}
	return v, nil
}

// ListByOwner returns a channel's videos, most recent first.
func (s *VideoStore) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Video, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE owner_id = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		ownerID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing videos for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning video row: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating videos: %w", err)
	}

	return videos, nil
}

// Delete removes a video. Watch-history rows referencing it are left in
// place; reads skip them.
func (s *VideoStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting video %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("video", id)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (*model.Video, error) {
	var v model.Video
	var durationNS int64
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.Title,
		&v.Description,
		&v.VideoURL,
		&v.ThumbnailURL,
		&durationNS,
		&v.Views,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Duration = time.Duration(durationNS)
	return &v, nil
}
