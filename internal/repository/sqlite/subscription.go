package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// SubscriptionStore implements repository.SubscriptionRepository on SQLite.
//
// Edges are directional: subscriber_id follows channel_id. No uniqueness is
// enforced on the pair; duplicate edges are a data-quality concern handled
// upstream, not rejected here.
type SubscriptionStore struct {
	conn *sql.DB
}

var _ repository.SubscriptionRepository = (*SubscriptionStore)(nil)

// Create inserts a subscription edge.
func (s *SubscriptionStore) Create(ctx context.Context, sub *model.Subscription) error {
	now := time.Now().UTC()
	sub.ID = xid.New().String()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: inserting subscription %s -> %s: %w",
			sub.SubscriberID, sub.ChannelID, err)
	}
	return nil
}

// Delete removes every edge for the pair. Deleting a non-existent edge is
// not an error.
func (s *SubscriptionStore) Delete(ctx context.Context, subscriberID, channelID string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = ? AND channel_id = ?`,
		subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting subscription %s -> %s: %w",
			subscriberID, channelID, err)
	}
	return nil
}

// Exists reports whether subscriber follows channel.
func (s *SubscriptionStore) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM subscriptions WHERE subscriber_id = ? AND channel_id = ? LIMIT 1`,
		subscriberID, channelID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription %s -> %s: %w",
			subscriberID, channelID, err)
	}
	return true, nil
}

// CountSubscribers counts edges pointing at channelID.
func (s *SubscriptionStore) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE channel_id = ?`, channelID)
}

// CountSubscribedTo counts edges originating from subscriberID.
func (s *SubscriptionStore) CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = ?`, subscriberID)
}

func (s *SubscriptionStore) count(ctx context.Context, query, id string) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting subscriptions for %s: %w", id, err)
	}
	return n, nil
}
