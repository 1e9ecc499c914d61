package model

import "time"

// Subscription is a directional edge: SubscriberID follows ChannelID.
// Both ends reference users. Duplicate edges are tolerated by the store;
// aggregate counts treat each row as one edge.
type Subscription struct {
	ID           string    `json:"id"           db:"id"`
	SubscriberID string    `json:"subscriber"   db:"subscriber_id"`
	ChannelID    string    `json:"channel"      db:"channel_id"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}
