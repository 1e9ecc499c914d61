package model

import "time"

// Video represents an uploaded video record. Only the fields the watch
// history and channel views need are modelled here; upload and transcoding
// live elsewhere.
type Video struct {
	ID           string        `json:"id"           db:"id"`
	OwnerID      string        `json:"-"            db:"owner_id"`
	Title        string        `json:"title"        db:"title"`
	Description  string        `json:"description"  db:"description"`
	VideoURL     string        `json:"videoFile"    db:"video_url"`
	ThumbnailURL string        `json:"thumbnail"    db:"thumbnail_url"`
	Duration     time.Duration `json:"duration"     db:"duration"`
	Views        int64         `json:"views"        db:"views"`
	CreatedAt    time.Time     `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt"    db:"updated_at"`
}

// VideoOwner is the reduced projection of a video's owner embedded in
// enriched views. It deliberately carries no identifiers or contact fields.
type VideoOwner struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// WatchedVideo is a watch-history entry: the resolved video with its owner
// collapsed to a scalar projection.
type WatchedVideo struct {
	Video
	Owner VideoOwner `json:"owner"`
}
