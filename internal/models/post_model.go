package models

import "time"

type Post struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"user_id"`
	Content       string     `db:"content" json:"content"`
	Platforms     []string   `db:"platforms" json:"platforms"`
	Status        string     `db:"status" json:"status"` // draft, scheduled, published, failed
	ScheduledTime *time.Time `db:"scheduled_time" json:"scheduled_time,omitempty"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// MediaItem is immutable once attached to a post.
type MediaItem struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	MediaType    string    `db:"media_type" json:"media_type"`
	FileURL      string    `db:"file_url" json:"file_url"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	AltText      string    `db:"alt_text" json:"alt_text"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeGIF   = "gif"
)
