package models

import (
	"encoding/json"
	"time"
)

// Publication is the latest dispatch of one post to one account.
type Publication struct {
	ID             int64      `db:"id" json:"id"`
	PostID         int64      `db:"post_id" json:"post_id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	Platform       string     `db:"platform" json:"platform"`
	PlatformPostID string     `db:"platform_post_id" json:"platform_post_id,omitempty"`
	IsSuccess      bool       `db:"is_success" json:"is_success"`
	ErrorKind      string     `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	AttemptedAt    time.Time  `db:"attempted_at" json:"attempted_at"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Live reports whether the publication succeeded and has not been taken down.
func (p *Publication) Live() bool {
	return p.IsSuccess && p.PlatformPostID != "" && p.DeletedAt == nil
}

type PostAnalytics struct {
	PublicationID int64           `db:"publication_id" json:"publication_id"`
	Platform      string          `db:"platform" json:"platform"`
	Likes         int64           `db:"likes" json:"likes"`
	Comments      int64           `db:"comments" json:"comments"`
	Shares        int64           `db:"shares" json:"shares"`
	Impressions   int64           `db:"impressions" json:"impressions"`
	Reach         int64           `db:"reach" json:"reach"`
	Clicks        int64           `db:"clicks" json:"clicks"`
	RawData       json.RawMessage `db:"raw_data" json:"raw_data,omitempty"`
	LastUpdated   time.Time       `db:"last_updated" json:"last_updated"`
}
