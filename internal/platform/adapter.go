package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/time/rate"
)

// Credential is the decrypted token set of the account an adapter is bound to.
type Credential struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

func (c Credential) expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// MediaFailure records a media item that was skipped during upload.
type MediaFailure struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Detail string `json:"detail"`
}

type PublishResult struct {
	PlatformPostID string
	Failure        *Failure
	SkippedMedia   []MediaFailure
}

func (r PublishResult) OK() bool {
	return r.Failure == nil && r.PlatformPostID != ""
}

// DeleteResult is Deleted only when the platform explicitly confirmed removal.
type DeleteResult struct {
	Deleted bool
	Failure *Failure
}

type Metrics struct {
	Likes       int64
	Comments    int64
	Shares      int64
	Impressions int64
	Reach       int64
	Clicks      int64
	Raw         json.RawMessage
}

// AnalyticsResult carries nil Metrics when the platform had nothing to report,
// which is not the same as zero engagement.
type AnalyticsResult struct {
	Metrics *Metrics
	Failure *Failure
}

// Adapter is bound to one account. Ordinary remote failures come back inside
// the result; the error return is reserved for local faults such as a broken
// adapter configuration.
type Adapter interface {
	Platform() Platform
	CreatePost(ctx context.Context, content string, media []models.MediaItem) (PublishResult, error)
	DeletePost(ctx context.Context, platformPostID string) (DeleteResult, error)
	GetAnalytics(ctx context.Context, platformPostID string) (AnalyticsResult, error)
}

// Media is a fetched media payload ready for binary upload.
type Media struct {
	Data        []byte
	ContentType string
}

// MediaFetcher loads the bytes behind a media item for platforms that need a
// binary upload.
type MediaFetcher interface {
	Fetch(ctx context.Context, item models.MediaItem) (*Media, error)
}

// Deps are the shared collaborators handed to every adapter constructor.
type Deps struct {
	HTTPClient *http.Client
	Media      MediaFetcher
	Now        func() time.Time
	// Limiter is set by the registry from the platform's rate limit.
	Limiter *rate.Limiter
}

func (d Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
