package platform

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

type linkedinAdapter struct {
	cfg    config.PlatformConfig
	cred   Credential
	deps   Deps
	client *apiClient
}

// NewLinkedIn builds the UGC posts adapter. Images are registered as assets
// first and then PUT to the upload URL LinkedIn hands back.
func NewLinkedIn(cfg config.PlatformConfig, cred Credential, deps Deps) (Adapter, error) {
	client, err := newAPIClient(bearerClient(deps, cred.AccessToken), cfg.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	client.headers.Set("X-Restli-Protocol-Version", "2.0.0")
	client.limiter = deps.Limiter
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v2"
	}
	return &linkedinAdapter{cfg: cfg, cred: cred, deps: deps, client: client}, nil
}

func (a *linkedinAdapter) Platform() Platform {
	return LinkedIn
}

// owner is the author URN. Organization URNs are passed through untouched.
func (a *linkedinAdapter) owner() string {
	if strings.HasPrefix(a.cred.AccountID, "urn:li:") {
		return a.cred.AccountID
	}
	return "urn:li:person:" + a.cred.AccountID
}

func (a *linkedinAdapter) CreatePost(ctx context.Context, content string, media []models.MediaItem) (PublishResult, error) {
	if f := checkContent(content, len(media) > 0, a.cfg.MaxLength); f != nil {
		return PublishResult{Failure: f}, nil
	}
	if f := checkCredential(a.cred, a.deps); f != nil {
		return PublishResult{Failure: f}, nil
	}

	assets, skipped, f := uploadAll(ctx, media, a.cfg.TextOnlyFallback, a.uploadImage)
	if f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}
	if strings.TrimSpace(content) == "" && len(assets) == 0 {
		return PublishResult{Failure: failuref(KindRejected, "nothing left to post after media failures"), SkippedMedia: skipped}, nil
	}

	category := "NONE"
	var shareMedia []map[string]any
	if len(assets) > 0 {
		category = "IMAGE"
		for _, asset := range assets {
			shareMedia = append(shareMedia, map[string]any{"status": "READY", "media": asset})
		}
	}

	shareContent := map[string]any{
		"shareCommentary":    map[string]string{"text": content},
		"shareMediaCategory": category,
	}
	if shareMedia != nil {
		shareContent["media"] = shareMedia
	}

	payload := map[string]any{
		"author":         a.owner(),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	resp, f := a.client.doJSON(ctx, http.MethodPost, a.client.endpoint(nil, a.cfg.APIVersion, "ugcPosts"), payload)
	if f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}

	id := resp.Header.Get("X-RestLi-Id")
	if id == "" && len(resp.Body) > 0 {
		var created struct {
			ID string `json:"id"`
		}
		if f := resp.decode(&created); f != nil {
			return PublishResult{Failure: f, SkippedMedia: skipped}, nil
		}
		id = created.ID
	}
	if id == "" {
		return PublishResult{Failure: failuref(KindRejected, "response has no post urn"), SkippedMedia: skipped}, nil
	}

	return PublishResult{PlatformPostID: id, SkippedMedia: skipped}, nil
}

func (a *linkedinAdapter) uploadImage(ctx context.Context, item models.MediaItem) (string, *Failure) {
	if item.MediaType == models.MediaTypeVideo {
		return "", failuref(KindRejected, "shares support images only")
	}

	m, f := fetchMedia(ctx, a.deps.Media, item, a.cfg.MaxMediaBytes)
	if f != nil {
		return "", f
	}

	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   a.owner(),
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	q := url.Values{"action": {"registerUpload"}}
	resp, f := a.client.doJSON(ctx, http.MethodPost, a.client.endpoint(q, a.cfg.APIVersion, "assets"), register)
	if f != nil {
		return "", f
	}

	var registered struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism struct {
				Upload struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if f := resp.decode(&registered); f != nil {
		return "", f
	}
	uploadURL := registered.Value.UploadMechanism.Upload.UploadURL
	if registered.Value.Asset == "" || uploadURL == "" {
		return "", failuref(KindRejected, "registerUpload returned no asset")
	}

	if _, f := a.client.do(ctx, http.MethodPut, uploadURL, bytes.NewReader(m.Data), m.ContentType); f != nil {
		return "", f
	}

	return registered.Value.Asset, nil
}

// DeletePost treats only 204 No Content as confirmation.
func (a *linkedinAdapter) DeletePost(ctx context.Context, platformPostID string) (DeleteResult, error) {
	if f := checkCredential(a.cred, a.deps); f != nil {
		return DeleteResult{Failure: f}, nil
	}

	resp, f := a.client.do(ctx, http.MethodDelete, a.client.endpoint(nil, a.cfg.APIVersion, "ugcPosts", platformPostID), nil, "")
	if f != nil {
		return DeleteResult{Failure: f}, nil
	}
	if resp.Status != http.StatusNoContent {
		return DeleteResult{Failure: failuref(KindRejected, "deletion not confirmed (status %d)", resp.Status)}, nil
	}
	return DeleteResult{Deleted: true}, nil
}

func (a *linkedinAdapter) GetAnalytics(ctx context.Context, platformPostID string) (AnalyticsResult, error) {
	if f := checkCredential(a.cred, a.deps); f != nil {
		return AnalyticsResult{Failure: f}, nil
	}

	resp, f := a.client.do(ctx, http.MethodGet, a.client.endpoint(nil, a.cfg.APIVersion, "socialActions", platformPostID), nil, "")
	if f != nil {
		return AnalyticsResult{Failure: f}, nil
	}

	var out struct {
		LikesSummary *struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary *struct {
			AggregatedTotalComments int64 `json:"aggregatedTotalComments"`
		} `json:"commentsSummary"`
	}
	if f := resp.decode(&out); f != nil {
		return AnalyticsResult{Failure: f}, nil
	}
	if out.LikesSummary == nil && out.CommentsSummary == nil {
		return AnalyticsResult{}, nil
	}

	m := &Metrics{Raw: resp.Body}
	if out.LikesSummary != nil {
		m.Likes = out.LikesSummary.TotalLikes
	}
	if out.CommentsSummary != nil {
		m.Comments = out.CommentsSummary.AggregatedTotalComments
	}
	return AnalyticsResult{Metrics: m}, nil
}
