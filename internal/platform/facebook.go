package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

// graphError is the error envelope of the Graph API.
type graphError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// classifyGraph refines the status mapping with Graph API error codes.
func classifyGraph(status int, body []byte) *Failure {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err != nil || ge.Error.Code == 0 {
		return classifyStatus(status, body)
	}

	detail := fmt.Sprintf("%s (code %d)", ge.Error.Message, ge.Error.Code)
	switch {
	case ge.Error.Code == 190 || ge.Error.Code == 102:
		return &Failure{Kind: KindAuthExpired, Detail: detail}
	case ge.Error.Code == 4 || ge.Error.Code == 17 || ge.Error.Code == 32 || ge.Error.Code == 613:
		return &Failure{Kind: KindRateLimited, Detail: detail}
	case ge.Error.Code == 100 && ge.Error.ErrorSubcode == 33:
		return &Failure{Kind: KindNotFound, Detail: detail}
	case ge.Error.IsTransient || ge.Error.Code == 1 || ge.Error.Code == 2:
		return &Failure{Kind: KindTransient, Detail: detail}
	}

	f := classifyStatus(status, body)
	f.Detail = detail
	return f
}

type facebookAdapter struct {
	cfg    config.PlatformConfig
	cred   Credential
	deps   Deps
	client *apiClient
}

// NewFacebook builds the Graph API adapter for a page. Photos are uploaded
// unpublished by URL and then attached to a feed post.
func NewFacebook(cfg config.PlatformConfig, cred Credential, deps Deps) (Adapter, error) {
	client, err := newAPIClient(deps.httpClient(), cfg.BaseURL, classifyGraph)
	if err != nil {
		return nil, err
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("facebook api_version is required")
	}
	client.limiter = deps.Limiter
	return &facebookAdapter{cfg: cfg, cred: cred, deps: deps, client: client}, nil
}

func (a *facebookAdapter) Platform() Platform {
	return Facebook
}

func (a *facebookAdapter) CreatePost(ctx context.Context, content string, media []models.MediaItem) (PublishResult, error) {
	if f := checkContent(content, len(media) > 0, a.cfg.MaxLength); f != nil {
		return PublishResult{Failure: f}, nil
	}
	if f := checkCredential(a.cred, a.deps); f != nil {
		return PublishResult{Failure: f}, nil
	}

	photoIDs, skipped, f := uploadAll(ctx, media, a.cfg.TextOnlyFallback, a.uploadPhoto)
	if f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}
	if strings.TrimSpace(content) == "" && len(photoIDs) == 0 {
		return PublishResult{Failure: failuref(KindRejected, "nothing left to post after media failures"), SkippedMedia: skipped}, nil
	}

	form := url.Values{}
	form.Set("message", content)
	form.Set("access_token", a.cred.AccessToken)
	for i, id := range photoIDs {
		attached, _ := json.Marshal(map[string]string{"media_fbid": id})
		form.Set(fmt.Sprintf("attached_media[%d]", i), string(attached))
	}

	resp, f := a.client.doForm(ctx, http.MethodPost, a.client.endpoint(nil, a.cfg.APIVersion, a.cred.AccountID, "feed"), form)
	if f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}

	var created struct {
		ID string `json:"id"`
	}
	if f := resp.decode(&created); f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}
	if created.ID == "" {
		return PublishResult{Failure: failuref(KindRejected, "response has no post id"), SkippedMedia: skipped}, nil
	}

	return PublishResult{PlatformPostID: created.ID, SkippedMedia: skipped}, nil
}

func (a *facebookAdapter) uploadPhoto(ctx context.Context, item models.MediaItem) (string, *Failure) {
	if item.MediaType == models.MediaTypeVideo {
		return "", failuref(KindRejected, "feed attachments support photos only")
	}

	form := url.Values{}
	form.Set("url", item.FileURL)
	form.Set("published", "false")
	form.Set("access_token", a.cred.AccessToken)
	if item.AltText != "" {
		form.Set("alt_text_custom", item.AltText)
	}

	resp, f := a.client.doForm(ctx, http.MethodPost, a.client.endpoint(nil, a.cfg.APIVersion, a.cred.AccountID, "photos"), form)
	if f != nil {
		return "", f
	}

	var photo struct {
		ID string `json:"id"`
	}
	if f := resp.decode(&photo); f != nil {
		return "", f
	}
	if photo.ID == "" {
		return "", failuref(KindRejected, "photo upload returned no id")
	}
	return photo.ID, nil
}

func (a *facebookAdapter) DeletePost(ctx context.Context, platformPostID string) (DeleteResult, error) {
	if f := checkCredential(a.cred, a.deps); f != nil {
		return DeleteResult{Failure: f}, nil
	}

	q := url.Values{"access_token": {a.cred.AccessToken}}
	resp, f := a.client.do(ctx, http.MethodDelete, a.client.endpoint(q, a.cfg.APIVersion, platformPostID), nil, "")
	if f != nil {
		return DeleteResult{Failure: f}, nil
	}

	var out struct {
		Success bool `json:"success"`
	}
	if f := resp.decode(&out); f != nil {
		return DeleteResult{Failure: f}, nil
	}
	if !out.Success {
		return DeleteResult{Failure: failuref(KindRejected, "deletion not confirmed")}, nil
	}
	return DeleteResult{Deleted: true}, nil
}

func (a *facebookAdapter) GetAnalytics(ctx context.Context, platformPostID string) (AnalyticsResult, error) {
	if f := checkCredential(a.cred, a.deps); f != nil {
		return AnalyticsResult{Failure: f}, nil
	}

	q := url.Values{
		"fields":       {"reactions.summary(true),comments.summary(true),shares"},
		"access_token": {a.cred.AccessToken},
	}
	resp, f := a.client.do(ctx, http.MethodGet, a.client.endpoint(q, a.cfg.APIVersion, platformPostID), nil, "")
	if f != nil {
		return AnalyticsResult{Failure: f}, nil
	}

	var out struct {
		Reactions *struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"reactions"`
		Comments *struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares *struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}
	if f := resp.decode(&out); f != nil {
		return AnalyticsResult{Failure: f}, nil
	}
	if out.Reactions == nil && out.Comments == nil && out.Shares == nil {
		return AnalyticsResult{}, nil
	}

	m := &Metrics{Raw: json.RawMessage(resp.Body)}
	if out.Reactions != nil {
		m.Likes = out.Reactions.Summary.TotalCount
	}
	if out.Comments != nil {
		m.Comments = out.Comments.Summary.TotalCount
	}
	if out.Shares != nil {
		m.Shares = out.Shares.Count
	}
	return AnalyticsResult{Metrics: m}, nil
}
