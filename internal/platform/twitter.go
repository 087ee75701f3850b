package platform

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/oauth2"
)

const (
	defaultChunkSize  = 1 << 20
	maxStatusChecks   = 10
	defaultCheckAfter = time.Second
)

type twitterAdapter struct {
	cfg    config.PlatformConfig
	cred   Credential
	deps   Deps
	api    *apiClient
	upload *apiClient
}

// bearerClient wraps the shared HTTP client so every request carries the
// account's OAuth 2.0 user token.
func bearerClient(deps Deps, token string) *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, deps.httpClient())
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// NewTwitter builds the v2 API adapter. Media goes through the chunked
// INIT/APPEND/FINALIZE upload on the upload host.
func NewTwitter(cfg config.PlatformConfig, cred Credential, deps Deps) (Adapter, error) {
	hc := bearerClient(deps, cred.AccessToken)

	api, err := newAPIClient(hc, cfg.BaseURL, nil)
	if err != nil {
		return nil, err
	}

	uploadURL := cfg.UploadURL
	if uploadURL == "" {
		uploadURL = cfg.BaseURL
	}
	upload, err := newAPIClient(hc, uploadURL, nil)
	if err != nil {
		return nil, err
	}

	api.limiter = deps.Limiter
	upload.limiter = deps.Limiter

	if cfg.APIVersion == "" {
		cfg.APIVersion = "2"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}

	return &twitterAdapter{cfg: cfg, cred: cred, deps: deps, api: api, upload: upload}, nil
}

func (a *twitterAdapter) Platform() Platform {
	return Twitter
}

func (a *twitterAdapter) CreatePost(ctx context.Context, content string, media []models.MediaItem) (PublishResult, error) {
	if f := checkContent(content, len(media) > 0, a.cfg.MaxLength); f != nil {
		return PublishResult{Failure: f}, nil
	}
	if f := checkCredential(a.cred, a.deps); f != nil {
		return PublishResult{Failure: f}, nil
	}

	mediaIDs, skipped, f := uploadAll(ctx, media, a.cfg.TextOnlyFallback, a.uploadMedia)
	if f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}
	if strings.TrimSpace(content) == "" && len(mediaIDs) == 0 {
		return PublishResult{Failure: failuref(KindRejected, "nothing left to post after media failures"), SkippedMedia: skipped}, nil
	}

	payload := map[string]any{"text": content}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]any{"media_ids": mediaIDs}
	}

	resp, f := a.api.doJSON(ctx, http.MethodPost, a.api.endpoint(nil, a.cfg.APIVersion, "tweets"), payload)
	if f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if f := resp.decode(&created); f != nil {
		return PublishResult{Failure: f, SkippedMedia: skipped}, nil
	}
	if created.Data.ID == "" {
		return PublishResult{Failure: failuref(KindRejected, "response has no tweet id"), SkippedMedia: skipped}, nil
	}

	return PublishResult{PlatformPostID: created.Data.ID, SkippedMedia: skipped}, nil
}

type twitterMedia struct {
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
		Error          *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

func mediaCategory(item models.MediaItem) string {
	switch item.MediaType {
	case models.MediaTypeVideo:
		return "tweet_video"
	case models.MediaTypeGIF:
		return "tweet_gif"
	}
	return "tweet_image"
}

func (a *twitterAdapter) uploadMedia(ctx context.Context, item models.MediaItem) (string, *Failure) {
	m, f := fetchMedia(ctx, a.deps.Media, item, a.cfg.MaxMediaBytes)
	if f != nil {
		return "", f
	}

	target := a.upload.endpoint(nil, "1.1", "media", "upload.json")

	resp, f := a.upload.doForm(ctx, http.MethodPost, target, url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(m.Data))},
		"media_type":     {m.ContentType},
		"media_category": {mediaCategory(item)},
	})
	if f != nil {
		return "", f
	}
	var init twitterMedia
	if f := resp.decode(&init); f != nil {
		return "", f
	}
	if init.MediaIDString == "" {
		return "", failuref(KindRejected, "INIT returned no media id")
	}
	mediaID := init.MediaIDString

	for segment, offset := 0, 0; offset < len(m.Data); segment, offset = segment+1, offset+a.cfg.ChunkSize {
		end := min(offset+a.cfg.ChunkSize, len(m.Data))
		if f := a.appendChunk(ctx, target, mediaID, segment, m.Data[offset:end]); f != nil {
			return "", f
		}
	}

	resp, f = a.upload.doForm(ctx, http.MethodPost, target, url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	})
	if f != nil {
		return "", f
	}
	var final twitterMedia
	if f := resp.decode(&final); f != nil {
		return "", f
	}

	return mediaID, a.awaitProcessing(ctx, target, mediaID, final)
}

func (a *twitterAdapter) appendChunk(ctx context.Context, target, mediaID string, segment int, chunk []byte) *Failure {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("command", "APPEND")
	_ = w.WriteField("media_id", mediaID)
	_ = w.WriteField("segment_index", strconv.Itoa(segment))
	part, err := w.CreateFormFile("media", "chunk")
	if err != nil {
		return failuref(KindRejected, "build chunk: %v", err)
	}
	if _, err := part.Write(chunk); err != nil {
		return failuref(KindRejected, "build chunk: %v", err)
	}
	if err := w.Close(); err != nil {
		return failuref(KindRejected, "build chunk: %v", err)
	}

	_, f := a.upload.do(ctx, http.MethodPost, target, &buf, w.FormDataContentType())
	return f
}

// awaitProcessing polls STATUS until async processing of video and gif
// uploads finishes.
func (a *twitterAdapter) awaitProcessing(ctx context.Context, target, mediaID string, state twitterMedia) *Failure {
	for i := 0; i < maxStatusChecks; i++ {
		info := state.ProcessingInfo
		if info == nil || info.State == "succeeded" {
			return nil
		}
		if info.State == "failed" {
			detail := "processing failed"
			if info.Error != nil && info.Error.Message != "" {
				detail = info.Error.Message
			}
			return failuref(KindRejected, "%s", detail)
		}

		wait := defaultCheckAfter
		if info.CheckAfterSecs > 0 {
			wait = time.Duration(info.CheckAfterSecs) * time.Second
		}
		select {
		case <-ctx.Done():
			return networkFailure(ctx, ctx.Err())
		case <-time.After(wait):
		}

		q := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
		resp, f := a.upload.do(ctx, http.MethodGet, target+"?"+q.Encode(), nil, "")
		if f != nil {
			return f
		}
		state = twitterMedia{}
		if f := resp.decode(&state); f != nil {
			return f
		}
	}
	return failuref(KindTransient, "media %s still processing", mediaID)
}

func (a *twitterAdapter) DeletePost(ctx context.Context, platformPostID string) (DeleteResult, error) {
	if f := checkCredential(a.cred, a.deps); f != nil {
		return DeleteResult{Failure: f}, nil
	}

	resp, f := a.api.do(ctx, http.MethodDelete, a.api.endpoint(nil, a.cfg.APIVersion, "tweets", platformPostID), nil, "")
	if f != nil {
		return DeleteResult{Failure: f}, nil
	}

	var out struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
	}
	if f := resp.decode(&out); f != nil {
		return DeleteResult{Failure: f}, nil
	}
	if !out.Data.Deleted {
		return DeleteResult{Failure: failuref(KindRejected, "deletion not confirmed")}, nil
	}
	return DeleteResult{Deleted: true}, nil
}

func (a *twitterAdapter) GetAnalytics(ctx context.Context, platformPostID string) (AnalyticsResult, error) {
	if f := checkCredential(a.cred, a.deps); f != nil {
		return AnalyticsResult{Failure: f}, nil
	}

	q := url.Values{"tweet.fields": {"public_metrics"}}
	resp, f := a.api.do(ctx, http.MethodGet, a.api.endpoint(q, a.cfg.APIVersion, "tweets", platformPostID), nil, "")
	if f != nil {
		return AnalyticsResult{Failure: f}, nil
	}

	var out struct {
		Data struct {
			PublicMetrics *struct {
				LikeCount       int64 `json:"like_count"`
				ReplyCount      int64 `json:"reply_count"`
				RetweetCount    int64 `json:"retweet_count"`
				QuoteCount      int64 `json:"quote_count"`
				ImpressionCount int64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if f := resp.decode(&out); f != nil {
		return AnalyticsResult{Failure: f}, nil
	}
	pm := out.Data.PublicMetrics
	if pm == nil {
		return AnalyticsResult{}, nil
	}

	return AnalyticsResult{Metrics: &Metrics{
		Likes:       pm.LikeCount,
		Comments:    pm.ReplyCount,
		Shares:      pm.RetweetCount + pm.QuoteCount,
		Impressions: pm.ImpressionCount,
		Raw:         resp.Body,
	}}, nil
}

