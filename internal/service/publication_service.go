package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
)

var (
	ErrNoActiveAccount = errors.New("no active account")
	ErrAccountNotFound = errors.New("social account not found")
	ErrPostNotFound    = errors.New("post not found")
)

// AccountResolver hands out accounts with decrypted tokens.
type AccountResolver interface {
	// ResolveActive returns ErrNoActiveAccount when the user has no active
	// account on the platform.
	ResolveActive(ctx context.Context, userID int64, p platform.Platform) (*models.SocialAccount, error)
	ResolveByID(ctx context.Context, accountID int64) (*models.SocialAccount, error)
}

// AdapterSource is satisfied by *platform.Registry.
type AdapterSource interface {
	Supports(p platform.Platform) bool
	Adapter(p platform.Platform, cred platform.Credential) (platform.Adapter, error)
}

type PublicationStore interface {
	Upsert(ctx context.Context, p *models.Publication) (int64, error)
	ListLiveByPostID(ctx context.Context, postID int64) ([]*models.Publication, error)
	MarkDeleted(ctx context.Context, id int64, at time.Time) error
}

type AnalyticsStore interface {
	Upsert(ctx context.Context, a *models.PostAnalytics) error
}

type PostStateStore interface {
	UpdatePublishState(ctx context.Context, postID int64, status string, publishedAt *time.Time) error
}

// PublicationOutcome is the result of dispatching a post to one platform.
type PublicationOutcome struct {
	Platform       string                  `json:"platform"`
	Success        bool                    `json:"success"`
	PlatformPostID string                  `json:"platform_post_id,omitempty"`
	ErrorKind      platform.ErrorKind      `json:"error_kind,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Detail         string                  `json:"detail,omitempty"`
	SkippedMedia   []platform.MediaFailure `json:"skipped_media,omitempty"`
}

// Retryable reports whether the queue may try this platform again.
func (o PublicationOutcome) Retryable() bool {
	return !o.Success && o.ErrorKind.Retryable()
}

func failedOutcome(name string, f *platform.Failure) PublicationOutcome {
	return PublicationOutcome{
		Platform:  name,
		ErrorKind: f.Kind,
		Error:     f.Kind.Message(),
		Detail:    f.Detail,
	}
}

type PublicationService interface {
	Publish(ctx context.Context, post *models.Post, media []models.MediaItem) (map[string]PublicationOutcome, error)
	PublishTo(ctx context.Context, post *models.Post, media []models.MediaItem, platforms []string) (map[string]PublicationOutcome, error)
	Unpublish(ctx context.Context, post *models.Post) (map[string]bool, error)
	SyncAnalytics(ctx context.Context, post *models.Post) (map[string]models.PostAnalytics, error)
}

type PublicationOptions struct {
	// DispatchTimeout bounds every single adapter call.
	DispatchTimeout time.Duration
	Concurrency     int
	Now             func() time.Time
}

type publicationService struct {
	accounts  AccountResolver
	adapters  AdapterSource
	pubs      PublicationStore
	analytics AnalyticsStore
	posts     PostStateStore
	opts      PublicationOptions
}

func NewPublicationService(
	opts PublicationOptions,
	accounts AccountResolver,
	adapters AdapterSource,
	pubs PublicationStore,
	analytics AnalyticsStore,
	posts PostStateStore) PublicationService {
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 60 * time.Second
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &publicationService{
		accounts:  accounts,
		adapters:  adapters,
		pubs:      pubs,
		analytics: analytics,
		posts:     posts,
		opts:      opts,
	}
}

// normalize maps names onto platform identifiers and drops duplicates,
// keeping the first occurrence. Unknown names are kept lowercased so they
// still get an outcome.
func normalize(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if p, ok := platform.Parse(name); ok {
			key = p.String()
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// fanOut runs fn for 0..n-1 with at most limit calls in flight and returns
// once all of them finished.
func fanOut(n, limit int, fn func(i int)) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, limit)

	for i := 0; i < n; i++ {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			fn(i)
		}(i)
	}

	wg.Wait()
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func credential(sa *models.SocialAccount) platform.Credential {
	return platform.Credential{
		AccountID:    sa.AccountID,
		AccessToken:  sa.AccessToken,
		RefreshToken: sa.RefreshToken,
		ExpiresAt:    sa.TokenExpiresAt,
	}
}

func (s *publicationService) Publish(ctx context.Context, post *models.Post, media []models.MediaItem) (map[string]PublicationOutcome, error) {
	return s.PublishTo(ctx, post, media, post.Platforms)
}

// PublishTo dispatches the post to the given platforms only. The aggregated
// status also counts live publications on the post's other platforms.
func (s *publicationService) PublishTo(ctx context.Context, post *models.Post, media []models.MediaItem, platforms []string) (map[string]PublicationOutcome, error) {
	targets := normalize(platforms)

	outcomes := make([]PublicationOutcome, len(targets))
	errs := make([]error, len(targets))
	fanOut(len(targets), s.opts.Concurrency, func(i int) {
		outcomes[i], errs[i] = s.dispatch(ctx, post, media, targets[i])
	})
	if err := firstError(errs); err != nil {
		return nil, err
	}

	result := make(map[string]PublicationOutcome, len(outcomes))
	published := false
	for _, o := range outcomes {
		result[o.Platform] = o
		published = published || o.Success
	}

	if !published {
		var err error
		if published, err = s.liveElsewhere(ctx, post, targets); err != nil {
			return nil, err
		}
	}

	status := models.PostStatusFailed
	var publishedAt *time.Time
	if published {
		status = models.PostStatusPublished
		if post.PublishedAt == nil {
			now := s.opts.Now()
			publishedAt = &now
		}
	}
	if err := s.posts.UpdatePublishState(ctx, post.ID, status, publishedAt); err != nil {
		return nil, err
	}
	post.Status = status
	if publishedAt != nil {
		post.PublishedAt = publishedAt
	}

	slog.Info("post dispatched", "post_id", post.ID, "status", status, "platforms", len(targets))
	return result, nil
}

// liveElsewhere reports whether the post is still live on one of its
// platforms that was not part of this dispatch.
func (s *publicationService) liveElsewhere(ctx context.Context, post *models.Post, targets []string) (bool, error) {
	dispatched := make(map[string]bool, len(targets))
	for _, t := range targets {
		dispatched[t] = true
	}
	others := make(map[string]bool)
	for _, name := range normalize(post.Platforms) {
		if !dispatched[name] {
			others[name] = true
		}
	}
	if len(others) == 0 {
		return false, nil
	}

	live, err := s.pubs.ListLiveByPostID(ctx, post.ID)
	if err != nil {
		return false, err
	}
	for _, pub := range live {
		if others[pub.Platform] && pub.Live() {
			return true, nil
		}
	}
	return false, nil
}

func (s *publicationService) dispatch(ctx context.Context, post *models.Post, media []models.MediaItem, name string) (PublicationOutcome, error) {
	p, ok := platform.Parse(name)
	if !ok {
		return failedOutcome(name, &platform.Failure{Kind: platform.KindUnsupported}), nil
	}

	account, err := s.accounts.ResolveActive(ctx, post.UserID, p)
	if errors.Is(err, ErrNoActiveAccount) {
		return failedOutcome(name, &platform.Failure{Kind: platform.KindNoAccount}), nil
	}
	if err != nil {
		return PublicationOutcome{}, err
	}

	adapter, unsupported, err := s.adapter(p, account)
	if err != nil {
		return PublicationOutcome{}, err
	}
	if unsupported {
		return failedOutcome(name, &platform.Failure{Kind: platform.KindUnsupported}), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	res, err := adapter.CreatePost(callCtx, post.Content, media)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		return PublicationOutcome{}, err
	}

	if res.Failure == nil && res.PlatformPostID == "" {
		res.Failure = &platform.Failure{Kind: platform.KindRejected, Detail: "no post id returned"}
	}
	if res.Failure != nil && timedOut {
		res.Failure = &platform.Failure{Kind: platform.KindTransient, Detail: "timed out"}
	}

	now := s.opts.Now()
	pub := models.Publication{
		PostID:      post.ID,
		AccountID:   account.ID,
		Platform:    name,
		AttemptedAt: now,
	}

	var outcome PublicationOutcome
	if res.Failure != nil {
		outcome = failedOutcome(name, res.Failure)
		pub.ErrorKind = string(res.Failure.Kind)
		pub.ErrorMessage = res.Failure.Error()
		slog.Warn("publish failed", "post_id", post.ID, "platform", name, "kind", res.Failure.Kind, "detail", res.Failure.Detail)
	} else {
		outcome = PublicationOutcome{Platform: name, Success: true, PlatformPostID: res.PlatformPostID}
		pub.IsSuccess = true
		pub.PlatformPostID = res.PlatformPostID
		pub.PublishedAt = &now
	}
	outcome.SkippedMedia = res.SkippedMedia

	if _, err := s.pubs.Upsert(ctx, &pub); err != nil {
		return PublicationOutcome{}, err
	}
	return outcome, nil
}

// adapter builds the adapter for account. unsupported is true when no
// adapter is registered for p.
func (s *publicationService) adapter(p platform.Platform, account *models.SocialAccount) (platform.Adapter, bool, error) {
	if !s.adapters.Supports(p) {
		return nil, true, nil
	}
	adapter, err := s.adapters.Adapter(p, credential(account))
	if errors.Is(err, platform.ErrUnsupported) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return adapter, false, nil
}

// liveAdapter prepares the adapter for an existing publication. A nil
// adapter without error means the publication cannot be reached any more.
func (s *publicationService) liveAdapter(ctx context.Context, pub *models.Publication) (platform.Adapter, error) {
	p, ok := platform.Parse(pub.Platform)
	if !ok {
		return nil, nil
	}
	account, err := s.accounts.ResolveByID(ctx, pub.AccountID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	adapter, _, err := s.adapter(p, account)
	return adapter, err
}

// Unpublish deletes every live publication of the post. Platforms without
// one are left out of the result. A post that is already gone on the
// platform counts as deleted.
func (s *publicationService) Unpublish(ctx context.Context, post *models.Post) (map[string]bool, error) {
	live, err := s.pubs.ListLiveByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	deleted := make([]bool, len(live))
	errs := make([]error, len(live))
	fanOut(len(live), s.opts.Concurrency, func(i int) {
		deleted[i], errs[i] = s.unpublishOne(ctx, post, live[i])
	})
	if err := firstError(errs); err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(live))
	for i, pub := range live {
		if prev, ok := result[pub.Platform]; ok {
			result[pub.Platform] = prev && deleted[i]
			continue
		}
		result[pub.Platform] = deleted[i]
	}
	return result, nil
}

func (s *publicationService) unpublishOne(ctx context.Context, post *models.Post, pub *models.Publication) (bool, error) {
	adapter, err := s.liveAdapter(ctx, pub)
	if err != nil || adapter == nil {
		return false, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	res, err := adapter.DeletePost(callCtx, pub.PlatformPostID)
	cancel()
	if err != nil {
		return false, err
	}

	ok := res.Deleted
	if res.Failure != nil {
		if res.Failure.Kind == platform.KindNotFound {
			ok = true
		} else {
			slog.Warn("unpublish failed", "post_id", post.ID, "platform", pub.Platform, "kind", res.Failure.Kind, "detail", res.Failure.Detail)
		}
	}
	if !ok {
		return false, nil
	}

	if err := s.pubs.MarkDeleted(ctx, pub.ID, s.opts.Now()); err != nil {
		return false, err
	}
	return true, nil
}

// SyncAnalytics refreshes the snapshot of every live publication and returns
// the snapshots that were actually updated.
func (s *publicationService) SyncAnalytics(ctx context.Context, post *models.Post) (map[string]models.PostAnalytics, error) {
	live, err := s.pubs.ListLiveByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*models.PostAnalytics, len(live))
	errs := make([]error, len(live))
	fanOut(len(live), s.opts.Concurrency, func(i int) {
		snapshots[i], errs[i] = s.syncOne(ctx, post, live[i])
	})
	if err := firstError(errs); err != nil {
		return nil, err
	}

	result := make(map[string]models.PostAnalytics)
	for _, snap := range snapshots {
		if snap != nil {
			result[snap.Platform] = *snap
		}
	}
	return result, nil
}

func (s *publicationService) syncOne(ctx context.Context, post *models.Post, pub *models.Publication) (*models.PostAnalytics, error) {
	adapter, err := s.liveAdapter(ctx, pub)
	if err != nil || adapter == nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	res, err := adapter.GetAnalytics(callCtx, pub.PlatformPostID)
	cancel()
	if err != nil {
		return nil, err
	}
	if res.Failure != nil {
		slog.Warn("analytics sync failed", "post_id", post.ID, "platform", pub.Platform, "kind", res.Failure.Kind, "detail", res.Failure.Detail)
		return nil, nil
	}
	if res.Metrics == nil {
		return nil, nil
	}

	m := res.Metrics
	snap := &models.PostAnalytics{
		PublicationID: pub.ID,
		Platform:      pub.Platform,
		Likes:         m.Likes,
		Comments:      m.Comments,
		Shares:        m.Shares,
		Impressions:   m.Impressions,
		Reach:         m.Reach,
		Clicks:        m.Clicks,
		RawData:       m.Raw,
		LastUpdated:   s.opts.Now(),
	}
	if err := s.analytics.Upsert(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
