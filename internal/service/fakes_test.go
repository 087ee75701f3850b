package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
)

type fakeResolver struct {
	accounts map[platform.Platform]*models.SocialAccount
	err      error
}

func (r *fakeResolver) ResolveActive(ctx context.Context, userID int64, p platform.Platform) (*models.SocialAccount, error) {
	if r.err != nil {
		return nil, r.err
	}
	sa, ok := r.accounts[p]
	if !ok {
		return nil, ErrNoActiveAccount
	}
	return sa, nil
}

func (r *fakeResolver) ResolveByID(ctx context.Context, accountID int64) (*models.SocialAccount, error) {
	for _, sa := range r.accounts {
		if sa.ID == accountID {
			return sa, nil
		}
	}
	return nil, ErrAccountNotFound
}

type fakeAdapter struct {
	p platform.Platform

	mu       sync.Mutex
	creates  int
	deletes  int
	analytic int

	create    func() (platform.PublishResult, error)
	delete    func() (platform.DeleteResult, error)
	analytics func() (platform.AnalyticsResult, error)
}

func (a *fakeAdapter) Platform() platform.Platform { return a.p }

func (a *fakeAdapter) CreatePost(ctx context.Context, content string, media []models.MediaItem) (platform.PublishResult, error) {
	a.mu.Lock()
	a.creates++
	a.mu.Unlock()
	return a.create()
}

func (a *fakeAdapter) DeletePost(ctx context.Context, id string) (platform.DeleteResult, error) {
	a.mu.Lock()
	a.deletes++
	a.mu.Unlock()
	return a.delete()
}

func (a *fakeAdapter) GetAnalytics(ctx context.Context, id string) (platform.AnalyticsResult, error) {
	a.mu.Lock()
	a.analytic++
	a.mu.Unlock()
	return a.analytics()
}

func (a *fakeAdapter) calls() (int, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creates, a.deletes, a.analytic
}

type fakeAdapters struct {
	adapters map[platform.Platform]*fakeAdapter
	buildErr error
}

func (f *fakeAdapters) Supports(p platform.Platform) bool {
	_, ok := f.adapters[p]
	return ok
}

func (f *fakeAdapters) Adapter(p platform.Platform, cred platform.Credential) (platform.Adapter, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	a, ok := f.adapters[p]
	if !ok {
		return nil, platform.ErrUnsupported
	}
	return a, nil
}

type pubKey struct{ post, account int64 }

type fakePublications struct {
	mu     sync.Mutex
	nextID int64
	rows   map[pubKey]*models.Publication
	err    error
}

func newFakePublications() *fakePublications {
	return &fakePublications{rows: make(map[pubKey]*models.Publication)}
}

func (f *fakePublications) Upsert(ctx context.Context, p *models.Publication) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	key := pubKey{p.PostID, p.AccountID}
	row := *p
	if prev, ok := f.rows[key]; ok {
		row.ID = prev.ID
	} else {
		f.nextID++
		row.ID = f.nextID
	}
	row.DeletedAt = nil
	f.rows[key] = &row
	return row.ID, nil
}

func (f *fakePublications) ListLiveByPostID(ctx context.Context, postID int64) ([]*models.Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Publication
	for key, row := range f.rows {
		if key.post == postID && row.Live() {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePublications) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			row.DeletedAt = &at
			return nil
		}
	}
	return errors.New("no such publication")
}

func (f *fakePublications) all(postID int64) []*models.Publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Publication
	for key, row := range f.rows {
		if key.post == postID {
			out = append(out, row)
		}
	}
	return out
}

type fakeAnalytics struct {
	mu   sync.Mutex
	rows map[int64]models.PostAnalytics
}

func newFakeAnalytics() *fakeAnalytics {
	return &fakeAnalytics{rows: make(map[int64]models.PostAnalytics)}
}

func (f *fakeAnalytics) Upsert(ctx context.Context, a *models.PostAnalytics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[a.PublicationID] = *a
	return nil
}

type publishState struct {
	status      string
	publishedAt *time.Time
}

type fakePostState struct {
	mu      sync.Mutex
	updates []publishState
	// published mirrors COALESCE(published_at, $2).
	published *time.Time
}

func (f *fakePostState) UpdatePublishState(ctx context.Context, postID int64, status string, publishedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, publishState{status: status, publishedAt: publishedAt})
	if f.published == nil {
		f.published = publishedAt
	}
	return nil
}

func (f *fakePostState) last() publishState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

func succeed(id string) func() (platform.PublishResult, error) {
	return func() (platform.PublishResult, error) {
		return platform.PublishResult{PlatformPostID: id}, nil
	}
}

func fail(kind platform.ErrorKind, detail string) func() (platform.PublishResult, error) {
	return func() (platform.PublishResult, error) {
		return platform.PublishResult{Failure: &platform.Failure{Kind: kind, Detail: detail}}, nil
	}
}
