package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPosts map[int64]*models.Post

func (s stubPosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s[id], nil
}

type stubMedia struct{}

func (stubMedia) ListByPostID(ctx context.Context, postID int64) ([]models.MediaItem, error) {
	return nil, nil
}

type stubPublisher struct {
	outcomes  map[string]service.PublicationOutcome
	err       error
	targets   []string
	published int
	synced    int
}

func (p *stubPublisher) Publish(ctx context.Context, post *models.Post, media []models.MediaItem) (map[string]service.PublicationOutcome, error) {
	p.published++
	p.targets = nil
	return p.outcomes, p.err
}

func (p *stubPublisher) PublishTo(ctx context.Context, post *models.Post, media []models.MediaItem, platforms []string) (map[string]service.PublicationOutcome, error) {
	p.published++
	p.targets = platforms
	return p.outcomes, p.err
}

func (p *stubPublisher) Unpublish(ctx context.Context, post *models.Post) (map[string]bool, error) {
	return nil, nil
}

func (p *stubPublisher) SyncAnalytics(ctx context.Context, post *models.Post) (map[string]models.PostAnalytics, error) {
	p.synced++
	return map[string]models.PostAnalytics{}, p.err
}

type retryCall struct {
	postID    int64
	platforms []string
	attempt   int
	delay     time.Duration
}

type recordingRetry struct {
	calls []retryCall
}

func (r *recordingRetry) EnqueueRetry(ctx context.Context, postID int64, platforms []string, attempt int, delay time.Duration) error {
	r.calls = append(r.calls, retryCall{postID, platforms, attempt, delay})
	return nil
}

func publishTask(t *testing.T, payload PublishPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypePublishPost, data)
}

func newTestWorker(posts stubPosts, pub *stubPublisher) (*Worker, *recordingRetry) {
	retry := &recordingRetry{}
	w := NewWorker(posts, stubMedia{}, pub, retry, RetryPolicy{MaxRetries: 2, Backoff: time.Minute})
	return w, retry
}

func TestHandlePublishTask(t *testing.T) {
	ctx := context.Background()
	scheduled := func() stubPosts {
		return stubPosts{7: {ID: 7, Status: models.PostStatusScheduled, Platforms: []string{"facebook", "twitter"}}}
	}

	t.Run("retries transient platforms only", func(t *testing.T) {
		pub := &stubPublisher{outcomes: map[string]service.PublicationOutcome{
			"facebook": {Platform: "facebook", Success: true, PlatformPostID: "1"},
			"twitter":  {Platform: "twitter", ErrorKind: platform.KindRateLimited},
		}}
		w, retry := newTestWorker(scheduled(), pub)

		require.NoError(t, w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 7})))

		assert.Equal(t, 1, pub.published)
		require.Len(t, retry.calls, 1)
		assert.Equal(t, retryCall{postID: 7, platforms: []string{"twitter"}, attempt: 1, delay: time.Minute}, retry.calls[0])
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		pub := &stubPublisher{outcomes: map[string]service.PublicationOutcome{
			"twitter": {Platform: "twitter", ErrorKind: platform.KindRejected},
		}}
		w, retry := newTestWorker(scheduled(), pub)

		require.NoError(t, w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 7})))
		assert.Empty(t, retry.calls)
	})

	t.Run("retry targets given platforms with growing backoff", func(t *testing.T) {
		posts := scheduled()
		posts[7].Status = models.PostStatusPublished
		pub := &stubPublisher{outcomes: map[string]service.PublicationOutcome{
			"twitter": {Platform: "twitter", ErrorKind: platform.KindTransient},
		}}
		w, retry := newTestWorker(posts, pub)

		require.NoError(t, w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 7, Platforms: []string{"twitter"}, Attempt: 1})))

		assert.Equal(t, []string{"twitter"}, pub.targets)
		require.Len(t, retry.calls, 1)
		assert.Equal(t, 2, retry.calls[0].attempt)
		assert.Equal(t, 2*time.Minute, retry.calls[0].delay)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		pub := &stubPublisher{outcomes: map[string]service.PublicationOutcome{
			"twitter": {Platform: "twitter", ErrorKind: platform.KindTransient},
		}}
		w, retry := newTestWorker(scheduled(), pub)

		require.NoError(t, w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 7, Platforms: []string{"twitter"}, Attempt: 2})))
		assert.Empty(t, retry.calls)
	})

	t.Run("already handled post is skipped", func(t *testing.T) {
		posts := scheduled()
		posts[7].Status = models.PostStatusPublished
		pub := &stubPublisher{}
		w, _ := newTestWorker(posts, pub)

		require.NoError(t, w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 7})))
		assert.Zero(t, pub.published)
	})

	t.Run("missing post is not retried", func(t *testing.T) {
		pub := &stubPublisher{}
		w, _ := newTestWorker(stubPosts{}, pub)

		err := w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 9}))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.ErrorIs(t, err, service.ErrPostNotFound)
	})

	t.Run("bad payload is not retried", func(t *testing.T) {
		w, _ := newTestWorker(scheduled(), &stubPublisher{})

		err := w.HandlePublishTask(ctx, asynq.NewTask(TaskTypePublishPost, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("local failure goes back to asynq", func(t *testing.T) {
		boom := errors.New("db down")
		w, _ := newTestWorker(scheduled(), &stubPublisher{err: boom})

		err := w.HandlePublishTask(ctx, publishTask(t, PublishPayload{PostID: 7}))
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleSyncAnalyticsTask(t *testing.T) {
	ctx := context.Background()
	pub := &stubPublisher{}
	w, _ := newTestWorker(stubPosts{3: {ID: 3, Status: models.PostStatusPublished}}, pub)

	data, err := json.Marshal(SyncAnalyticsPayload{PostID: 3})
	require.NoError(t, err)
	require.NoError(t, w.HandleSyncAnalyticsTask(ctx, asynq.NewTask(TaskTypeSyncAnalytics, data)))
	assert.Equal(t, 1, pub.synced)

	data, _ = json.Marshal(SyncAnalyticsPayload{PostID: 4})
	assert.ErrorIs(t, w.HandleSyncAnalyticsTask(ctx, asynq.NewTask(TaskTypeSyncAnalytics, data)), asynq.SkipRetry)
}

func TestPublishTaskID(t *testing.T) {
	assert.Equal(t, "publish:12", publishTaskID(12, 0))
	assert.Equal(t, "publish:12:3", publishTaskID(12, 3))

	task, err := newPublishTask(PublishPayload{PostID: 12, Platforms: []string{"twitter"}, Attempt: 3})
	require.NoError(t, err)
	assert.Equal(t, TaskTypePublishPost, task.Type())

	var payload PublishPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, []string{"twitter"}, payload.Platforms)
	assert.Equal(t, 3, payload.Attempt)
}
