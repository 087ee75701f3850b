package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/robfig/cron"
)

type PostLister interface {
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Post, error)
}

type TaskEnqueuer interface {
	EnqueuePublish(ctx context.Context, postID int64, at time.Time) error
	EnqueueSyncAnalytics(ctx context.Context, postID int64) error
}

// SweepJob re-enqueues work the queue may have lost: scheduled posts that
// are due and published posts whose analytics need a refresh.
type SweepJob struct {
	posts       PostLister
	queue       TaskEnqueuer
	concurrency int
	now         func() time.Time
}

func NewSweepJob(posts PostLister, queue TaskEnqueuer, concurrency int) *SweepJob {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SweepJob{
		posts:       posts,
		queue:       queue,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (j *SweepJob) each(posts []*models.Post, fn func(post *models.Post)) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.concurrency)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()
			fn(post)
		}(post)
	}
	wg.Wait()
}

// EnqueueDuePosts hands every due scheduled post to the queue. Posts
// whose publish task is still pending are deduplicated by task id.
func (j *SweepJob) EnqueueDuePosts(ctx context.Context) int {
	now := j.now()
	posts, err := j.posts.ListDue(ctx, now)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var mu sync.Mutex
	queued := 0
	j.each(posts, func(post *models.Post) {
		if err := j.queue.EnqueuePublish(ctx, post.ID, now); err != nil {
			slog.Error("unable to enqueue due post", "post_id", post.ID, "error", err)
			return
		}
		mu.Lock()
		queued++
		mu.Unlock()
	})
	return queued
}

// EnqueueAnalytics asks for fresh metrics on every published post.
func (j *SweepJob) EnqueueAnalytics(ctx context.Context) int {
	posts, err := j.posts.ListByStatus(ctx, models.PostStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var mu sync.Mutex
	queued := 0
	j.each(posts, func(post *models.Post) {
		if err := j.queue.EnqueueSyncAnalytics(ctx, post.ID); err != nil {
			slog.Error("unable to enqueue analytics sync", "post_id", post.ID, "error", err)
			return
		}
		mu.Lock()
		queued++
		mu.Unlock()
	})
	return queued
}

// Schedule registers both sweeps on a new cron. The caller starts and
// stops it.
func (j *SweepJob) Schedule(dueEvery, analyticsEvery time.Duration) (*cron.Cron, error) {
	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", dueEvery), func() {
		if n := j.EnqueueDuePosts(context.Background()); n > 0 {
			slog.Info("due posts enqueued", "count", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule due posts: %w", err)
	}
	if err := c.AddFunc(fmt.Sprintf("@every %s", analyticsEvery), func() {
		if n := j.EnqueueAnalytics(context.Background()); n > 0 {
			slog.Info("analytics syncs enqueued", "count", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule analytics: %w", err)
	}
	return c, nil
}
