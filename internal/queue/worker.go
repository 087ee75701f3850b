package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
)

type PostLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

type MediaLister interface {
	ListByPostID(ctx context.Context, postID int64) ([]models.MediaItem, error)
}

type RetryEnqueuer interface {
	EnqueueRetry(ctx context.Context, postID int64, platforms []string, attempt int, delay time.Duration) error
}

type RetryPolicy struct {
	MaxRetries int
	// Backoff is multiplied by the attempt number.
	Backoff time.Duration
}

type Worker struct {
	posts  PostLoader
	media  MediaLister
	pub    service.PublicationService
	retry  RetryEnqueuer
	policy RetryPolicy
}

func NewWorker(posts PostLoader, media MediaLister, pub service.PublicationService, retry RetryEnqueuer, policy RetryPolicy) *Worker {
	return &Worker{
		posts:  posts,
		media:  media,
		pub:    pub,
		retry:  retry,
		policy: policy,
	}
}

// Register installs the task handlers on mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishTask)
	mux.HandleFunc(TaskTypeSyncAnalytics, w.HandleSyncAnalyticsTask)
}

func (w *Worker) load(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := w.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d: %w: %w", postID, service.ErrPostNotFound, asynq.SkipRetry)
	}
	return post, nil
}

func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := w.load(ctx, payload.PostID)
	if err != nil {
		return err
	}

	// The first attempt only runs for posts still waiting on their schedule,
	// so a post published by hand in the meantime is left alone.
	if len(payload.Platforms) == 0 && post.Status != models.PostStatusScheduled {
		slog.Info("skipping publish", "post_id", post.ID, "status", post.Status)
		return nil
	}

	media, err := w.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}

	var outcomes map[string]service.PublicationOutcome
	if len(payload.Platforms) == 0 {
		outcomes, err = w.pub.Publish(ctx, post, media)
	} else {
		outcomes, err = w.pub.PublishTo(ctx, post, media, payload.Platforms)
	}
	if err != nil {
		return fmt.Errorf("publish post %d: %w", post.ID, err)
	}

	var retry []string
	for name, o := range outcomes {
		if o.Retryable() {
			retry = append(retry, name)
		}
	}
	if len(retry) == 0 {
		return nil
	}

	next := payload.Attempt + 1
	if next > w.policy.MaxRetries {
		slog.Warn("giving up on platforms", "post_id", post.ID, "platforms", retry, "attempts", payload.Attempt)
		return nil
	}

	delay := w.policy.Backoff * time.Duration(next)
	if err := w.retry.EnqueueRetry(ctx, post.ID, retry, next, delay); err != nil {
		slog.Error("error scheduling retry", "post_id", post.ID, "error", err)
		return err
	}
	slog.Info("retry scheduled", "post_id", post.ID, "platforms", retry, "attempt", next, "delay", delay)
	return nil
}

func (w *Worker) HandleSyncAnalyticsTask(ctx context.Context, task *asynq.Task) error {
	var payload SyncAnalyticsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := w.load(ctx, payload.PostID)
	if err != nil {
		return err
	}

	snapshots, err := w.pub.SyncAnalytics(ctx, post)
	if err != nil {
		return fmt.Errorf("sync analytics of post %d: %w", post.ID, err)
	}
	slog.Info("analytics synced", "post_id", post.ID, "platforms", len(snapshots))
	return nil
}
