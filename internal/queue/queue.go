// Package queue carries publish and analytics work through asynq.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypePublishPost   = "publish:post"
	TaskTypeSyncAnalytics = "sync:analytics"
)

// PublishPayload targets all of the post's platforms when Platforms is
// empty. Attempt counts automatic retries.
type PublishPayload struct {
	PostID    int64    `json:"post_id"`
	Platforms []string `json:"platforms,omitempty"`
	Attempt   int      `json:"attempt"`
}

type SyncAnalyticsPayload struct {
	PostID int64 `json:"post_id"`
}

// publishTaskID keeps one pending publish per post and attempt.
func publishTaskID(postID int64, attempt int) string {
	if attempt == 0 {
		return fmt.Sprintf("publish:%d", postID)
	}
	return fmt.Sprintf("publish:%d:%d", postID, attempt)
}

func newPublishTask(payload PublishPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, data,
		asynq.TaskID(publishTaskID(payload.PostID, payload.Attempt)),
		asynq.MaxRetry(2),
	), nil
}

func newSyncAnalyticsTask(postID int64, unique time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SyncAnalyticsPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(1)}
	if unique > 0 {
		opts = append(opts, asynq.Unique(unique))
	}
	return asynq.NewTask(TaskTypeSyncAnalytics, data, opts...), nil
}

// Client enqueues tasks.
type Client struct {
	asynq *asynq.Client
	// analyticsUnique suppresses duplicate analytics syncs of a post.
	analyticsUnique time.Duration
}

func NewClient(c *asynq.Client, analyticsUnique time.Duration) *Client {
	return &Client{asynq: c, analyticsUnique: analyticsUnique}
}

// enqueue treats an already pending identical task as success.
func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := c.asynq.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		slog.Debug("task already queued", "type", task.Type())
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("task enqueued", "type", task.Type(), "id", info.ID, "process_at", info.NextProcessAt)
	return nil
}

// EnqueuePublish schedules the first publish of a post at the given time.
// A time in the past publishes right away.
func (c *Client) EnqueuePublish(ctx context.Context, postID int64, at time.Time) error {
	task, err := newPublishTask(PublishPayload{PostID: postID})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.ProcessAt(at))
}

// EnqueueRetry schedules another attempt for the given platforms only.
func (c *Client) EnqueueRetry(ctx context.Context, postID int64, platforms []string, attempt int, delay time.Duration) error {
	task, err := newPublishTask(PublishPayload{PostID: postID, Platforms: platforms, Attempt: attempt})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.ProcessIn(delay))
}

func (c *Client) EnqueueSyncAnalytics(ctx context.Context, postID int64) error {
	task, err := newSyncAnalyticsTask(postID, c.analyticsUnique)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}
