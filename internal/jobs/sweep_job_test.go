package job

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	due       []*models.Post
	published []*models.Post
	err       error
	dueAt     time.Time
}

func (s *stubLister) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	s.dueAt = now
	return s.due, s.err
}

func (s *stubLister) ListByStatus(ctx context.Context, status string) ([]*models.Post, error) {
	if status != models.PostStatusPublished {
		return nil, nil
	}
	return s.published, s.err
}

type recordingQueue struct {
	mu        sync.Mutex
	publish   []int64
	analytics []int64
	failFor   int64
}

func (q *recordingQueue) EnqueuePublish(ctx context.Context, postID int64, at time.Time) error {
	if postID == q.failFor {
		return errors.New("redis down")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.publish = append(q.publish, postID)
	return nil
}

func (q *recordingQueue) EnqueueSyncAnalytics(ctx context.Context, postID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.analytics = append(q.analytics, postID)
	return nil
}

func sorted(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestEnqueueDuePosts(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lister := &stubLister{due: []*models.Post{{ID: 1}, {ID: 2}, {ID: 3}}}
	queue := &recordingQueue{failFor: 2}

	j := NewSweepJob(lister, queue, 2)
	j.now = func() time.Time { return now }

	assert.Equal(t, 2, j.EnqueueDuePosts(context.Background()))
	assert.Equal(t, now, lister.dueAt)
	assert.Equal(t, []int64{1, 3}, sorted(queue.publish))
}

func TestEnqueueAnalytics(t *testing.T) {
	lister := &stubLister{published: []*models.Post{{ID: 4}, {ID: 5}}}
	queue := &recordingQueue{}

	j := NewSweepJob(lister, queue, 0)
	assert.Equal(t, 2, j.EnqueueAnalytics(context.Background()))
	assert.Equal(t, []int64{4, 5}, sorted(queue.analytics))
}

func TestSweepListError(t *testing.T) {
	queue := &recordingQueue{}
	j := NewSweepJob(&stubLister{err: errors.New("db down")}, queue, 4)

	assert.Zero(t, j.EnqueueDuePosts(context.Background()))
	assert.Zero(t, j.EnqueueAnalytics(context.Background()))
	assert.Empty(t, queue.publish)
}

func TestSchedule(t *testing.T) {
	j := NewSweepJob(&stubLister{}, &recordingQueue{}, 1)
	c, err := j.Schedule(time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
}
