package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failBad(kind ErrorKind) uploadFunc {
	return func(ctx context.Context, item models.MediaItem) (string, *Failure) {
		if strings.Contains(item.FileURL, "bad-") {
			return "", failuref(kind, "refused %s", item.FileURL)
		}
		return "h-" + item.FileURL, nil
	}
}

func TestUploadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("partial failure skips and records", func(t *testing.T) {
		handles, skipped, f := uploadAll(ctx, images(3, 0, 2), false, failBad(KindRejected))
		require.Nil(t, f)
		assert.Equal(t, []string{"h-https://cdn.example.com/ok-1.png"}, handles)
		require.Len(t, skipped, 2)
		assert.Equal(t, 0, skipped[0].Index)
		assert.Equal(t, 2, skipped[1].Index)
		assert.Contains(t, skipped[1].Detail, "bad-2")
	})

	t.Run("all failed without fallback", func(t *testing.T) {
		handles, skipped, f := uploadAll(ctx, images(2, 0, 1), false, failBad(KindRejected))
		require.NotNil(t, f)
		assert.Equal(t, KindMediaUploadFailed, f.Kind)
		assert.Nil(t, handles)
		assert.Len(t, skipped, 2)
	})

	t.Run("all failed transiently", func(t *testing.T) {
		_, skipped, f := uploadAll(ctx, images(2, 0, 1), false, failBad(KindTransient))
		require.NotNil(t, f)
		assert.Equal(t, KindTransient, f.Kind)
		assert.True(t, f.Kind.Retryable())
		assert.Len(t, skipped, 2)
	})

	t.Run("mixed failures are not retried", func(t *testing.T) {
		upload := func(ctx context.Context, item models.MediaItem) (string, *Failure) {
			if item.DisplayOrder == 0 {
				return "", failuref(KindTransient, "timeout")
			}
			return "", failuref(KindRejected, "bad format")
		}
		_, _, f := uploadAll(ctx, images(2), false, upload)
		require.NotNil(t, f)
		assert.Equal(t, KindMediaUploadFailed, f.Kind)
	})

	t.Run("all failed with text fallback", func(t *testing.T) {
		handles, skipped, f := uploadAll(ctx, images(2, 0, 1), true, failBad(KindRejected))
		require.Nil(t, f)
		assert.Empty(t, handles)
		assert.Len(t, skipped, 2)
	})

	t.Run("rate limit aborts remaining uploads", func(t *testing.T) {
		calls := 0
		upload := func(ctx context.Context, item models.MediaItem) (string, *Failure) {
			calls++
			return "", failuref(KindRateLimited, "slow down")
		}
		_, _, f := uploadAll(ctx, images(3), true, upload)
		require.NotNil(t, f)
		assert.Equal(t, KindRateLimited, f.Kind)
		assert.Equal(t, 1, calls)
	})

	t.Run("no media", func(t *testing.T) {
		handles, skipped, f := uploadAll(ctx, nil, false, failBad(KindRejected))
		assert.Nil(t, f)
		assert.Empty(t, handles)
		assert.Empty(t, skipped)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, f := uploadAll(cctx, images(1), false, failBad(KindRejected))
		require.NotNil(t, f)
		assert.Equal(t, KindTransient, f.Kind)
	})
}

func TestFetchMedia(t *testing.T) {
	ctx := context.Background()

	m, f := fetchMedia(ctx, fakeFetcher{}, images(1)[0], 0)
	require.Nil(t, f)
	assert.Equal(t, "image/png", m.ContentType)

	_, f = fetchMedia(ctx, fakeFetcher{}, images(1)[0], 4)
	require.NotNil(t, f)
	assert.Contains(t, f.Detail, "limit is 4")

	_, f = fetchMedia(ctx, nil, images(1)[0], 0)
	require.NotNil(t, f)
	assert.Equal(t, KindRejected, f.Kind)

	_, f = fetchMedia(ctx, fakeFetcher{failing: "bad-"}, images(1, 0)[0], 0)
	require.NotNil(t, f)
	assert.Equal(t, KindRejected, f.Kind)

	_, f = fetchMedia(ctx, fakeFetcher{flaky: "bad-"}, images(1, 0)[0], 0)
	require.NotNil(t, f)
	assert.Equal(t, KindTransient, f.Kind)
	assert.Contains(t, f.Detail, "503")
}
