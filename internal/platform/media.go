package platform

import (
	"context"
	"errors"

	"github.com/maheshrc27/postflow/internal/models"
)

type uploadFunc func(ctx context.Context, item models.MediaItem) (string, *Failure)

// uploadAll uploads media in display order. A failed item is skipped and
// recorded. An auth or rate limit failure aborts the remaining uploads since
// every later request would fail the same way. When every item fails and the
// platform has no text only fallback the whole post fails, as a transient
// failure when every item failed transiently so the publish is retried.
func uploadAll(ctx context.Context, items []models.MediaItem, textOnlyFallback bool, upload uploadFunc) ([]string, []MediaFailure, *Failure) {
	var handles []string
	var skipped []MediaFailure
	allTransient := true

	for i, item := range items {
		if ctx.Err() != nil {
			return nil, skipped, networkFailure(ctx, ctx.Err())
		}

		handle, f := upload(ctx, item)
		if f != nil {
			if f.Kind == KindAuthExpired || f.Kind == KindRateLimited {
				return nil, skipped, f
			}
			if f.Kind != KindTransient {
				allTransient = false
			}
			skipped = append(skipped, MediaFailure{Index: i, Source: item.FileURL, Detail: f.Error()})
			continue
		}
		handles = append(handles, handle)
	}

	if len(items) > 0 && len(handles) == 0 && !textOnlyFallback {
		if allTransient {
			return nil, skipped, failuref(KindTransient, "all %d media items are temporarily unavailable", len(items))
		}
		return nil, skipped, failuref(KindMediaUploadFailed, "all %d media items failed to upload", len(items))
	}

	return handles, skipped, nil
}

// fetchMedia loads the bytes for a binary upload and enforces the size cap.
func fetchMedia(ctx context.Context, fetcher MediaFetcher, item models.MediaItem, maxBytes int64) (*Media, *Failure) {
	if fetcher == nil {
		return nil, failuref(KindRejected, "no media fetcher configured")
	}
	m, err := fetcher.Fetch(ctx, item)
	if err != nil {
		if ctx.Err() != nil {
			return nil, networkFailure(ctx, err)
		}
		if errors.Is(err, ErrMediaUnavailable) {
			return nil, failuref(KindTransient, "fetch media: %v", err)
		}
		return nil, failuref(KindRejected, "fetch media: %v", err)
	}
	if maxBytes > 0 && int64(len(m.Data)) > maxBytes {
		return nil, failuref(KindRejected, "media is %d bytes, limit is %d", len(m.Data), maxBytes)
	}
	return m, nil
}
