package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/storage"
)

// Store is the object storage the fetcher prefers for files it uploaded itself.
type Store interface {
	KeyFor(fileURL string) (string, bool)
	Download(ctx context.Context, key string) ([]byte, string, error)
}

type Fetcher struct {
	http     *http.Client
	store    Store
	maxBytes int64
}

// NewFetcher returns a fetcher that reads from store when the URL belongs to
// it and over HTTP otherwise. store may be nil.
func NewFetcher(hc *http.Client, store Store, maxBytes int64) *Fetcher {
	return &Fetcher{http: hc, store: store, maxBytes: maxBytes}
}

func (f *Fetcher) Fetch(ctx context.Context, item models.MediaItem) (*platform.Media, error) {
	data, err := f.load(ctx, item.FileURL)
	if err != nil {
		return nil, err
	}

	kind, err := Detect(data)
	if err != nil {
		return nil, err
	}
	if !compatible(item.MediaType, kind.MediaType) {
		return nil, fmt.Errorf("declared %s but file is %s", item.MediaType, kind.Extension)
	}

	return &platform.Media{Data: data, ContentType: kind.MIME}, nil
}

// compatible allows a gif declared as a plain image.
func compatible(declared, actual string) bool {
	if declared == "" || declared == actual {
		return true
	}
	return declared == models.MediaTypeImage && actual == models.MediaTypeGIF
}

func (f *Fetcher) load(ctx context.Context, fileURL string) ([]byte, error) {
	if f.store != nil {
		if key, ok := f.store.KeyFor(fileURL); ok {
			data, _, err := f.store.Download(ctx, key)
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					return nil, err
				}
				return nil, fmt.Errorf("%v: %w", err, platform.ErrMediaUnavailable)
			}
			if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
				return nil, fmt.Errorf("file exceeds %d bytes", f.maxBytes)
			}
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %v: %w", err, platform.ErrMediaUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("download %s: status %d: %w", fileURL, resp.StatusCode, platform.ErrMediaUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", fileURL, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %v: %w", err, platform.ErrMediaUnavailable)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}
