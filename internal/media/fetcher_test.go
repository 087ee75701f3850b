package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platform"
	"github.com/maheshrc27/postflow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}
	gifHeader = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
)

type fakeStore struct {
	objects map[string][]byte
	down    bool
}

func (s fakeStore) KeyFor(fileURL string) (string, bool) {
	const prefix = "https://media.example.com/"
	if len(fileURL) > len(prefix) && fileURL[:len(prefix)] == prefix {
		return fileURL[len(prefix):], true
	}
	return "", false
}

func (s fakeStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	if s.down {
		return nil, "", errors.New("connection reset by peer")
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("get object %s: %w", key, storage.ErrObjectNotFound)
	}
	return data, "application/octet-stream", nil
}

func TestDetect(t *testing.T) {
	kind, err := Detect(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeImage, kind.MediaType)
	assert.Equal(t, "image/png", kind.MIME)

	kind, err = Detect(gifHeader)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeGIF, kind.MediaType)

	_, err = Detect([]byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFetcher(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Write(pngHeader)
		case "/anim.gif":
			w.Write(gifHeader)
		case "/flaky.png":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := fakeStore{objects: map[string][]byte{"abc": pngHeader}}
	f := NewFetcher(server.Client(), store, 1024)

	t.Run("http", func(t *testing.T) {
		m, err := f.Fetch(ctx, models.MediaItem{MediaType: models.MediaTypeImage, FileURL: server.URL + "/photo.png"})
		require.NoError(t, err)
		assert.Equal(t, "image/png", m.ContentType)
		assert.Equal(t, pngHeader, m.Data)
	})

	t.Run("gif declared as image", func(t *testing.T) {
		m, err := f.Fetch(ctx, models.MediaItem{MediaType: models.MediaTypeImage, FileURL: server.URL + "/anim.gif"})
		require.NoError(t, err)
		assert.Equal(t, "image/gif", m.ContentType)
	})

	t.Run("declared video", func(t *testing.T) {
		_, err := f.Fetch(ctx, models.MediaItem{MediaType: models.MediaTypeVideo, FileURL: server.URL + "/photo.png"})
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.Fetch(ctx, models.MediaItem{FileURL: server.URL + "/nope.png"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		assert.NotErrorIs(t, err, platform.ErrMediaUnavailable)
	})

	t.Run("host unavailable", func(t *testing.T) {
		_, err := f.Fetch(ctx, models.MediaItem{FileURL: server.URL + "/flaky.png"})
		require.Error(t, err)
		assert.ErrorIs(t, err, platform.ErrMediaUnavailable)
	})

	t.Run("host unreachable", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		closed.Close()
		_, err := f.Fetch(ctx, models.MediaItem{FileURL: closed.URL + "/photo.png"})
		assert.ErrorIs(t, err, platform.ErrMediaUnavailable)
	})

	t.Run("missing from store", func(t *testing.T) {
		_, err := f.Fetch(ctx, models.MediaItem{FileURL: "https://media.example.com/gone"})
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
		assert.NotErrorIs(t, err, platform.ErrMediaUnavailable)
	})

	t.Run("store down", func(t *testing.T) {
		down := NewFetcher(server.Client(), fakeStore{down: true}, 1024)
		_, err := down.Fetch(ctx, models.MediaItem{FileURL: "https://media.example.com/abc"})
		assert.ErrorIs(t, err, platform.ErrMediaUnavailable)
	})

	t.Run("from store", func(t *testing.T) {
		m, err := f.Fetch(ctx, models.MediaItem{MediaType: models.MediaTypeImage, FileURL: "https://media.example.com/abc"})
		require.NoError(t, err)
		assert.Equal(t, "image/png", m.ContentType)
	})

	t.Run("too large", func(t *testing.T) {
		small := NewFetcher(server.Client(), nil, 4)
		_, err := small.Fetch(ctx, models.MediaItem{FileURL: server.URL + "/photo.png"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds")
	})
}
