package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

type fakeFetcher struct {
	failing string
	flaky   string
}

func (f fakeFetcher) Fetch(ctx context.Context, item models.MediaItem) (*Media, error) {
	if f.failing != "" && strings.Contains(item.FileURL, f.failing) {
		return nil, errors.New("source unreachable")
	}
	if f.flaky != "" && strings.Contains(item.FileURL, f.flaky) {
		return nil, fmt.Errorf("download %s: status 503: %w", item.FileURL, ErrMediaUnavailable)
	}
	return &Media{Data: []byte("bytes-of-" + item.FileURL), ContentType: "image/png"}, nil
}

// images builds n image items; the ones whose index is in bad get a URL the
// fake servers and fetcher refuse.
func images(n int, bad ...int) []models.MediaItem {
	isBad := map[int]bool{}
	for _, b := range bad {
		isBad[b] = true
	}
	items := make([]models.MediaItem, n)
	for i := range items {
		name := fmt.Sprintf("https://cdn.example.com/ok-%d.png", i)
		if isBad[i] {
			name = fmt.Sprintf("https://cdn.example.com/bad-%d.png", i)
		}
		items[i] = models.MediaItem{MediaType: models.MediaTypeImage, FileURL: name, DisplayOrder: i}
	}
	return items
}

func testDeps() Deps {
	return Deps{Media: fakeFetcher{failing: "bad-"}}
}

func facebookConfig(baseURL string) config.PlatformConfig {
	return config.PlatformConfig{Enabled: true, BaseURL: baseURL, APIVersion: "v18.0", MaxLength: 63206, TextOnlyFallback: true}
}

func twitterConfig(baseURL string) config.PlatformConfig {
	return config.PlatformConfig{Enabled: true, BaseURL: baseURL, UploadURL: baseURL, APIVersion: "2", MaxLength: 280, ChunkSize: 8}
}

func linkedinConfig(baseURL string) config.PlatformConfig {
	return config.PlatformConfig{Enabled: true, BaseURL: baseURL, APIVersion: "v2", MaxLength: 3000}
}
