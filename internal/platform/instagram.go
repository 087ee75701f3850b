package platform

import (
	"context"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
)

// instagramAdapter is registered so accounts can be connected, but content
// publishing through the Graph API is not implemented yet. Every call reports
// KindUnsupported.
type instagramAdapter struct{}

func NewInstagram(cfg config.PlatformConfig, cred Credential, deps Deps) (Adapter, error) {
	return instagramAdapter{}, nil
}

func (instagramAdapter) Platform() Platform {
	return Instagram
}

func (instagramAdapter) CreatePost(ctx context.Context, content string, media []models.MediaItem) (PublishResult, error) {
	return PublishResult{Failure: failuref(KindUnsupported, "instagram publishing is not implemented")}, nil
}

func (instagramAdapter) DeletePost(ctx context.Context, platformPostID string) (DeleteResult, error) {
	return DeleteResult{Failure: failuref(KindUnsupported, "instagram publishing is not implemented")}, nil
}

func (instagramAdapter) GetAnalytics(ctx context.Context, platformPostID string) (AnalyticsResult, error) {
	return AnalyticsResult{Failure: failuref(KindUnsupported, "instagram publishing is not implemented")}, nil
}
