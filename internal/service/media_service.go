package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/media"
	"github.com/maheshrc27/postflow/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrStorageDisabled = errors.New("media storage is not configured")

type ObjectStore interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) (string, error)
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, file []byte) (*transfer.UploadedMedia, error)
}

type mediaService struct {
	store    ObjectStore
	maxBytes int64
}

// NewMediaService returns the upload service. store may be nil when no
// bucket is configured.
func NewMediaService(store ObjectStore, maxBytes int64) MediaService {
	return &mediaService{store: store, maxBytes: maxBytes}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file []byte) (*transfer.UploadedMedia, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if len(file) == 0 {
		return nil, errors.New("file is empty")
	}
	if s.maxBytes > 0 && int64(len(file)) > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.maxBytes)
	}

	kind, err := media.Detect(file)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)

	fileURL, err := s.store.Upload(ctx, key, file, kind.MIME)
	if err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	return &transfer.UploadedMedia{MediaType: kind.MediaType, FileURL: fileURL, FileSize: int64(len(file))}, nil
}
