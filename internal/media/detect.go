// Package media validates media files and loads the bytes behind a post's
// media items for platforms that require a binary upload.
package media

import (
	"errors"
	"fmt"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postflow/internal/models"
)

var ErrUnsupportedType = errors.New("unsupported media type")

// Kind describes a sniffed media file.
type Kind struct {
	MediaType string
	MIME      string
	Extension string
}

var allowed = map[string]string{
	"jpg":  models.MediaTypeImage,
	"png":  models.MediaTypeImage,
	"webp": models.MediaTypeImage,
	"gif":  models.MediaTypeGIF,
	"mp4":  models.MediaTypeVideo,
	"mov":  models.MediaTypeVideo,
}

// Detect sniffs data and maps it onto one of the supported media types.
func Detect(data []byte) (Kind, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return Kind{}, ErrUnsupportedType
	}

	mediaType, ok := allowed[kind.Extension]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %s", ErrUnsupportedType, kind.Extension)
	}

	return Kind{MediaType: mediaType, MIME: kind.MIME.Value, Extension: kind.Extension}, nil
}
