package transfer

import (
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type MediaInput struct {
	MediaType string `json:"media_type"`
	FileURL   string `json:"file_url"`
	FileSize  int64  `json:"file_size"`
	AltText   string `json:"alt_text"`
}

type PostCreation struct {
	Content       string       `json:"content"`
	Platforms     []string     `json:"platforms"`
	ScheduledTime *time.Time   `json:"scheduled_time,omitempty"`
	Media         []MediaInput `json:"media"`
}

type PostInfo struct {
	Post         *models.Post            `json:"post"`
	Media        []models.MediaItem      `json:"media"`
	Publications []*models.Publication   `json:"publications"`
	Analytics    []*models.PostAnalytics `json:"analytics"`
}

type UploadedMedia struct {
	MediaType string `json:"media_type"`
	FileURL   string `json:"file_url"`
	FileSize  int64  `json:"file_size"`
}
