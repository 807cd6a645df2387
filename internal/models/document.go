package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // extracted text; empty until processed
	FilePath  *string   `json:"file_path"`
	FileType  *string   `json:"file_type"`
	SourceURL *string   `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProcessRequest struct {
	FileID           uuid.UUID `json:"file_id"`
	SessionID        uuid.UUID `json:"session_id"`
	ProcessingOption string    `json:"processing_option"`
}

type YouTubeRequest struct {
	URL              string    `json:"url"`
	SessionID        uuid.UUID `json:"session_id"`
	ProcessingOption string    `json:"processing_option"`
}

type YouTubeMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ChannelName  string `json:"channel_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}
