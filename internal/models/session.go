package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateSessionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type RegenerateAudioRequest struct {
	ContentID   uuid.UUID `json:"content_id"`
	ContentType string    `json:"content_type"`
}
