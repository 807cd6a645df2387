package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"acharya-backend/internal/middleware"
	"acharya-backend/internal/models"
)

type AudioHandler struct {
	sessionRepo   sessionRepository
	generatedRepo generatedStore
	speech        speechSynthesizer
}

type generatedStore interface {
	GetBySessionAndID(ctx context.Context, sessionID, id uuid.UUID) (*models.GeneratedContent, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content models.ContentPayload) error
}

type speechSynthesizer interface {
	Enabled() bool
	Synthesize(ctx context.Context, text, filePrefix string) (string, error)
}

func NewAudioHandler(sessionRepo sessionRepository, generatedRepo generatedStore, speech speechSynthesizer) *AudioHandler {
	return &AudioHandler{
		sessionRepo:   sessionRepo,
		generatedRepo: generatedRepo,
		speech:        speech,
	}
}

// Regenerate synthesizes fresh audio for an existing artifact and merges
// the new path into its payload without touching the text.
func (h *AudioHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req models.RegenerateAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContentID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.sessionRepo.GetByID(r.Context(), sessionID)
	if err != nil || session.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	content, err := h.generatedRepo.GetBySessionAndID(r.Context(), sessionID, req.ContentID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Content not found", r))
		return
	}

	text := content.Content.SpeakableText()
	if strings.TrimSpace(text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Content has no text to synthesize", r))
		return
	}

	prefix := req.ContentType
	if prefix == "" {
		prefix = content.Type
	}

	synthCtx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	audioPath, err := h.speech.Synthesize(synthCtx, text, prefix)
	if err != nil {
		log.Printf("audio regeneration failed for content %s: %v", content.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("AUDIO_FAILED", "Audio synthesis failed. Please try again.", r))
		return
	}

	updated := content.Content.WithAudioPath(audioPath)
	if err := h.generatedRepo.UpdateContent(r.Context(), content.ID, updated); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save audio path", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audioPath": audioPath})
}
