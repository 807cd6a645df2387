package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"acharya-backend/internal/middleware"
	"acharya-backend/internal/models"
)

type ChatHandler struct {
	sessionRepo   sessionRepository
	generatedRepo generatedReader
	chat          chatService
}

type chatService interface {
	Chat(ctx context.Context, summaryContext, message string, history []models.ChatMessage) (string, error)
}

func NewChatHandler(sessionRepo sessionRepository, generatedRepo generatedReader, chat chatService) *ChatHandler {
	return &ChatHandler{
		sessionRepo:   sessionRepo,
		generatedRepo: generatedRepo,
		chat:          chat,
	}
}

// Ask answers a question about the session's study material. The generated
// artifacts are flattened into the model's grounding context.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	session, err := h.sessionRepo.GetByID(r.Context(), sessionID)
	if err != nil || session.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	artifacts, err := h.generatedRepo.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load session content", r))
		return
	}

	grounding := buildChatContext(artifacts)
	if grounding == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Session has no generated content to chat about", r))
		return
	}

	chatCtx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	reply, err := h.chat.Chat(chatCtx, grounding, req.Message, req.History)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Chat request failed. Please try again.", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

// buildChatContext flattens the session's artifacts into plain text,
// summaries first since they carry the most context per token.
func buildChatContext(artifacts []*models.GeneratedContent) string {
	var summaries, others []string

	for _, a := range artifacts {
		text := strings.TrimSpace(a.Content.SpeakableText())
		if text == "" {
			continue
		}

		block := strings.ToUpper(a.Type) + ":\n" + text
		if a.Type == models.TypeSummary {
			summaries = append(summaries, block)
		} else {
			others = append(others, block)
		}
	}

	return strings.TrimSpace(strings.Join(append(summaries, others...), "\n\n"))
}
