package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"acharya-backend/internal/middleware"
	"acharya-backend/internal/models"
)

type SessionHandler struct {
	sessionRepo   sessionRepository
	documentRepo  documentReader
	generatedRepo generatedReader
}

type sessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
}

type documentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Document, error)
}

type generatedReader interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.GeneratedContent, error)
}

func NewSessionHandler(sessionRepo sessionRepository, documentRepo documentReader, generatedRepo generatedReader) *SessionHandler {
	return &SessionHandler{
		sessionRepo:   sessionRepo,
		documentRepo:  documentRepo,
		generatedRepo: generatedRepo,
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"title": "Title is required"}, r))
		return
	}

	session := &models.Session{
		UserID:      middleware.GetUserID(r.Context()),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	}

	if err := h.sessionRepo.Create(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list sessions", r))
		return
	}

	if sessions == nil {
		sessions = []*models.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// Get returns one session together with its documents and generated
// artifacts, the shape the dashboard renders.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.authorizeSession(w, r)
	if !ok {
		return
	}

	documents, err := h.documentRepo.ListBySession(r.Context(), session.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load documents", r))
		return
	}

	generated, err := h.generatedRepo.ListBySession(r.Context(), session.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load generated content", r))
		return
	}

	if documents == nil {
		documents = []*models.Document{}
	}
	if generated == nil {
		generated = []*models.GeneratedContent{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":           session,
		"documents":         documents,
		"generated_content": generated,
	})
}

// authorizeSession resolves {id} and enforces ownership. Foreign sessions
// read as 404 so their existence is not leaked.
func (h *SessionHandler) authorizeSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	session, err := h.sessionRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}

	if session.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}

	return session, true
}

// GetDocument serves a single document with ownership enforcement.
func (h *SessionHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid document ID", r))
		return
	}

	doc, err := h.documentRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Document not found", r))
		return
	}

	if doc.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"document": doc})
}
