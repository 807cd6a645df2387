package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"acharya-backend/internal/middleware"
	"acharya-backend/internal/models"
	"acharya-backend/internal/repository"
	"acharya-backend/internal/services"
)

// GenerationQueue is the Redis list the worker pool consumes.
const GenerationQueue = "queue:content-generation"

const maxUploadBytes = 15 * 1024 * 1024

// IngestHandler owns the upload, process, and youtube entry points that
// feed the generation pipeline.
type IngestHandler struct {
	sessionRepo  sessionRepository
	documentRepo *repository.DocumentRepo
	jobRepo      *repository.JobRepo
	youtube      *services.YouTubeService
	redis        *redis.Client
	storagePath  string
}

func NewIngestHandler(
	sessionRepo sessionRepository,
	documentRepo *repository.DocumentRepo,
	jobRepo *repository.JobRepo,
	youtube *services.YouTubeService,
	redisClient *redis.Client,
	storagePath string,
) *IngestHandler {
	return &IngestHandler{
		sessionRepo:  sessionRepo,
		documentRepo: documentRepo,
		jobRepo:      jobRepo,
		youtube:      youtube,
		redis:        redisClient,
		storagePath:  storagePath,
	}
}

func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 15MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	sessionID, err := uuid.Parse(r.FormValue("session_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid or missing session_id", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.sessionRepo.GetByID(r.Context(), sessionID)
	if err != nil || session.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	// Magic byte check on the first 512 bytes
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	buf = buf[:n]
	mimeType := http.DetectContentType(buf)

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isAllowedUpload(mimeType, ext) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Only PDF, DOC, DOCX, and TXT files are supported", r))
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to read upload", r))
		return
	}

	fileID := uuid.New().String()
	relPath := filepath.Join("users", userID.String(), "uploads", fileID+ext)
	fullPath := filepath.Join(h.storagePath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}

	out, err := os.Create(fullPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(fullPath)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store upload", r))
		return
	}

	fileType := strings.TrimPrefix(ext, ".")
	doc := &models.Document{
		SessionID: sessionID,
		UserID:    userID,
		Title:     header.Filename,
		FilePath:  &relPath,
		FileType:  &fileType,
	}

	if err := h.documentRepo.Create(r.Context(), doc); err != nil {
		os.Remove(fullPath)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create document record", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_id":   doc.ID,
		"filename":  header.Filename,
		"mime_type": mimeType,
	})
}

func (h *IngestHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	doc, err := h.documentRepo.GetByID(r.Context(), req.FileID)
	if err != nil || doc.UserID != userID || doc.SessionID != req.SessionID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "File not found", r))
		return
	}

	jobID, ok := h.enqueueGeneration(w, r, userID, req.SessionID, doc.ID, req.ProcessingOption)
	if !ok {
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": jobID})
}

func (h *IngestHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	var req models.YouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	videoID, err := services.ExtractVideoID(req.URL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid YouTube URL", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.sessionRepo.GetByID(r.Context(), req.SessionID)
	if err != nil || session.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	// Metadata is best effort; a private video still fails loudly later in
	// the pipeline with a classified error.
	metaCtx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	title := "YouTube Video: " + videoID
	metadata := &models.YouTubeMetadata{VideoID: videoID}
	if meta, err := h.youtube.FetchMetadata(metaCtx, req.URL); err == nil {
		metadata = meta
		if meta.Title != "" {
			title = meta.Title
		}
	} else {
		log.Printf("oEmbed lookup failed for %s: %v", videoID, err)
	}
	if metadata.ThumbnailURL == "" {
		metadata.ThumbnailURL = "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
	}

	fileType := "youtube"
	doc := &models.Document{
		SessionID: req.SessionID,
		UserID:    userID,
		Title:     title,
		FileType:  &fileType,
		SourceURL: &req.URL,
	}

	if err := h.documentRepo.Create(r.Context(), doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create document record", r))
		return
	}

	jobID, ok := h.enqueueGeneration(w, r, userID, req.SessionID, doc.ID, req.ProcessingOption)
	if !ok {
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":      jobID,
		"document_id": doc.ID,
		"metadata":    metadata,
	})
}

func (h *IngestHandler) enqueueGeneration(w http.ResponseWriter, r *http.Request, userID, sessionID, documentID uuid.UUID, option string) (uuid.UUID, bool) {
	if option == "" {
		option = "all"
	}

	configBytes, _ := json.Marshal(models.GenerationConfig{
		SessionID:        sessionID,
		DocumentID:       documentID,
		ProcessingOption: option,
	})

	job := &models.Job{
		UserID:      userID,
		Type:        models.JobTypeContentGeneration,
		ReferenceID: documentID,
		ConfigJSON:  configBytes,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return uuid.Nil, false
	}

	jobBytes, _ := json.Marshal(job)
	if err := h.redis.LPush(r.Context(), GenerationQueue, string(jobBytes)).Err(); err != nil {
		log.Printf("failed to enqueue content-generation job %s: %v", job.ID, err)
		_ = h.jobRepo.UpdateStatus(r.Context(), job.ID, "failed")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Generation queue is unavailable", r))
		return uuid.Nil, false
	}

	return job.ID, true
}

func isAllowedUpload(mime, ext string) bool {
	allowedExt := map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".txt": true}
	if !allowedExt[ext] {
		return false
	}

	switch {
	case strings.HasPrefix(mime, "text/plain"):
		return ext == ".txt"
	case mime == "application/pdf":
		return ext == ".pdf"
	case mime == "application/zip":
		// DOCX is a zip container
		return ext == ".docx"
	case mime == "application/msword":
		return ext == ".doc"
	case mime == "application/octet-stream":
		// Legacy .doc and some docx files detect as generic binary
		return true
	default:
		return false
	}
}
