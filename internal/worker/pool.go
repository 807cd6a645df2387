package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"acharya-backend/internal/models"
	"acharya-backend/internal/repository"
	"acharya-backend/internal/services"
)

const generationQueue = "queue:content-generation"

type Pool struct {
	redis         *redis.Client
	gemini        *services.GeminiService
	speech        *services.SpeechService
	youtube       *services.YouTubeService
	fileExtract   *services.FileExtractService
	jobRepo       *repository.JobRepo
	documentRepo  *repository.DocumentRepo
	generatedRepo *repository.GeneratedRepo
	sessionRepo   *repository.SessionRepo
	storagePath   string
	workerCount   int
	stopChan      chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	speech *services.SpeechService,
	youtube *services.YouTubeService,
	fileExtract *services.FileExtractService,
	jobRepo *repository.JobRepo,
	documentRepo *repository.DocumentRepo,
	generatedRepo *repository.GeneratedRepo,
	sessionRepo *repository.SessionRepo,
	storagePath string,
	workerCount int,
) *Pool {
	return &Pool{
		redis:         redisClient,
		gemini:        gemini,
		speech:        speech,
		youtube:       youtube,
		fileExtract:   fileExtract,
		jobRepo:       jobRepo,
		documentRepo:  documentRepo,
		generatedRepo: generatedRepo,
		sessionRepo:   sessionRepo,
		storagePath:   storagePath,
		workerCount:   workerCount,
		stopChan:      make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, generationQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s", id, job.ID)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     1,
				StepName: "Analyzing content",
			},
		})

		var processErr error
		var contentIDs []uuid.UUID
		switch job.Type {
		case models.JobTypeContentGeneration:
			contentIDs, processErr = p.processGeneration(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, contentIDs)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// processGeneration runs the full pipeline for one document: resolve the
// source, generate with Gemini, split and normalize the artifacts,
// synthesize monologue audio, and persist the rows.
func (p *Pool) processGeneration(ctx context.Context, job *models.Job) ([]uuid.UUID, error) {
	var config models.GenerationConfig
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return nil, fmt.Errorf("invalid job config: %w", err)
	}
	if config.ProcessingOption == "" {
		config.ProcessingOption = "all"
	}

	doc, err := p.documentRepo.GetByID(ctx, config.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	isVideo := doc.FileType != nil && *doc.FileType == "youtube"
	contentType := "document"
	if isVideo {
		contentType = "video"
	}

	prompt := services.BuildPrompt(config.ProcessingOption, contentType)

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 2, StepName: "Generating study material",
			EstimatedSecondsRemaining: 45,
		},
	})

	genCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var raw string
	if isVideo {
		raw, err = p.generateFromVideo(genCtx, job, doc, prompt)
	} else {
		raw, err = p.generateFromDocument(genCtx, doc, prompt)
	}
	if err != nil {
		return nil, err
	}

	contentIDs, err := p.persistArtifacts(ctx, job, doc, config.ProcessingOption, raw)
	if err != nil {
		return nil, err
	}

	p.sessionRepo.Touch(ctx, doc.SessionID)
	return contentIDs, nil
}

// generateFromDocument sends the raw file bytes to the model inline and,
// best effort, stores locally extracted text for chat grounding.
func (p *Pool) generateFromDocument(ctx context.Context, doc *models.Document, prompt string) (string, error) {
	if doc.FilePath == nil || *doc.FilePath == "" {
		return "", fmt.Errorf("document %s has no file path", doc.ID)
	}

	fullPath := filepath.Join(p.storagePath, *doc.FilePath)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fullPath))
	if doc.Content == "" && p.fileExtract != nil {
		if extracted, extractErr := p.fileExtract.ExtractTextFromPath(fullPath); extractErr == nil {
			if saveErr := p.documentRepo.UpdateContent(ctx, doc.ID, extracted); saveErr != nil {
				log.Printf("failed to save extracted text for document %s: %v", doc.ID, saveErr)
			}
		}
	}

	return p.gemini.GenerateFromFile(ctx, prompt, data, services.MimeTypeForExt(ext))
}

// generateFromVideo tries the direct video URI first, then falls back to
// fetching a transcript (captions, then audio transcription) and
// generating from text. Classified vendor errors other than
// source_unavailable are surfaced as-is.
func (p *Pool) generateFromVideo(ctx context.Context, job *models.Job, doc *models.Document, prompt string) (string, error) {
	if doc.SourceURL == nil || *doc.SourceURL == "" {
		return "", fmt.Errorf("youtube document %s has no source URL", doc.ID)
	}

	raw, err := p.gemini.GenerateFromVideo(ctx, prompt, *doc.SourceURL)
	if err == nil {
		return raw, nil
	}

	if ge, ok := services.AsGenerationError(err); ok && ge.Kind != services.ErrKindUnavailable {
		return "", err
	}
	log.Printf("direct video generation failed for %s, trying transcript: %v", doc.ID, err)

	transcript, terr := p.resolveTranscript(ctx, job, doc)
	if terr != nil {
		// The original failure already carries the user-facing message.
		return "", fmt.Errorf("%w (transcript fallback also failed: %v)", err, terr)
	}

	return p.gemini.GenerateText(ctx, prompt+"\n\n---TRANSCRIPT START---\n"+transcript+"\n---TRANSCRIPT END---")
}

func (p *Pool) resolveTranscript(ctx context.Context, job *models.Job, doc *models.Document) (string, error) {
	if doc.Content != "" {
		return doc.Content, nil
	}

	videoID, err := services.ExtractVideoID(*doc.SourceURL)
	if err != nil {
		return "", err
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 2, StepName: "Extracting transcript from video",
		},
	})

	transcript, err := p.youtube.GetTranscript(videoID)
	if err != nil {
		log.Printf("Transcript extraction failed for %s: %v", videoID, err)

		// STT fallback via Gemini multimodal audio transcription
		audioBytes, mimeType, audioErr := p.youtube.DownloadAudio(*doc.SourceURL)
		if audioErr != nil {
			return "", fmt.Errorf("captions unavailable (%v) and audio download failed: %w", err, audioErr)
		}

		transcript, err = p.gemini.TranscribeAudio(ctx, audioBytes, mimeType)
		if err != nil {
			return "", fmt.Errorf("audio transcription failed: %w", err)
		}
	}

	if saveErr := p.documentRepo.UpdateContent(ctx, doc.ID, transcript); saveErr != nil {
		log.Printf("failed to save transcript for document %s: %v", doc.ID, saveErr)
	}
	doc.Content = transcript

	return transcript, nil
}

// persistArtifacts turns raw model output into canonical rows. For the
// combined option the response is split on the section headings; a response
// where no heading survived is stored whole so the output is never lost.
func (p *Pool) persistArtifacts(ctx context.Context, job *models.Job, doc *models.Document, option, raw string) ([]uuid.UUID, error) {
	var rows []*models.GeneratedContent

	switch option {
	case "all":
		sections := services.ExtractSections(raw)

		if sections.Flashcards != "" {
			cards := services.NormalizeFlashcards(ctx, sections.Flashcards, p.gemini)
			rows = append(rows, p.newRow(job, doc, models.TypeFlashcards, flashcardPayload(cards, sections.Flashcards)))
		}
		if sections.Summary != "" {
			rows = append(rows, p.newRow(job, doc, models.TypeSummary, models.TextPayload(sections.Summary)))
		}
		if sections.Monologue != "" {
			rows = append(rows, p.newRow(job, doc, models.TypeMonologue, p.monologuePayload(ctx, job, sections.Monologue)))
		}

		if len(rows) == 0 {
			rows = append(rows, p.newRow(job, doc, models.TypeGenerated, models.TextPayload(raw)))
		}

	case "flashcards":
		cards := services.NormalizeFlashcards(ctx, raw, p.gemini)
		rows = append(rows, p.newRow(job, doc, models.TypeFlashcards, flashcardPayload(cards, raw)))

	case "summary":
		rows = append(rows, p.newRow(job, doc, models.TypeSummary, models.TextPayload(raw)))

	case "monologue", "conversation":
		rows = append(rows, p.newRow(job, doc, models.TypeMonologue, p.monologuePayload(ctx, job, raw)))

	default:
		rows = append(rows, p.newRow(job, doc, models.TypeGenerated, models.TextPayload(raw)))
	}

	var contentIDs []uuid.UUID
	for _, row := range rows {
		if err := p.generatedRepo.Create(ctx, row); err != nil {
			return contentIDs, fmt.Errorf("failed to save %s content: %w", row.Type, err)
		}
		contentIDs = append(contentIDs, row.ID)
	}

	return contentIDs, nil
}

func (p *Pool) newRow(job *models.Job, doc *models.Document, artifactType string, payload models.ContentPayload) *models.GeneratedContent {
	docID := doc.ID
	return &models.GeneratedContent{
		SessionID:  doc.SessionID,
		UserID:     job.UserID,
		DocumentID: &docID,
		Type:       artifactType,
		Content:    payload,
	}
}

// monologuePayload synthesizes audio for the spoken text. Synthesis failure
// is partial success: the text is stored without an audio path and can be
// regenerated later.
func (p *Pool) monologuePayload(ctx context.Context, job *models.Job, text string) models.ContentPayload {
	if p.speech == nil || !p.speech.Enabled() {
		return models.StructuredPayload(text, "")
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID: job.ID, Step: 3, StepName: "Synthesizing audio",
			EstimatedSecondsRemaining: 15,
		},
	})

	synthCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	audioPath, err := p.speech.Synthesize(synthCtx, text, models.TypeMonologue)
	if err != nil {
		log.Printf("monologue audio synthesis failed for job %s: %v", job.ID, err)
		return models.StructuredPayload(text, "")
	}

	return models.StructuredPayload(text, audioPath)
}

// flashcardPayload stores parsed cards, or the raw text when every
// heuristic (including the AI reformat pass) came up empty.
func flashcardPayload(cards []models.Flashcard, raw string) models.ContentPayload {
	if len(cards) > 0 {
		return models.CardsPayload(cards)
	}
	return models.TextPayload(raw)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, contentIDs []uuid.UUID) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	var config models.GenerationConfig
	json.Unmarshal(job.ConfigJSON, &config)

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			SessionID:  config.SessionID,
			ContentIDs: contentIDs,
		},
	})

	log.Printf("Job %s completed successfully (%d artifacts)", job.ID, len(contentIDs))
}

// handleFailure retries transient errors with exponential backoff.
// Classified vendor errors are terminal: retrying a safety block or an
// invalid key can never succeed.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()
	errCode := "JOB_FAILED"

	ge, classified := services.AsGenerationError(err)
	if classified {
		errMsg = ge.Message
		errCode = string(ge.Kind)
	}

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if !classified && job.RetryCount < maxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		// Re-queue after backoff
		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), generationQueue, string(jobBytes))
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    errCode,
			ErrorMessage: errMsg,
		},
	})
}
