package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"acharya-backend/internal/models"
)

// GenerationErrorKind classifies vendor failures so the worker can decide
// between retrying and failing the job outright.
type GenerationErrorKind string

const (
	ErrKindSafety      GenerationErrorKind = "safety_blocked"
	ErrKindRateLimit   GenerationErrorKind = "rate_limited"
	ErrKindAuth        GenerationErrorKind = "invalid_credentials"
	ErrKindUnavailable GenerationErrorKind = "source_unavailable"
	ErrKindGeneric     GenerationErrorKind = "generation_failed"
)

// GenerationError is a classified vendor failure. All kinds are terminal;
// the worker only retries errors that never got classified.
type GenerationError struct {
	Kind    GenerationErrorKind
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// AsGenerationError reports whether err carries a classified vendor failure.
func AsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// classifyGenerationError maps raw vendor error text onto the user-facing
// taxonomy. Matching is by substring because the underlying client wraps
// HTTP failures into opaque error strings.
func classifyGenerationError(err error) *GenerationError {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "SAFETY"):
		return &GenerationError{
			Kind:    ErrKindSafety,
			Message: "The content was blocked by safety filters. Please try different content.",
			Err:     err,
		}
	case strings.Contains(msg, "429"):
		return &GenerationError{
			Kind:    ErrKindRateLimit,
			Message: "The AI service is currently busy. Please try again in a few minutes.",
			Err:     err,
		}
	case strings.Contains(msg, "API key not valid"):
		return &GenerationError{
			Kind:    ErrKindAuth,
			Message: "AI service configuration error. Please contact support.",
			Err:     err,
		}
	case strings.Contains(msg, "Failed to fetch"), strings.Contains(msg, "Cannot access URI"):
		return &GenerationError{
			Kind:    ErrKindUnavailable,
			Message: "The source could not be accessed. It may be private, deleted, or region-locked.",
			Err:     err,
		}
	default:
		return &GenerationError{
			Kind:    ErrKindGeneric,
			Message: fmt.Sprintf("Content generation failed: %s", msg),
			Err:     err,
		}
	}
}

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// GenerateFromFile runs one generation request over raw document bytes
// attached inline. The returned text is unparsed model output.
func (s *GeminiService) GenerateFromFile(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: data},
	)
	if err != nil {
		return "", classifyGenerationError(err)
	}

	return s.finishResponse(resp)
}

// GenerateFromVideo asks the model to process a video by URI. Works for
// public YouTube URLs; private or deleted videos surface as a classified
// source_unavailable error.
func (s *GeminiService) GenerateFromVideo(ctx context.Context, prompt, videoURL string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: "video/mp4", URI: videoURL},
	)
	if err != nil {
		return "", classifyGenerationError(err)
	}

	return s.finishResponse(resp)
}

// GenerateText runs a plain text-to-text generation request.
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGenerationError(err)
	}

	return s.finishResponse(resp)
}

// ReformatFlashcards asks the model to rewrite arbitrary Q/A text into the
// bulleted-bold convention the parser's first heuristic understands.
func (s *GeminiService) ReformatFlashcards(ctx context.Context, text string) (string, error) {
	prompt := "Reformat the following flashcard content into this exact format, one card per pair of lines:\n" +
		"* **Q:** [Question text]\n" +
		"* **A:** [Answer text]\n\n" +
		"Preserve every question and answer, change only the formatting. Return nothing else.\n\n" + text

	return s.GenerateText(ctx, prompt)
}

// Chat answers a follow-up question grounded in previously generated study
// material, carrying the prior turns as conversation history.
func (s *GeminiService) Chat(ctx context.Context, summaryContext, message string, history []models.ChatMessage) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	cs.History = []*genai.Content{
		{
			Role: "user",
			Parts: []genai.Part{genai.Text(
				"You are a study assistant. Answer questions using this material as context:\n\n" + summaryContext,
			)},
		},
		{
			Role:  "model",
			Parts: []genai.Part{genai.Text("Understood. I will answer questions about this material.")},
		},
	}

	for _, m := range history {
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", classifyGenerationError(err)
	}

	return s.finishResponse(resp)
}

// TranscribeAudio uses the Gemini File API to transcribe downloaded audio,
// the last-resort fallback when no transcript can be fetched for a video.
func (s *GeminiService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "youtube-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}

	// Ensure remote file is cleaned up
	defer s.client.DeleteFile(context.Background(), file.Name)

	// Wait until file is active
	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	prompt := "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", classifyGenerationError(err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty transcription")
	}

	return text, nil
}

// finishResponse logs non-stop finish reasons and rejects empty output.
func (s *GeminiService) finishResponse(resp *genai.GenerateContentResponse) (string, error) {
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("Gemini candidate %d finished with %s", i, cand.FinishReason)
		}
		if cand.FinishReason == genai.FinishReasonSafety {
			return "", &GenerationError{
				Kind:    ErrKindSafety,
				Message: "The content was blocked by safety filters. Please try different content.",
				Err:     fmt.Errorf("finish reason SAFETY"),
			}
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty response")
	}

	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
