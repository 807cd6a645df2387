package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// maxSpeechChars is the hard input cap for one synthesis request. Longer
// text is truncated before it ever reaches the vendor.
const maxSpeechChars = 2000

// SpeechService turns text into MP3 audio through the Deepgram speak API
// and stores the result under the public audio directory.
type SpeechService struct {
	apiKey     string
	voice      string
	baseURL    string
	outputDir  string
	httpClient *http.Client
}

func NewSpeechService(apiKey, voice, publicPath string) *SpeechService {
	return &SpeechService{
		apiKey:    apiKey,
		voice:     voice,
		baseURL:   "https://api.deepgram.com",
		outputDir: filepath.Join(publicPath, "audio"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Enabled reports whether synthesis is configured. Without a key every
// synthesis request is skipped and callers fall back to text-only output.
func (s *SpeechService) Enabled() bool {
	return s.apiKey != ""
}

// Synthesize converts text to speech and writes the MP3 to disk. filePrefix
// names the artifact ("monologue", "summary"); the returned path is the
// web path clients resolve against the static audio mount.
func (s *SpeechService) Synthesize(ctx context.Context, text, filePrefix string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("speech synthesis is not configured")
	}

	runes := []rune(text)
	if len(runes) > maxSpeechChars {
		runes = runes[:maxSpeechChars]
	}

	body, err := json.Marshal(map[string]string{"text": string(runes)})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/speak?model=%s", s.baseURL, s.voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("speech API returned %d: %s", resp.StatusCode, string(msg))
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	fileName := fmt.Sprintf("%s-%d.mp3", filePrefix, time.Now().UnixMilli())
	fullPath := filepath.Join(s.outputDir, fileName)

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	return "/audio/" + fileName, nil
}
