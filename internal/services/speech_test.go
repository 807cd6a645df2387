package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestSpeechService(t *testing.T, handler http.HandlerFunc) *SpeechService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewSpeechService("test-key", "aura-arcas-en", t.TempDir())
	svc.baseURL = server.URL
	return svc
}

func TestSynthesizeWritesAudioFile(t *testing.T) {
	var gotAuth, gotModel string
	svc := newTestSpeechService(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotModel = r.URL.Query().Get("model")
		w.Write([]byte("mp3-bytes"))
	})

	webPath, err := svc.Synthesize(context.Background(), "Hello there.", "monologue")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if gotAuth != "Token test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "aura-arcas-en" {
		t.Errorf("model = %q", gotModel)
	}
	if !strings.HasPrefix(webPath, "/audio/monologue-") || !strings.HasSuffix(webPath, ".mp3") {
		t.Errorf("web path = %q", webPath)
	}

	data, err := os.ReadFile(filepath.Join(svc.outputDir, filepath.Base(webPath)))
	if err != nil {
		t.Fatalf("reading audio file: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestSynthesizeTruncatesLongText(t *testing.T) {
	var sentText string
	svc := newTestSpeechService(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		sentText = payload.Text
		w.Write([]byte("ok"))
	})

	long := strings.Repeat("a", 5000)
	if _, err := svc.Synthesize(context.Background(), long, "monologue"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if utf8.RuneCountInString(sentText) != maxSpeechChars {
		t.Errorf("sent %d chars, want %d", utf8.RuneCountInString(sentText), maxSpeechChars)
	}
}

func TestSynthesizeVendorError(t *testing.T) {
	svc := newTestSpeechService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg":"invalid model"}`, http.StatusBadRequest)
	})

	if _, err := svc.Synthesize(context.Background(), "text", "monologue"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestSynthesizeDisabledWithoutKey(t *testing.T) {
	svc := NewSpeechService("", "aura-arcas-en", t.TempDir())

	if svc.Enabled() {
		t.Error("service should be disabled without an API key")
	}
	if _, err := svc.Synthesize(context.Background(), "text", "monologue"); err == nil {
		t.Fatal("expected error when synthesis is not configured")
	}
}
