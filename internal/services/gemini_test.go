package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyGenerationError(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind GenerationErrorKind
		wantMsg  string
	}{
		{
			name:     "safety block",
			raw:      "blocked: candidate finish reason SAFETY",
			wantKind: ErrKindSafety,
			wantMsg:  "The content was blocked by safety filters. Please try different content.",
		},
		{
			name:     "rate limit",
			raw:      "googleapi: Error 429: Resource has been exhausted",
			wantKind: ErrKindRateLimit,
			wantMsg:  "The AI service is currently busy. Please try again in a few minutes.",
		},
		{
			name:     "bad credentials",
			raw:      "googleapi: Error 400: API key not valid. Please pass a valid API key.",
			wantKind: ErrKindAuth,
			wantMsg:  "AI service configuration error. Please contact support.",
		},
		{
			name:     "unreachable source",
			raw:      "Cannot access URI https://youtube.com/watch?v=abc",
			wantKind: ErrKindUnavailable,
			wantMsg:  "The source could not be accessed. It may be private, deleted, or region-locked.",
		},
		{
			name:     "unknown failure keeps raw message",
			raw:      "connection reset by peer",
			wantKind: ErrKindGeneric,
			wantMsg:  "Content generation failed: connection reset by peer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := classifyGenerationError(errors.New(tt.raw))
			if ge.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ge.Kind, tt.wantKind)
			}
			if ge.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", ge.Message, tt.wantMsg)
			}
		})
	}
}

func TestAsGenerationError(t *testing.T) {
	inner := classifyGenerationError(errors.New("429 too many requests"))
	wrapped := fmt.Errorf("generation step: %w", inner)

	ge, ok := AsGenerationError(wrapped)
	if !ok {
		t.Fatal("expected wrapped GenerationError to be detected")
	}
	if ge.Kind != ErrKindRateLimit {
		t.Errorf("kind = %s, want %s", ge.Kind, ErrKindRateLimit)
	}

	if _, ok := AsGenerationError(errors.New("plain")); ok {
		t.Error("plain error should not classify")
	}
}

func TestGenerationErrorUnwrap(t *testing.T) {
	raw := errors.New("SAFETY threshold exceeded")
	ge := classifyGenerationError(raw)

	if !errors.Is(ge, raw) {
		t.Error("classified error should unwrap to the raw error")
	}
	if !strings.Contains(ge.Error(), "safety") {
		t.Errorf("message %q should mention safety", ge.Error())
	}
}
