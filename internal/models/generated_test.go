package models

import (
	"encoding/json"
	"testing"
)

func TestContentPayload_CardsRoundTrip(t *testing.T) {
	cards := []Flashcard{
		{Question: "What is X?", Answer: "X is Y."},
		{Question: "What is Z?", Answer: "Z is W."},
	}

	data, err := json.Marshal(CardsPayload(cards))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got ContentPayload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if got.Shape != ShapeCards {
		t.Fatalf("expected cards shape, got %v", got.Shape)
	}
	if len(got.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(got.Cards))
	}
	for i := range cards {
		if got.Cards[i] != cards[i] {
			t.Errorf("card %d: expected %+v, got %+v", i, cards[i], got.Cards[i])
		}
	}
}

func TestContentPayload_LegacyShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantShape PayloadShape
		wantText  string
		wantAudio string
	}{
		{"bare string", `"just a summary"`, ShapeText, "just a summary", ""},
		{"object with text", `{"text":"hello","audioPath":"/audio/a.mp3"}`, ShapeStructured, "hello", "/audio/a.mp3"},
		{"object with content field", `{"content":"body here"}`, ShapeStructured, "body here", ""},
		{"double encoded object", `"{\"text\":\"nested\"}"`, ShapeStructured, "nested", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p ContentPayload
			if err := json.Unmarshal([]byte(tc.raw), &p); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if p.Shape != tc.wantShape {
				t.Errorf("expected shape %v, got %v", tc.wantShape, p.Shape)
			}
			if p.Text != tc.wantText {
				t.Errorf("expected text %q, got %q", tc.wantText, p.Text)
			}
			if p.AudioPath != tc.wantAudio {
				t.Errorf("expected audioPath %q, got %q", tc.wantAudio, p.AudioPath)
			}
		})
	}
}

func TestContentPayload_WithAudioPathKeepsOriginalText(t *testing.T) {
	var p ContentPayload
	if err := json.Unmarshal([]byte(`"Alex talks about compilers."`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	merged := p.WithAudioPath("/audio/monologue-123.mp3")

	data, err := json.Marshal(merged)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("expected structured object after merge, got %s", data)
	}

	if got["text"] != "Alex talks about compilers." {
		t.Errorf("original text lost: %q", got["text"])
	}
	if got["audioPath"] != "/audio/monologue-123.mp3" {
		t.Errorf("audioPath not merged: %q", got["audioPath"])
	}
}

func TestContentPayload_SpeakableText(t *testing.T) {
	structured := StructuredPayload("speak me", "/audio/x.mp3")
	if structured.SpeakableText() != "speak me" {
		t.Errorf("expected text field, got %q", structured.SpeakableText())
	}

	cards := CardsPayload([]Flashcard{{Question: "Q1?", Answer: "A1."}})
	if cards.SpeakableText() != "Q1? A1." {
		t.Errorf("expected joined cards, got %q", cards.SpeakableText())
	}
}
