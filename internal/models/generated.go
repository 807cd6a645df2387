package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact kinds stored in generated_content.type.
const (
	TypeSummary    = "summary"
	TypeFlashcards = "flashcards"
	TypeMonologue  = "monologue"
	TypePodcast    = "podcast"
	TypeGenerated  = "generated"
)

type GeneratedContent struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  uuid.UUID      `json:"session_id"`
	UserID     uuid.UUID      `json:"user_id"`
	DocumentID *uuid.UUID     `json:"document_id"`
	Type       string         `json:"type"`
	Content    ContentPayload `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type PayloadShape int

const (
	ShapeText PayloadShape = iota
	ShapeStructured
	ShapeCards
)

// ContentPayload is the variant stored in generated_content.content.
// Historical rows hold one of three shapes: a bare JSON string, an object
// with text/audioPath fields, or an array of flashcards. Reads accept all
// three; writes produce one canonical shape per artifact type. JSON keys
// match the historical rows so old data stays readable.
type ContentPayload struct {
	Shape     PayloadShape `json:"-"`
	Text      string       `json:"-"`
	AudioPath string       `json:"-"`
	Cards     []Flashcard  `json:"-"`
}

func TextPayload(text string) ContentPayload {
	return ContentPayload{Shape: ShapeText, Text: text}
}

func StructuredPayload(text, audioPath string) ContentPayload {
	return ContentPayload{Shape: ShapeStructured, Text: text, AudioPath: audioPath}
}

func CardsPayload(cards []Flashcard) ContentPayload {
	return ContentPayload{Shape: ShapeCards, Cards: cards}
}

func (p ContentPayload) MarshalJSON() ([]byte, error) {
	switch p.Shape {
	case ShapeCards:
		if p.Cards == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.Cards)
	case ShapeStructured:
		obj := map[string]string{"text": p.Text}
		if p.AudioPath != "" {
			obj["audioPath"] = p.AudioPath
		}
		return json.Marshal(obj)
	default:
		return json.Marshal(p.Text)
	}
}

func (p *ContentPayload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*p = ContentPayload{Shape: ShapeText}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var cards []Flashcard
		if err := json.Unmarshal(trimmed, &cards); err == nil {
			*p = ContentPayload{Shape: ShapeCards, Cards: cards}
			return nil
		}
		// Array of something else entirely; keep it as raw text.
		*p = ContentPayload{Shape: ShapeText, Text: string(trimmed)}
		return nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			*p = ContentPayload{Shape: ShapeText, Text: string(trimmed)}
			return nil
		}
		out := ContentPayload{Shape: ShapeStructured}
		if raw, ok := obj["text"]; ok {
			json.Unmarshal(raw, &out.Text)
		}
		if out.Text == "" {
			if raw, ok := obj["content"]; ok {
				json.Unmarshal(raw, &out.Text)
			}
		}
		if raw, ok := obj["audioPath"]; ok {
			json.Unmarshal(raw, &out.AudioPath)
		}
		if out.Text == "" && out.AudioPath == "" {
			// Object without any recognized field; fall back to the
			// stringified object so nothing is lost.
			out.Text = string(trimmed)
		}
		*p = out
		return nil
	default:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*p = ContentPayload{Shape: ShapeText, Text: string(trimmed)}
			return nil
		}
		// Some rows stored JSON encoded a second time inside a string.
		inner := strings.TrimSpace(s)
		if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') {
			var nested ContentPayload
			if err := json.Unmarshal([]byte(inner), &nested); err == nil {
				*p = nested
				return nil
			}
		}
		*p = ContentPayload{Shape: ShapeText, Text: s}
		return nil
	}
}

// SpeakableText derives the text to hand to the speech synthesizer.
// Monologue and podcast rows prefer the stored text field; anything else
// falls back to whatever textual body the payload carries.
func (p ContentPayload) SpeakableText() string {
	switch p.Shape {
	case ShapeCards:
		var b strings.Builder
		for _, c := range p.Cards {
			b.WriteString(c.Question)
			b.WriteString(" ")
			b.WriteString(c.Answer)
			b.WriteString(" ")
		}
		return strings.TrimSpace(b.String())
	default:
		return p.Text
	}
}

// WithAudioPath merges a freshly synthesized audio path into the payload
// without discarding the original text. A bare-string payload is promoted
// to the structured shape.
func (p ContentPayload) WithAudioPath(audioPath string) ContentPayload {
	merged := p
	if merged.Shape == ShapeCards {
		merged = ContentPayload{Shape: ShapeStructured, Text: p.SpeakableText()}
	}
	merged.Shape = ShapeStructured
	merged.AudioPath = audioPath
	return merged
}
