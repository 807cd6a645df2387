package services

import (
	"context"
	"errors"
	"testing"

	"acharya-backend/internal/models"
)

func TestParseFlashcardsBoldFormat(t *testing.T) {
	text := "* **Q:** What is X?  \n* **A:** X is Y."

	cards := ParseFlashcards(text)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Question != "What is X?" {
		t.Errorf("question = %q, want %q", cards[0].Question, "What is X?")
	}
	if cards[0].Answer != "X is Y." {
		t.Errorf("answer = %q, want %q", cards[0].Answer, "X is Y.")
	}
}

func TestParseFlashcardsBoldFormatMultiple(t *testing.T) {
	text := "Here are your flashcards:\n\n" +
		"* **Q:** What is photosynthesis?\n* **A:** The process plants use to convert light into energy.\n" +
		"* **Q:** Where does it occur?\n* **A:** In the chloroplasts.\n"

	cards := ParseFlashcards(text)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Question != "What is photosynthesis?" {
		t.Errorf("first question = %q", cards[0].Question)
	}
	if cards[1].Answer != "In the chloroplasts." {
		t.Errorf("second answer = %q", cards[1].Answer)
	}
}

func TestParseFlashcardsPlainFormat(t *testing.T) {
	text := "Q: What is X?\nA: X is Y.\nQ: What is Z?\nA: Z is W."

	cards := ParseFlashcards(text)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}

	want := []models.Flashcard{
		{Question: "What is X?", Answer: "X is Y."},
		{Question: "What is Z?", Answer: "Z is W."},
	}
	for i, w := range want {
		if cards[i] != w {
			t.Errorf("card %d = %+v, want %+v", i, cards[i], w)
		}
	}
}

func TestParseFlashcardsQuestionAnswerLabels(t *testing.T) {
	text := "Question: What powers the sun?\nAnswer: Nuclear fusion of hydrogen into helium."

	cards := ParseFlashcards(text)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Question != "What powers the sun?" {
		t.Errorf("question = %q", cards[0].Question)
	}
}

func TestParseFlashcardsParagraphFallback(t *testing.T) {
	text := "What is the capital of France?\n\nParis, a city on the Seine.\n\nWhat is the capital of Japan?\n\nTokyo."

	cards := ParseFlashcards(text)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Answer != "Paris, a city on the Seine." {
		t.Errorf("answer = %q", cards[0].Answer)
	}
}

func TestParseFlashcardsNoStructure(t *testing.T) {
	text := "This is plain prose about a topic. It has no questions and no answers, just sentences."

	if cards := ParseFlashcards(text); len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
}

func TestParseFlashcardsEmptyInput(t *testing.T) {
	if cards := ParseFlashcards("   \n  "); cards != nil {
		t.Fatalf("expected nil, got %v", cards)
	}
}

func TestParseFlashcardsCleansMarkup(t *testing.T) {
	text := `* **Q:** "What is \n entropy?"
* **A:** *A measure of disorder.*`

	cards := ParseFlashcards(text)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Question != "What is entropy?" {
		t.Errorf("question = %q", cards[0].Question)
	}
	if cards[0].Answer != "A measure of disorder." {
		t.Errorf("answer = %q", cards[0].Answer)
	}
}

type stubReformatter struct {
	out string
	err error
}

func (s *stubReformatter) ReformatFlashcards(ctx context.Context, text string) (string, error) {
	return s.out, s.err
}

func TestNormalizeFlashcardsUsesFallback(t *testing.T) {
	ai := &stubReformatter{out: "* **Q:** What is X?\n* **A:** X is Y."}

	cards := NormalizeFlashcards(context.Background(), "unparseable prose about X", ai)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card from fallback, got %d", len(cards))
	}
	if cards[0].Question != "What is X?" {
		t.Errorf("question = %q", cards[0].Question)
	}
}

func TestNormalizeFlashcardsSkipsFallbackWhenParsed(t *testing.T) {
	ai := &stubReformatter{err: errors.New("should not be called")}

	cards := NormalizeFlashcards(context.Background(), "Q: What is X?\nA: X is Y.", ai)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
}

func TestNormalizeFlashcardsFallbackError(t *testing.T) {
	ai := &stubReformatter{err: errors.New("quota exceeded")}

	if cards := NormalizeFlashcards(context.Background(), "prose with no structure", ai); len(cards) != 0 {
		t.Fatalf("expected no cards on fallback failure, got %d", len(cards))
	}
}
