package services

import (
	"context"
	"log"
	"regexp"
	"strings"

	"acharya-backend/internal/models"
)

var (
	boldQMarker  = regexp.MustCompile(`(?i)\*\*Q:\*\*`)
	boldAMarker  = regexp.MustCompile(`(?i)\*\*A:\*\*`)
	plainQMarker = regexp.MustCompile(`(?mi)^\s*(?:Q|Question)\s*:`)
	plainAMarker = regexp.MustCompile(`(?mi)^\s*(?:A|Answer)\s*:`)
	blankLine    = regexp.MustCompile(`\n\s*\n`)
)

// ParseFlashcards converts loosely structured Q/A text into normalized
// cards. Three heuristics are tried in order; the first that yields at
// least one card wins. An empty result is a valid outcome, not an error.
func ParseFlashcards(text string) []models.Flashcard {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if cards := parseBoldFormat(text); len(cards) > 0 {
		return cards
	}
	if cards := parsePlainFormat(text); len(cards) > 0 {
		return cards
	}
	return parseParagraphFormat(text)
}

// Reformatter is the AI fallback used when no heuristic matches;
// satisfied by GeminiService.
type Reformatter interface {
	ReformatFlashcards(ctx context.Context, text string) (string, error)
}

// NormalizeFlashcards runs the parsing heuristics and, when they all come
// up empty on non-empty input, asks the model to rewrite the text into the
// bulleted-bold convention and parses that. A nil or failing reformatter
// degrades to the plain heuristics.
func NormalizeFlashcards(ctx context.Context, text string, ai Reformatter) []models.Flashcard {
	cards := ParseFlashcards(text)
	if len(cards) > 0 || strings.TrimSpace(text) == "" || ai == nil {
		return cards
	}

	reformatted, err := ai.ReformatFlashcards(ctx, text)
	if err != nil {
		log.Printf("flashcard reformat fallback failed: %v", err)
		return nil
	}

	return parseBoldFormat(reformatted)
}

// parseBoldFormat handles the bulleted-bold convention:
//
//	* **Q:** question
//	* **A:** answer
func parseBoldFormat(text string) []models.Flashcard {
	parts := boldQMarker.Split(text, -1)

	var cards []models.Flashcard
	for _, part := range parts[1:] {
		loc := boldAMarker.FindStringIndex(part)
		if loc == nil {
			continue
		}

		question := cleanCardText(part[:loc[0]])
		answer := cleanCardText(answerBody(part[loc[1]:]))
		if question == "" || answer == "" {
			continue
		}

		cards = append(cards, models.Flashcard{Question: question, Answer: answer})
	}

	return cards
}

// parsePlainFormat handles Q:/A: and Question:/Answer: labels at line starts.
func parsePlainFormat(text string) []models.Flashcard {
	parts := plainQMarker.Split(text, -1)

	var cards []models.Flashcard
	for _, part := range parts[1:] {
		loc := plainAMarker.FindStringIndex(part)
		if loc == nil {
			continue
		}

		question := cleanCardText(part[:loc[0]])
		answer := cleanCardText(answerBody(part[loc[1]:]))
		if question == "" || answer == "" {
			continue
		}

		cards = append(cards, models.Flashcard{Question: question, Answer: answer})
	}

	return cards
}

// parseParagraphFormat treats any paragraph ending in "?" as a question and
// the immediately following paragraph as its answer.
func parseParagraphFormat(text string) []models.Flashcard {
	paragraphs := blankLine.Split(text, -1)

	var cards []models.Flashcard
	for i := 0; i < len(paragraphs)-1; i++ {
		para := strings.TrimSpace(paragraphs[i])
		next := strings.TrimSpace(paragraphs[i+1])

		if strings.HasSuffix(para, "?") && next != "" {
			cards = append(cards, models.Flashcard{
				Question: cleanCardText(para),
				Answer:   cleanCardText(next),
			})
			i++ // the answer paragraph is consumed
		}
	}

	return cards
}

// answerBody trims an answer at the next question marker, if any survived
// the outer split (plain markers inside a bold-format block and vice versa).
func answerBody(s string) string {
	if loc := boldQMarker.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	if loc := plainQMarker.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return s
}

var (
	literalEscapes = strings.NewReplacer(`\n`, " ", `\t`, " ", `\r`, " ")
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// cleanCardText strips literal escape sequences, markdown emphasis markers,
// and surrounding quotes from an extracted question or answer, collapsing
// the leftover whitespace to single spaces.
func cleanCardText(s string) string {
	s = literalEscapes.Replace(s)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
