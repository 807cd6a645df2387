package services

import (
	"sort"
	"strings"
)

// Sections holds the split result of a combined "all" response. Fields are
// empty when the corresponding heading was missing; that is never an error.
type Sections struct {
	Flashcards string
	Summary    string
	Monologue  string
}

type headingMark struct {
	name  string
	start int // index of the heading itself
	body  int // index just past the heading
}

// ExtractSections splits one combined response on the literal section
// headings, case-insensitive, in whatever order the model produced them.
// Each body runs to the next recognized heading or the end of the text.
// Best-effort: malformed output degrades to empty sections.
func ExtractSections(text string) Sections {
	upper := strings.ToUpper(text)

	var marks []headingMark
	for _, h := range []string{HeadingFlashcards, HeadingSummary, HeadingMonologue} {
		if idx := strings.Index(upper, h); idx >= 0 {
			marks = append(marks, headingMark{name: h, start: idx, body: idx + len(h)})
		}
	}

	sort.Slice(marks, func(i, j int) bool { return marks[i].start < marks[j].start })

	var out Sections
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		body := strings.TrimSpace(text[m.body:end])

		switch m.name {
		case HeadingFlashcards:
			out.Flashcards = body
		case HeadingSummary:
			out.Summary = body
		case HeadingMonologue:
			out.Monologue = stripSpeakerPrefix(body)
		}
	}

	return out
}

// stripSpeakerPrefix removes a leading "Alex:" marker so the stored
// monologue is the spoken text itself.
func stripSpeakerPrefix(text string) string {
	prefix := MonologueSpeaker + ":"
	if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
		return strings.TrimSpace(text[len(prefix):])
	}
	return text
}
