package services

import (
	"fmt"
	"strings"
)

// Section headings the combined "all" prompt asks for. The extractor in
// sections.go splits on these same literals, so prompt and parser share
// one contract.
const (
	HeadingFlashcards = "FLASHCARDS:"
	HeadingSummary    = "SUMMARY:"
	HeadingMonologue  = "MONOLOGUE:"
)

// MonologueSpeaker is the fixed speaker name for synthesized monologues.
const MonologueSpeaker = "Alex"

// BuildPrompt returns the instruction text for one generation request.
// option selects the artifact kind; contentType is "document" or "video".
// Deterministic, no side effects.
func BuildPrompt(option, contentType string) string {
	contentDesc := "the attached document"
	if contentType == "video" {
		contentDesc = "this video"
	}

	switch option {
	case "flashcards":
		return fmt.Sprintf("Generate concise flashcards (question/answer format) covering the key points of %s:", contentDesc)
	case "summary":
		return fmt.Sprintf("Provide a detailed summary of %s, highlighting the main arguments, topics, and conclusions:", contentDesc)
	case "conversation", "monologue":
		return monologueInstruction(contentDesc)
	case "all":
		return allInstruction(contentDesc)
	default:
		return fmt.Sprintf("Summarize the key information in %s:", contentDesc)
	}
}

func monologueInstruction(contentDesc string) string {
	return fmt.Sprintf(
		"Create an engaging spoken monologue delivered by a single speaker named %s explaining the core concepts and key takeaways of %s. "+
			"The monologue must be strictly between 1800 and 2000 characters long. "+
			"Use a natural, conversational tone suitable for listening. "+
			"Format the output exactly as \"%s: <monologue text>\" with no headings, bullet points, or other formatting.",
		MonologueSpeaker, contentDesc, MonologueSpeaker)
}

func allInstruction(contentDesc string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze %s and produce three sections in a single response, each introduced by its exact literal heading on its own line.\n\n", contentDesc)

	fmt.Fprintf(&b, "%s\n", HeadingFlashcards)
	b.WriteString("Concise flashcards (question/answer format) covering the key points.\n\n")

	fmt.Fprintf(&b, "%s\n", HeadingSummary)
	b.WriteString("A detailed summary highlighting the main arguments, topics, and conclusions.\n\n")

	fmt.Fprintf(&b, "%s\n", HeadingMonologue)
	fmt.Fprintf(&b, "An engaging spoken monologue delivered by a single speaker named %s, strictly between 1800 and 2000 characters, natural conversational tone, formatted exactly as \"%s: <monologue text>\" with no other formatting.\n\n", MonologueSpeaker, MonologueSpeaker)

	fmt.Fprintf(&b, "Use the headings %s %s %s exactly as written so the sections can be separated.", HeadingFlashcards, HeadingSummary, HeadingMonologue)

	return b.String()
}
