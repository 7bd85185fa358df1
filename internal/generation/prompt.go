package generation

import (
	"fmt"
	"strings"
)

const answerSystemInstruction = "You are a careful legal-document assistant. " +
	"Answer questions strictly from the document excerpts provided in the context. " +
	"Quote or reference the relevant clause where possible. " +
	"If the context does not contain the answer, say so plainly instead of guessing. " +
	"Do not invent terms, parties, dates, or obligations that are not in the context."

const noGroundingInstruction = "You are a careful legal-document assistant. " +
	"No relevant excerpts were found in the document for this question. " +
	"Tell the user that the document does not appear to address their question, " +
	"and suggest they rephrase or ask about another part of the document. " +
	"Do not answer from general knowledge."

// HistoryEntry is one prior question/answer pair carried into the
// prompt. The generation service is stateless per call; all
// conversational state travels here.
type HistoryEntry struct {
	Question string
	Answer   string
}

// buildAnswerPrompt assembles the grounded QA prompt: bounded history,
// the retrieved context, then the current question.
func buildAnswerPrompt(query, context string, history []HistoryEntry) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", h.Question, h.Answer)
		}
		b.WriteString("\n")
	}

	b.WriteString("Document excerpts:\n")
	b.WriteString(context)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question: %s\n", query)
	b.WriteString("Answer from the excerpts above.")

	return b.String()
}

// buildNoGroundingPrompt assembles the explicit empty-context prompt.
// Routing through a separate template, rather than sending an empty
// context, makes the unresolved branch observable.
func buildNoGroundingPrompt(query string, history []HistoryEntry) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", h.Question, h.Answer)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", query)
	b.WriteString("No matching excerpts were found in the document.")

	return b.String()
}

// boundHistory keeps only the most recent window entries.
func boundHistory(history []HistoryEntry, window int) []HistoryEntry {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
