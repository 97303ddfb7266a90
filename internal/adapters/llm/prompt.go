package llm

import (
	"fmt"
	"strings"

	"github.com/alphalink/alphalink/internal/domain"
)

// analysisInstruction is the fixed system instruction for suggestion
// analysis. The rewrite is a total replacement of the document: the
// workflow stores revised_documentation verbatim.
const analysisInstruction = `You are a collaboration analyst for a shared project document.
You will receive the current document and a numbered list of free-text suggestions from participants.

For every suggestion, decide whether it should be incorporated into the document and give a short rationale.
Then rewrite the ENTIRE document, incorporating the accepted suggestions. Do not produce a diff or a summary; produce the full replacement text.

Classify every suggestion exactly once, in the order given.`

// BuildAnalysisPrompt lays out the document and suggestion list for the
// analysis call.
func BuildAnalysisPrompt(document string, suggestions []string) string {
	var b strings.Builder

	b.WriteString("Current document:\n---\n")
	if strings.TrimSpace(document) == "" {
		b.WriteString("(empty)")
	} else {
		b.WriteString(document)
	}
	b.WriteString("\n---\n\nSuggestions:\n")

	for i, s := range suggestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}

// BuildPersonaPrompt produces the system instruction for a chat reply.
func BuildPersonaPrompt(persona domain.Persona) string {
	if persona.SystemPrompt != "" {
		return persona.SystemPrompt
	}
	return "You are " + domain.DefaultPersonaLabel + ", a helpful assistant inside the AlphaLink chat. " +
		"Answer the user's request directly and keep replies concise enough to read in a chat window."
}
