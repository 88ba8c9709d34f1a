// Package prompt builds the model-ready prompts sent by the assistant. Every
// builder is pure: the same inputs always yield the same prompt and nothing
// is truncated.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Desarso/ideassist/editor"
)

// ErrInputTooLarge is returned by CheckSize when a prompt exceeds the
// configured limit.
var ErrInputTooLarge = errors.New("prompt: input too large")

// SystemPrompt is sent alongside chat prompts to providers that accept a
// separate system instruction.
const SystemPrompt = "You are a programming assistant embedded in an online code editor. " +
	"Answer questions about the user's code concisely and use fenced code blocks for code."

// BuildChatPrompt embeds the full editor text, the selection (when there is
// one) and the user's message into the chat template.
func BuildChatPrompt(snap editor.Snapshot, userText string) string {
	var b strings.Builder
	b.WriteString("### Source Code:\n```\n")
	b.WriteString(snap.FullText)
	b.WriteString("\n```\n\n")
	if snap.SelectedText != "" {
		b.WriteString("### Selected Code:\n```\n")
		b.WriteString(snap.SelectedText)
		b.WriteString("\n```\n\n")
	}
	b.WriteString("### User Message:\n")
	b.WriteString(userText)
	return b.String()
}

// BuildCompletionPrompt asks the model for a bare code continuation between
// the two halves of the document.
func BuildCompletionPrompt(textBeforeCursor, textAfterCursor string) string {
	return fmt.Sprintf(`You are a code completion assistant. Given the following context, generate the most likely code completion.

### Code Before Cursor:
%s

### Code After Cursor:
%s

### Instructions:
- Predict the next logical code segment.
- Ensure the suggestion is syntactically and contextually correct.
- Keep the completion concise and relevant.
- Do not repeat existing code.
- Provide only the missing code.
- **Respond with only the code, without markdown formatting.**
- **Do not include triple backticks (`+"```"+`) or additional explanations.**

### Completion:`, textBeforeCursor, textAfterCursor)
}

// BuildExplainPrompt asks for an explanation of a selected snippet.
func BuildExplainPrompt(selection string) string {
	return "Explain this code:\n" + selection
}

// BuildAnalysisPrompt asks the model to review the whole document.
func BuildAnalysisPrompt(code string) string {
	return "Analyze this code for potential issues:\n" + code
}

// BuildFixPrompt asks for a fix for a compiler or runtime error.
func BuildFixPrompt(compilerError string) string {
	return "Fix this compilation error:\n" + compilerError
}

// CheckSize reports ErrInputTooLarge when limit is positive and the prompt
// is longer than limit bytes.
func CheckSize(prompt string, limit int) error {
	if limit > 0 && len(prompt) > limit {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInputTooLarge, len(prompt), limit)
	}
	return nil
}

// StripFences removes a surrounding markdown code fence that a model added
// despite being told not to.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the language tag line
		body = body[nl+1:]
	} else {
		body = ""
	}
	body = strings.TrimSuffix(strings.TrimRight(body, " \t\n"), "```")
	return strings.TrimSpace(body)
}
