package chat

import (
	"fmt"
	"os"
	"path/filepath"

	"repochat/internal/models"
	"repochat/internal/reply"
)

// BuildPrompt assembles the outbound message list for one turn: an
// optional leading entry with the chat's agent instructions, then the
// user message extended with a delimited block per attached file, in
// attachment order. A missing file yields a bracketed notice instead of
// content; uploaded binary attachments contribute a one-line count
// notice rather than inlined bytes.
func BuildPrompt(repoPath, instructions, message string, attachedFiles []string, uploadCount int) []models.Message {
	var msgs []models.Message
	if instructions != "" {
		msgs = append(msgs, models.Message{Role: "system", Content: instructions})
	}

	content := message
	for _, rel := range attachedFiles {
		data, err := os.ReadFile(filepath.Join(repoPath, filepath.FromSlash(rel)))
		if err != nil {
			content += fmt.Sprintf("\n[File not found: %s]", rel)
			continue
		}
		content += "\n" + reply.StartMarker(rel) + "\n" + string(data) + "\n" + reply.EndMarker(rel)
	}
	if uploadCount > 0 {
		content += fmt.Sprintf("\n[%d image attachment(s) uploaded]", uploadCount)
	}

	return append(msgs, models.Message{Role: "user", Content: content})
}

// summaryInstruction is the system prompt for the post-turn summary call.
const summaryInstruction = "You summarize a single exchange between a user and a coding assistant. " +
	"Reply with one short paragraph of plain text describing what was asked and what was done. " +
	"No markdown, no preamble."

// buildSummaryPrompt asks for a short natural-language summary of the
// exchange that just completed.
func buildSummaryPrompt(userMessage, assistantReply string) []models.Message {
	return []models.Message{
		{Role: "system", Content: summaryInstruction},
		{Role: "user", Content: "User message:\n" + userMessage + "\n\nAssistant reply:\n" + assistantReply},
	}
}
