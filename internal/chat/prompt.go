package chat

import (
	"strings"
	"time"
)

// defaultSystemPrompt builds the system prompt used when the caller supplies
// no override: the assistant persona, the current date and time, and the
// conversation summary when one exists.
func defaultSystemPrompt(now time.Time, summary string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant.\n")
	sb.WriteString("Current date and time: ")
	sb.WriteString(now.Format("Monday, 2 January 2006, 15:04 MST"))
	sb.WriteString(".")
	if summary != "" {
		sb.WriteString("\n\nSummary of the conversation so far: ")
		sb.WriteString(summary)
	}
	return sb.String()
}
