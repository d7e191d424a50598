package memory

import (
	"strings"
	"time"

	"openchat/internal/llm"
)

// Conversation is the stored history for one conversation key. It is owned
// by Memory; callers read it but mutate it only through Append.
type Conversation struct {
	Messages  []llm.Message `json:"messages"`
	Summary   string        `json:"summary,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// evict trims the message list to max entries, dropping the oldest first.
// A leading system message is always retained.
func (c *Conversation) evict(max int) {
	if max <= 0 || len(c.Messages) <= max {
		return
	}
	if c.Messages[0].Role == llm.RoleSystem && max > 1 {
		tail := c.Messages[len(c.Messages)-(max-1):]
		msgs := make([]llm.Message, 0, max)
		msgs = append(msgs, c.Messages[0])
		msgs = append(msgs, tail...)
		c.Messages = msgs
		return
	}
	c.Messages = c.Messages[len(c.Messages)-max:]
}

// summaryUserMessages is how many recent user turns feed the summary.
const summaryUserMessages = 5

// summarize builds a rolling digest from the first sentence of the most
// recent user messages. A deliberately naive extractor; an LLM-based
// summarizer could replace it without changing Memory's contract.
func summarize(msgs []llm.Message) string {
	var topics []string
	for _, m := range msgs {
		if m.Role != llm.RoleUser {
			continue
		}
		if s := firstSentence(m.Content); s != "" {
			topics = append(topics, s)
		}
	}
	if len(topics) == 0 {
		return ""
	}
	if len(topics) > summaryUserMessages {
		topics = topics[len(topics)-summaryUserMessages:]
	}
	return "Topics covered: " + strings.Join(topics, "; ") + "."
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?\n"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
