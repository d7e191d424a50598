package eventbus

import (
	"time"

	"openchat/internal/llm"
)

// Topic represents an event topic.
type Topic string

const (
	TopicMessageAppended     Topic = "message.appended"
	TopicGenerationCompleted Topic = "generation.completed"
	TopicGenerationFallback  Topic = "generation.fallback"
	TopicGenerationFailed    Topic = "generation.failed"
	TopicSearchPerformed     Topic = "search.performed"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)

// MessageEvent is the payload for TopicMessageAppended.
type MessageEvent struct {
	ConversationKey string
	Message         llm.Message
}

// GenerationEvent is the payload for the generation.* topics.
type GenerationEvent struct {
	ConversationKey string
	Provider        string
	Model           string
	Error           string
}

// SearchEvent is the payload for TopicSearchPerformed.
type SearchEvent struct {
	Query    string
	Provider string
	Fallback bool
}
