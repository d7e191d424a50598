package eventbus

import (
	"sync"
	"testing"

	"openchat/internal/llm"
)

func TestPubSub(t *testing.T) {
	bus := New()
	var received []Event
	var mu sync.Mutex

	bus.Subscribe(TopicMessageAppended, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	bus.Publish(TopicMessageAppended, MessageEvent{
		ConversationKey: "c1",
		Message:         llm.Message{Role: llm.RoleUser, Content: "hello"},
	})
	bus.Publish(TopicMessageAppended, MessageEvent{
		ConversationKey: "c1",
		Message:         llm.Message{Role: llm.RoleAssistant, Content: "world"},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	first := received[0].Payload.(MessageEvent)
	if first.Message.Content != "hello" {
		t.Fatalf("expected 'hello', got %q", first.Message.Content)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := New()
	count := 0
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		bus.Subscribe(TopicGenerationFailed, func(e Event) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	bus.Publish(TopicGenerationFailed, GenerationEvent{Provider: "openai"})

	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	count := 0

	unsub := bus.Subscribe(TopicSearchPerformed, func(e Event) { count++ })
	bus.Publish(TopicSearchPerformed, SearchEvent{Query: "q"})
	unsub()
	bus.Publish(TopicSearchPerformed, SearchEvent{Query: "q"})

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestUnsubscribedTopic(t *testing.T) {
	bus := New()
	// Should not panic
	bus.Publish(TopicGenerationCompleted, GenerationEvent{})
}
