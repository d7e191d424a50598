package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openchat/internal/eventbus"
	"openchat/internal/llm"
	"openchat/internal/memory"
)

type fakeProvider struct {
	name string

	chatCalls int
	chatErr   error
	response  string

	streamCalls int
	streamErr   error
	chunks      []llm.Chunk

	searchResult string
	searchErr    error
}

func (f *fakeProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.chatCalls++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResponse{Content: f.response, StopReason: "stop"}, nil
}

func (f *fakeProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan llm.Chunk, error) {
	f.streamCalls++
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan llm.Chunk, len(f.chunks))
	for _, chunk := range f.chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func (f *fakeProvider) SearchInternet(ctx context.Context, query string) (string, error) {
	if f.searchErr != nil {
		return "", f.searchErr
	}
	return f.searchResult, nil
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) DefaultModel() string { return "fake-model" }

type fakeSource struct {
	providers []llm.Provider
}

func (s *fakeSource) Resolve(name, model string) (llm.Provider, error) {
	for _, p := range s.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, llm.ErrUnknownProvider
}

func (s *fakeSource) Default() (llm.Provider, error) {
	if len(s.providers) == 0 {
		return nil, llm.ErrNoProviderAvailable
	}
	return s.providers[0], nil
}

func (s *fakeSource) FallbackChain(primary string) []llm.Provider {
	return s.providers
}

type fakeSearcher struct {
	results string
	err     error
}

func (f *fakeSearcher) SearchFormatted(ctx context.Context, query string, maxResults int) (string, error) {
	return f.results, f.err
}

func newTestClient(t *testing.T, cfg Config, source ProviderSource, mem *memory.Memory) *Client {
	t.Helper()
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBaseWait == 0 {
		cfg.RetryBaseWait = time.Millisecond
	}
	client, err := New(cfg, source, mem, nil, nil)
	require.NoError(t, err)
	return client
}

func TestNewFailsWithoutProviders(t *testing.T) {
	_, err := New(Config{}, &fakeSource{}, nil, nil, nil)
	require.ErrorIs(t, err, llm.ErrNoProviderAvailable)
}

func TestNewFailsOnUnknownProvider(t *testing.T) {
	source := &fakeSource{providers: []llm.Provider{&fakeProvider{name: "openai"}}}
	_, err := New(Config{Provider: "nope"}, source, nil, nil, nil)
	require.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestGenerateSuccess(t *testing.T) {
	primary := &fakeProvider{name: "openai", response: "Hello!"}
	source := &fakeSource{providers: []llm.Provider{primary}}
	mem := memory.New(memory.NewInMemoryStore(), memory.Options{})
	client := newTestClient(t, Config{ConversationKey: "c1"}, source, mem)

	got := client.Generate(context.Background(), "hi", GenerateOptions{})
	assert.Equal(t, "Hello!", got)
	assert.Equal(t, 1, primary.chatCalls)

	conv, err := mem.Load(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, llm.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hi", conv.Messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Hello!", conv.Messages[1].Content)
}

func TestGenerateFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", chatErr: errors.New("500 upstream down")}
	fallback := &fakeProvider{name: "anthropic", response: "Fallback response"}
	source := &fakeSource{providers: []llm.Provider{primary, fallback}}
	client := newTestClient(t, Config{Provider: "openai", DisableMemory: true}, source, nil)

	got := client.Generate(context.Background(), "hi", GenerateOptions{})
	assert.Equal(t, "Fallback response", got)
	assert.Equal(t, 1, primary.chatCalls)
	assert.Equal(t, 1, fallback.chatCalls)
}

func TestGenerateAllProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", chatErr: errors.New("down")}
	fallback := &fakeProvider{name: "anthropic", chatErr: errors.New("also down")}
	source := &fakeSource{providers: []llm.Provider{primary, fallback}}
	mem := memory.New(memory.NewInMemoryStore(), memory.Options{})
	client := newTestClient(t, Config{ConversationKey: "c2"}, source, mem)

	got := client.Generate(context.Background(), "hi", GenerateOptions{})
	assert.Equal(t, Apology, got)

	// The user's turn is preserved; the apology is never persisted.
	conv, err := mem.Load(context.Background(), "c2")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, llm.RoleUser, conv.Messages[0].Role)
}

func TestGenerateFallbackDisabled(t *testing.T) {
	primary := &fakeProvider{name: "openai", chatErr: errors.New("down")}
	fallback := &fakeProvider{name: "anthropic", response: "unused"}
	source := &fakeSource{providers: []llm.Provider{primary, fallback}}
	client := newTestClient(t, Config{DisableFallback: true, DisableMemory: true}, source, nil)

	got := client.Generate(context.Background(), "hi", GenerateOptions{})
	assert.Equal(t, Apology, got)
	assert.Equal(t, 1, primary.chatCalls)
	assert.Zero(t, fallback.chatCalls)
}

func TestGenerateRetriesBeforeFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", chatErr: errors.New("flaky")}
	source := &fakeSource{providers: []llm.Provider{primary}}
	client := newTestClient(t, Config{DisableMemory: true, RetryAttempts: 3, RetryBaseWait: time.Millisecond}, source, nil)

	client.Generate(context.Background(), "hi", GenerateOptions{})
	assert.Equal(t, 3, primary.chatCalls)
}

func TestGenerateStreamingAggregation(t *testing.T) {
	primary := &fakeProvider{name: "openai", chunks: []llm.Chunk{
		{Content: "Stream "},
		{Content: "chunk "},
		{Content: "test", Done: true},
	}}
	source := &fakeSource{providers: []llm.Provider{primary}}
	client := newTestClient(t, Config{DisableMemory: true}, source, nil)

	var fragments []string
	var doneSeen bool
	got := client.GenerateStreaming(context.Background(), "hi", GenerateOptions{}, func(content string, done bool) {
		if done {
			doneSeen = true
			return
		}
		fragments = append(fragments, content)
	})

	assert.Equal(t, "Stream chunk test", got)
	assert.Equal(t, []string{"Stream ", "chunk ", "test"}, fragments)
	assert.True(t, doneSeen)
}

func TestGenerateStreamingFallbackDiscardsPartial(t *testing.T) {
	primary := &fakeProvider{name: "openai", chunks: []llm.Chunk{
		{Content: "par"},
		{Content: "tial"},
		{Done: true, Err: errors.New("connection reset")},
	}}
	fallback := &fakeProvider{name: "anthropic", chunks: []llm.Chunk{
		{Content: "ok"},
		{Done: true},
	}}
	source := &fakeSource{providers: []llm.Provider{primary, fallback}}
	mem := memory.New(memory.NewInMemoryStore(), memory.Options{})
	client := newTestClient(t, Config{ConversationKey: "c3"}, source, mem)

	var fragments []string
	got := client.GenerateStreaming(context.Background(), "hi", GenerateOptions{}, func(content string, done bool) {
		if !done {
			fragments = append(fragments, content)
		}
	})

	// Partial output was delivered but not merged into the final response.
	assert.Equal(t, "ok", got)
	assert.Equal(t, []string{"par", "tial", "ok"}, fragments)

	conv, err := mem.Load(context.Background(), "c3")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "ok", conv.Messages[1].Content)
}

func TestGenerateStreamingAllFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", streamErr: errors.New("down")}
	source := &fakeSource{providers: []llm.Provider{primary}}
	client := newTestClient(t, Config{DisableMemory: true}, source, nil)

	var last string
	var doneSeen bool
	got := client.GenerateStreaming(context.Background(), "hi", GenerateOptions{}, func(content string, done bool) {
		if done {
			doneSeen = true
			return
		}
		last = content
	})
	assert.Equal(t, Apology, got)
	assert.Equal(t, Apology, last)
	assert.True(t, doneSeen)
}

func TestSearchInternetSecondTierFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", searchErr: errors.New("provider search down")}
	source := &fakeSource{providers: []llm.Provider{primary}}
	searcher := &fakeSearcher{results: `[1] "hit": snippet Source: https://a`}
	client, err := New(Config{DisableMemory: true}, source, nil, searcher, nil)
	require.NoError(t, err)

	got, err := client.SearchInternet(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, `[1] "hit": snippet Source: https://a`, got)
}

func TestSearchInternetSecondTierEmpty(t *testing.T) {
	primary := &fakeProvider{name: "openai", searchErr: errors.New("down")}
	source := &fakeSource{providers: []llm.Provider{primary}}
	client, err := New(Config{DisableMemory: true}, source, nil, &fakeSearcher{}, nil)
	require.NoError(t, err)

	got, err := client.SearchInternet(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, llm.NoResults, got)
}

func TestSearchInternetBothTiersFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", searchErr: errors.New("provider down")}
	source := &fakeSource{providers: []llm.Provider{primary}}
	client, err := New(Config{DisableMemory: true}, source, nil, &fakeSearcher{err: errors.New("backend down")}, nil)
	require.NoError(t, err)

	_, err = client.SearchInternet(context.Background(), "query")
	require.Error(t, err)
}

func TestGenerateIncludesHistory(t *testing.T) {
	var seen *llm.ChatRequest
	primary := &capturingProvider{name: "openai", onChat: func(req *llm.ChatRequest) { seen = req }}
	source := &fakeSource{providers: []llm.Provider{primary}}
	mem := memory.New(memory.NewInMemoryStore(), memory.Options{})
	client := newTestClient(t, Config{ConversationKey: "c4"}, source, mem)

	client.Generate(context.Background(), "first", GenerateOptions{})
	client.Generate(context.Background(), "second", GenerateOptions{})

	require.NotNil(t, seen)
	require.Len(t, seen.Messages, 3)
	assert.Equal(t, "first", seen.Messages[0].Content)
	assert.Equal(t, "reply", seen.Messages[1].Content)
	assert.Equal(t, "second", seen.Messages[2].Content)
	assert.NotEmpty(t, seen.SystemPrompt)
}

func TestGeneratePublishesEvents(t *testing.T) {
	bus := eventbus.New()
	var topics []eventbus.Topic
	for _, topic := range []eventbus.Topic{
		eventbus.TopicMessageAppended,
		eventbus.TopicGenerationFallback,
		eventbus.TopicGenerationCompleted,
	} {
		topic := topic
		bus.Subscribe(topic, func(e eventbus.Event) { topics = append(topics, topic) })
	}

	primary := &fakeProvider{name: "openai", chatErr: errors.New("down")}
	fallback := &fakeProvider{name: "anthropic", response: "ok"}
	source := &fakeSource{providers: []llm.Provider{primary, fallback}}
	mem := memory.New(memory.NewInMemoryStore(), memory.Options{})
	client, err := New(Config{ConversationKey: "c5", RetryAttempts: 1, RetryBaseWait: time.Millisecond}, source, mem, nil, bus)
	require.NoError(t, err)

	client.Generate(context.Background(), "hi", GenerateOptions{})

	assert.Equal(t, []eventbus.Topic{
		eventbus.TopicMessageAppended,     // user turn
		eventbus.TopicGenerationFallback,  // primary failed
		eventbus.TopicMessageAppended,     // assistant turn
		eventbus.TopicGenerationCompleted, // fallback succeeded
	}, topics)
}

type capturingProvider struct {
	name   string
	onChat func(*llm.ChatRequest)
}

func (p *capturingProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.onChat(req)
	return &llm.ChatResponse{Content: "reply"}, nil
}

func (p *capturingProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk, 1)
	ch <- llm.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func (p *capturingProvider) SearchInternet(ctx context.Context, query string) (string, error) {
	return "", nil
}

func (p *capturingProvider) Name() string         { return p.name }
func (p *capturingProvider) DefaultModel() string { return "capture-model" }
