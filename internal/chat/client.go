// Package chat composes the provider registry, retry policy, conversation
// memory and web search into the end-to-end generate operations.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"openchat/internal/eventbus"
	"openchat/internal/llm"
	"openchat/internal/memory"
)

// Apology is the literal returned when every provider fails. Generate never
// returns an error; this string is the worst-case observable result. It is
// never persisted to memory.
const Apology = "I'm sorry, I'm having trouble responding right now. Please try again later."

// ProviderSource resolves providers and builds fallback chains. *llm.Registry
// implements it.
type ProviderSource interface {
	Resolve(name, model string) (llm.Provider, error)
	Default() (llm.Provider, error)
	FallbackChain(primary string) []llm.Provider
}

// Config constructs a Client. Zero values mean: registry default provider,
// random conversation key, fallback and memory enabled, default retry policy.
type Config struct {
	Provider        string
	Model           string
	ConversationKey string
	SystemPrompt    string
	DisableFallback bool
	DisableMemory   bool
	RetryAttempts   int
	RetryBaseWait   time.Duration
}

// Client answers prompts for one conversation. Instances for distinct
// conversation keys may run concurrently; they share only the registry cache
// and the memory store.
type Client struct {
	provider      llm.Provider
	providers     ProviderSource
	memory        *memory.Memory
	searcher      llm.WebSearcher
	bus           *eventbus.Bus
	convKey       string
	systemPrompt  string
	fallback      bool
	memoryOn      bool
	retryAttempts int
	retryBaseWait time.Duration
	log           *slog.Logger
}

// New resolves the primary provider (explicit name, else the registry
// default) and fails only on configuration problems: an unknown provider
// name, a missing credential, or no provider configured at all.
func New(cfg Config, providers ProviderSource, mem *memory.Memory, searcher llm.WebSearcher, bus *eventbus.Bus) (*Client, error) {
	var provider llm.Provider
	var err error
	if cfg.Provider != "" {
		provider, err = providers.Resolve(cfg.Provider, cfg.Model)
	} else {
		provider, err = providers.Default()
	}
	if err != nil {
		return nil, err
	}

	key := cfg.ConversationKey
	if key == "" {
		key = uuid.NewString()
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = llm.DefaultRetryAttempts
	}
	baseWait := cfg.RetryBaseWait
	if baseWait <= 0 {
		baseWait = llm.DefaultRetryBaseWait
	}

	return &Client{
		provider:      provider,
		providers:     providers,
		memory:        mem,
		searcher:      searcher,
		bus:           bus,
		convKey:       key,
		systemPrompt:  cfg.SystemPrompt,
		fallback:      !cfg.DisableFallback,
		memoryOn:      !cfg.DisableMemory && mem != nil,
		retryAttempts: attempts,
		retryBaseWait: baseWait,
		log: slog.Default().With(
			slog.String("component", "chat"),
			slog.String("conversation", key),
		),
	}, nil
}

// ConversationKey returns the key scoping this client's stored history.
func (c *Client) ConversationKey() string { return c.convKey }

// Provider returns the primary provider.
func (c *Client) Provider() llm.Provider { return c.provider }

// GenerateOptions tunes a single generate call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	UseSearch   bool
}

// Generate answers prompt with the primary provider, falling back through
/// the remaining configured providers on failure. It never fails: when every
// provider is down the literal Apology is returned. The user's turn is
// persisted before generation so a failed call still preserves it; the
// assistant's reply is persisted only on success.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) string {
	req := c.buildRequest(ctx, prompt, opts)

	for i, provider := range c.chain() {
		resp, err := llm.WithRetry(ctx, c.retryAttempts, c.retryBaseWait, func() (*llm.ChatResponse, error) {
			return provider.Chat(ctx, req)
		})
		if err != nil {
			c.providerFailed(provider, i, err)
			continue
		}

		c.persist(ctx, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
		c.publish(eventbus.TopicGenerationCompleted, eventbus.GenerationEvent{
			ConversationKey: c.convKey,
			Provider:        provider.Name(),
			Model:           provider.DefaultModel(),
		})
		return resp.Content
	}

	c.publish(eventbus.TopicGenerationFailed, eventbus.GenerationEvent{ConversationKey: c.convKey})
	return Apology
}

// GenerateStreaming answers prompt as a stream, invoking onChunk for every
// fragment and returning the accumulated response. If a provider's stream
// fails mid-flight the partial buffer for that attempt is discarded and the
// next fallback starts from scratch; fragments already delivered to onChunk
// are not retracted. The accumulated buffer is persisted only once a stream
// completes cleanly.
func (c *Client) GenerateStreaming(ctx context.Context, prompt string, opts GenerateOptions, onChunk func(content string, done bool)) string {
	req := c.buildRequest(ctx, prompt, opts)

	for i, provider := range c.chain() {
		stream, err := llm.WithRetry(ctx, c.retryAttempts, c.retryBaseWait, func() (<-chan llm.Chunk, error) {
			return provider.StreamChat(ctx, req)
		})
		if err != nil {
			c.providerFailed(provider, i, err)
			continue
		}

		buffer, err := c.consume(stream, onChunk)
		if err != nil {
			c.providerFailed(provider, i, err)
			continue
		}

		onChunk("", true)
		c.persist(ctx, llm.Message{Role: llm.RoleAssistant, Content: buffer})
		c.publish(eventbus.TopicGenerationCompleted, eventbus.GenerationEvent{
			ConversationKey: c.convKey,
			Provider:        provider.Name(),
			Model:           provider.DefaultModel(),
		})
		return buffer
	}

	c.publish(eventbus.TopicGenerationFailed, eventbus.GenerationEvent{ConversationKey: c.convKey})
	onChunk(Apology, false)
	onChunk("", true)
	return Apology
}

// consume drains one provider stream, forwarding fragments to onChunk in
// order. A done chunk carrying an error fails the whole attempt.
func (c *Client) consume(stream <-chan llm.Chunk, onChunk func(content string, done bool)) (string, error) {
	var buffer []byte
	for chunk := range stream {
		if chunk.Content != "" && chunk.Err == nil {
			onChunk(chunk.Content, false)
			buffer = append(buffer, chunk.Content...)
		}
		if chunk.Done {
			if chunk.Err != nil {
				return "", chunk.Err
			}
			return string(buffer), nil
		}
	}
	return string(buffer), nil
}

// SearchInternet searches via the primary provider; if that fails it calls
// the shared search collaborator directly, a second tier independent of the
// provider fallback chain.
func (c *Client) SearchInternet(ctx context.Context, query string) (string, error) {
	result, err := c.provider.SearchInternet(ctx, query)
	if err == nil {
		c.publish(eventbus.TopicSearchPerformed, eventbus.SearchEvent{
			Query: query, Provider: c.provider.Name(),
		})
		return result, nil
	}
	c.log.Warn("provider search failed, querying search backend directly",
		slog.String("provider", c.provider.Name()),
		slog.String("error", err.Error()))

	if c.searcher == nil {
		return "", err
	}
	formatted, err := c.searcher.SearchFormatted(ctx, query, 0)
	if err != nil {
		return "", err
	}
	c.publish(eventbus.TopicSearchPerformed, eventbus.SearchEvent{Query: query, Fallback: true})
	if formatted == "" {
		return llm.NoResults, nil
	}
	return formatted, nil
}

// buildRequest loads history, persists the user's turn, and assembles the
// provider request with the effective system prompt.
func (c *Client) buildRequest(ctx context.Context, prompt string, opts GenerateOptions) *llm.ChatRequest {
	var history []llm.Message
	var summary string
	if c.memoryOn {
		conv, err := c.memory.Load(ctx, c.convKey)
		if err != nil {
			c.log.Warn("memory unavailable, generating without history",
				slog.String("error", err.Error()))
		} else if conv != nil {
			history = conv.Messages
			summary = conv.Summary
		}
	}

	userMsg := llm.Message{Role: llm.RoleUser, Content: prompt}
	c.persist(ctx, userMsg)

	systemPrompt := c.systemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt(time.Now(), summary)
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, userMsg)

	return &llm.ChatRequest{
		Messages:     msgs,
		SystemPrompt: systemPrompt,
		Temperature:  opts.Temperature,
		MaxTokens:    opts.MaxTokens,
		UseSearch:    opts.UseSearch,
	}
}

// chain returns the providers to try in order: the primary, then the rest
// of the configured providers when fallback is enabled.
func (c *Client) chain() []llm.Provider {
	if !c.fallback {
		return []llm.Provider{c.provider}
	}
	chain := []llm.Provider{c.provider}
	for _, p := range c.providers.FallbackChain("") {
		if p.Name() == c.provider.Name() {
			continue
		}
		chain = append(chain, p)
	}
	return chain
}

// persist appends a message to memory, degrading to a log line when the
// store is unavailable. Failed writes never fail the generate call.
func (c *Client) persist(ctx context.Context, msg llm.Message) {
	if !c.memoryOn {
		return
	}
	if _, err := c.memory.Append(ctx, c.convKey, msg); err != nil {
		c.log.Warn("failed to persist message", slog.String("error", err.Error()))
		return
	}
	c.publish(eventbus.TopicMessageAppended, eventbus.MessageEvent{
		ConversationKey: c.convKey,
		Message:         msg,
	})
}

func (c *Client) providerFailed(provider llm.Provider, position int, err error) {
	c.log.Warn("provider failed",
		slog.String("provider", provider.Name()),
		slog.Int("position", position),
		slog.String("error", err.Error()))
	c.publish(eventbus.TopicGenerationFallback, eventbus.GenerationEvent{
		ConversationKey: c.convKey,
		Provider:        provider.Name(),
		Error:           err.Error(),
	})
}

func (c *Client) publish(topic eventbus.Topic, payload any) {
	if c.bus != nil {
		c.bus.Publish(topic, payload)
	}
}
