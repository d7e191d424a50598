package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"openchat/internal/archive"
	"openchat/internal/channel"
	"openchat/internal/chat"
	"openchat/internal/config"
	"openchat/internal/eventbus"
	"openchat/internal/llm"
	"openchat/internal/memory"
	"openchat/internal/secrets"
	"openchat/internal/websearch"
)

// App owns the wired application: config, providers, memory, archive and
// channels. One chat client is held per channel chat ID so each chat keeps
// its own conversation history.
type App struct {
	cfg      *config.Config
	registry *llm.Registry
	mem      *memory.Memory
	searcher *websearch.Searcher
	bus      *eventbus.Bus
	arch     *archive.Archive
	recorder *archive.Recorder
	chanMgr  *channel.Manager
	store    interface{ Close() error } // non-nil when Redis backs memory

	mu      sync.Mutex
	clients map[string]*chat.Client

	log *slog.Logger
}

// NewApp loads configuration, resolves credentials and builds every
// component. Nothing talks to the network yet except an optional Redis ping.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:     cfg,
		bus:     eventbus.New(),
		chanMgr: channel.NewManager(),
		clients: make(map[string]*chat.Client),
		log:     slog.Default().With(slog.String("component", "app")),
	}

	a.searcher = websearch.NewSearcher(websearch.Config{
		SearXNGURL: cfg.Search.SearXNGURL,
		MaxResults: cfg.Search.MaxResults,
	})

	resolver, err := secrets.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	a.registry = llm.NewRegistry(a.providerConfig(resolver), a.searcher)

	if err := a.buildMemory(); err != nil {
		return nil, err
	}
	if err := a.buildArchive(); err != nil {
		return nil, err
	}
	a.buildChannels(resolver)

	return a, nil
}

// providerConfig merges file-configured credentials with the secrets chain.
func (a *App) providerConfig(resolver *secrets.Resolver) llm.Config {
	key := func(name string) string {
		if p, ok := a.cfg.Providers[name]; ok && p.APIKey != "" {
			return p.APIKey
		}
		return resolver.APIKey(name)
	}
	model := func(name string) string { return a.cfg.Providers[name].Model }

	return llm.Config{
		OpenAI: llm.OpenAIConfig{
			APIKey:  key("openai"),
			BaseURL: a.cfg.Providers["openai"].BaseURL,
			Model:   model("openai"),
		},
		Anthropic:  llm.AnthropicConfig{APIKey: key("anthropic"), Model: model("anthropic")},
		Gemini:     llm.GeminiConfig{APIKey: key("gemini"), Model: model("gemini")},
		OpenRouter: llm.OpenRouterConfig{APIKey: key("openrouter"), Model: model("openrouter")},
		Local: llm.LocalConfig{
			BaseURL: a.cfg.Providers["local"].BaseURL,
			APIKey:  key("local"),
			Model:   model("local"),
		},
	}
}

func (a *App) buildMemory() error {
	opts := memory.Options{
		MaxMessages:      a.cfg.Memory.MaxMessages,
		SummaryThreshold: a.cfg.Memory.SummaryThreshold,
		TTL:              time.Duration(a.cfg.Memory.TTLHours) * time.Hour,
	}

	if a.cfg.Memory.RedisAddr == "" {
		a.mem = memory.New(memory.NewInMemoryStore(), opts)
		return nil
	}

	store := memory.NewRedisStore(memory.RedisConfig{
		Addr:     a.cfg.Memory.RedisAddr,
		Password: a.cfg.Memory.RedisPassword,
		DB:       a.cfg.Memory.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis at %s: %w", a.cfg.Memory.RedisAddr, err)
	}
	a.store = store
	a.mem = memory.New(store, opts)
	return nil
}

func (a *App) buildArchive() error {
	if !a.cfg.Archive.Enabled {
		return nil
	}
	path := a.cfg.Archive.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".openchat", "archive.db")
	}

	arch, err := archive.Open(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	a.arch = arch
	a.recorder = archive.NewRecorder(arch)
	a.recorder.Attach(a.bus)
	return nil
}

func (a *App) buildChannels(resolver *secrets.Resolver) {
	if a.cfg.Channels.Console {
		console := channel.NewConsoleChannel()
		console.OnMessage(a.handleInbound)
		a.chanMgr.Register(console)
	}
	if tg := a.cfg.Channels.Telegram; tg != nil {
		token := tg.Token
		if token == "" {
			token = resolver.APIKey("telegram")
		}
		telegram := channel.NewTelegramChannel(channel.TelegramConfig{
			Token:      token,
			AllowedIDs: tg.AllowedIDs,
		})
		telegram.OnMessage(a.handleInbound)
		a.chanMgr.Register(telegram)
	}
}

// Run starts the channels and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.chanMgr.StartAll(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.chanMgr.StopAll(ctx)
	if a.recorder != nil {
		a.recorder.Detach()
	}
	if a.arch != nil {
		a.arch.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// handleInbound routes one channel message to its chat client. Replies
// stream incrementally to channels that support it and go out aggregated
// everywhere else.
func (a *App) handleInbound(msg channel.InboundMessage) {
	ch, ok := a.chanMgr.Get(msg.ChannelName)
	if !ok {
		return
	}

	client, err := a.clientFor(msg.ChannelName, msg.ChatID)
	if err != nil {
		a.log.Error("no provider available",
			slog.String("channel", msg.ChannelName),
			slog.String("error", err.Error()))
		_ = ch.Send(context.Background(), channel.OutboundMessage{
			ChatID: msg.ChatID,
			Text:   "No LLM provider is configured. Set an API key and restart.",
		})
		return
	}

	ctx := context.Background()
	opts := chat.GenerateOptions{
		Temperature: a.cfg.Chat.Temperature,
		MaxTokens:   a.cfg.Chat.MaxTokens,
		UseSearch:   a.cfg.Chat.UseSearch,
	}

	if writer, ok := ch.(channel.ChunkWriter); ok {
		client.GenerateStreaming(ctx, msg.Text, opts, func(content string, done bool) {
			if done {
				_ = writer.EndStream(ctx, msg.ChatID)
				return
			}
			_ = writer.SendChunk(ctx, msg.ChatID, content)
		})
		return
	}

	reply := client.Generate(ctx, msg.Text, opts)
	if err := ch.Send(ctx, channel.OutboundMessage{ChatID: msg.ChatID, Text: reply}); err != nil {
		a.log.Warn("failed to deliver reply",
			slog.String("channel", msg.ChannelName),
			slog.String("error", err.Error()))
	}
}

// clientFor returns the chat client for one channel chat, creating it on
// first contact.
func (a *App) clientFor(channelName, chatID string) (*chat.Client, error) {
	key := channelName + ":" + chatID

	a.mu.Lock()
	defer a.mu.Unlock()
	if client, ok := a.clients[key]; ok {
		return client, nil
	}

	client, err := chat.New(chat.Config{
		Provider:        a.cfg.Chat.Provider,
		Model:           a.cfg.Chat.Model,
		ConversationKey: key,
		SystemPrompt:    a.cfg.Chat.SystemPrompt,
		DisableFallback: a.cfg.Chat.DisableFallback,
		RetryAttempts:   a.cfg.Chat.MaxRetries,
	}, a.registry, a.mem, a.searcher, a.bus)
	if err != nil {
		return nil, err
	}
	a.clients[key] = client
	return client, nil
}
