package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider using the Anthropic API.
type AnthropicProvider struct {
	client       anthropic.Client
	searcher     WebSearcher
	defaultModel string
	name         string
	log          *slog.Logger
}

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig, searcher WebSearcher) *AnthropicProvider {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		searcher:     searcher,
		defaultModel: model,
		name:         "anthropic",
		log:          slog.Default().With(slog.String("provider", "anthropic")),
	}
}

func (p *AnthropicProvider) Name() string         { return p.name }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)
	params := p.buildParams(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(p.name, err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return &ChatResponse{
		Content:    content.String(),
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func (p *AnthropicProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)
	params := p.buildParams(req)

	stream := p.client.Messages.NewStreaming(ctx, params)
	ch := make(chan Chunk, 64)

	go func() {
		defer close(ch)
		var sawContent bool
		for stream.Next() {
			event := stream.Current()
			if e, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if e.Delta.Type == "text_delta" && e.Delta.Text != "" {
					sawContent = true
					ch <- Chunk{Content: e.Delta.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			ch <- Chunk{Done: true, Err: classifyError(p.name, err)}
			return
		}
		if !sawContent {
			ch <- Chunk{Done: true, Err: parseError(p.name, errEmptyStream)}
			return
		}
		ch <- Chunk{Done: true}
	}()

	return ch, nil
}

func (p *AnthropicProvider) SearchInternet(ctx context.Context, query string) (string, error) {
	return searchInternet(ctx, p.name, p.searcher, query)
}

// buildParams translates the normalized request into Anthropic's format.
// Anthropic wants one out-of-band system preamble rather than system-role
// turns, so in-line system messages get folded into it.
func (p *AnthropicProvider) buildParams(req *ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	system := []string{}
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}

	var msgs []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    msgs,
		MaxTokens:   int64(req.maxTokens()),
		Temperature: anthropic.Float(req.temperature()),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n")},
		}
	}
	return params
}
