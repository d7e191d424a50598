package llm

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider using the OpenAI API.
// Also works with compatible endpoints (Ollama, vLLM, LM Studio) via BaseURL.
type OpenAIProvider struct {
	client       openai.Client
	searcher     WebSearcher
	defaultModel string
	name         string
	log          *slog.Logger
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig, searcher WebSearcher) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client:       openai.NewClient(opts...),
		searcher:     searcher,
		defaultModel: model,
		name:         "openai",
		log:          slog.Default().With(slog.String("provider", "openai")),
	}
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)
	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, parseError(p.name, errNoChoices)
	}

	choice := resp.Choices[0]
	return &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)
	params := p.buildParams(req)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan Chunk, 64)

	go func() {
		defer close(ch)
		var sawContent bool
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				// Usage-only frame; nothing to deliver.
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				sawContent = true
				ch <- Chunk{Content: delta.Content}
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

func (p *OpenAIProvider) SearchInternet(ctx context.Context, query string) (string, error) {
	return searchInternet(ctx, p.name, p.searcher, query)
}

func (p *OpenAIProvider) buildParams(req *ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		}
	}

	return openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    msgs,
		Temperature: openai.Float(req.temperature()),
		MaxTokens:   openai.Int(int64(req.maxTokens())),
	}
}
