package llm

import (
	"context"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	apiKey       string
	searcher     WebSearcher
	defaultModel string
	name         string
	log          *slog.Logger
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewGeminiProvider creates a new Gemini provider. The genai client wants a
// context at construction, so it is built per call instead of being held.
func NewGeminiProvider(cfg GeminiConfig, searcher WebSearcher) *GeminiProvider {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{
		apiKey:       cfg.APIKey,
		searcher:     searcher,
		defaultModel: model,
		name:         "gemini",
		log:          slog.Default().With(slog.String("provider", "gemini")),
	}
}

func (p *GeminiProvider) Name() string         { return p.name }
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

func (p *GeminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classifyError(p.name, err)
	}
	return client, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}

	model, contents, config := p.buildRequest(req)
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, classifyError(p.name, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, parseError(p.name, errNoChoices)
	}

	out := &ChatResponse{Content: resp.Text()}
	if len(resp.Candidates) > 0 {
		out.StopReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (p *GeminiProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}

	model, contents, config := p.buildRequest(req)
	ch := make(chan Chunk, 64)

	go func() {
		defer close(ch)
		var sawContent bool
		for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				ch <- Chunk{Done: true, Err: classifyError(p.name, err)}
				return
			}
			if text := resp.Text(); text != "" {
				sawContent = true
				ch <- Chunk{Content: text}
			}
		}
		if !sawContent {
			ch <- Chunk{Done: true, Err: parseError(p.name, errEmptyStream)}
			return
		}
		ch <- Chunk{Done: true}
	}()

	return ch, nil
}

func (p *GeminiProvider) SearchInternet(ctx context.Context, query string) (string, error) {
	return searchInternet(ctx, p.name, p.searcher, query)
}

// buildRequest translates the normalized request into Gemini's format.
// Gemini has no system role inside the turn list; system messages become
// part of the SystemInstruction.
func (p *GeminiProvider) buildRequest(req *ChatRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	system := req.SystemPrompt
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.temperature())),
		MaxOutputTokens: int32(req.maxTokens()),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return model, contents, config
}
