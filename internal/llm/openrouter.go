package llm

import (
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterConfig holds configuration for the OpenRouter provider.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// NewOpenRouterProvider creates a provider for OpenRouter's aggregation API.
// OpenRouter speaks the OpenAI chat-completion wire format, so the adapter
// reuses that request shaping under its own name, catalog, and endpoint.
func NewOpenRouterProvider(cfg OpenRouterConfig, searcher WebSearcher) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = "openrouter/auto"
	}

	return &OpenAIProvider{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(openRouterBaseURL),
		),
		searcher:     searcher,
		defaultModel: model,
		name:         "openrouter",
		log:          slog.Default().With(slog.String("provider", "openrouter")),
	}
}
