package llm

import (
	"fmt"

	"github.com/alphadose/haxmap"
)

// Config holds credentials and model overrides for every known provider.
type Config struct {
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Local      LocalConfig
}

// providerOrder fixes the preference order used by Default and FallbackChain.
var providerOrder = []string{"openai", "anthropic", "gemini", "openrouter", "local"}

// modelCatalog lists the models each provider is known to serve. The catalog
// is advisory; Resolve accepts any model string and lets the backend reject
// ones it does not know.
var modelCatalog = map[string][]string{
	"openai":     {"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini", "o3-mini"},
	"anthropic":  {"claude-sonnet-4-5", "claude-opus-4-1", "claude-haiku-4-5"},
	"gemini":     {"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.0-flash"},
	"openrouter": {"openrouter/auto"},
	"local":      {"llama3.2", "qwen3", "mistral"},
}

// Registry constructs and caches providers by name and model. Construction is
// lazy so that providers whose credentials are missing never get built, and
// cached so repeated resolutions of the same provider/model pair share one
// client. Safe for concurrent use.
type Registry struct {
	cfg      Config
	searcher WebSearcher
	cache    *haxmap.Map[string, Provider]
}

func NewRegistry(cfg Config, searcher WebSearcher) *Registry {
	return &Registry{
		cfg:      cfg,
		searcher: searcher,
		cache:    haxmap.New[string, Provider](),
	}
}

// hasCredential reports whether the named provider is usable with the current
// configuration. The local provider needs no key; it counts as configured
// once a base URL is set.
func (r *Registry) hasCredential(name string) bool {
	switch name {
	case "openai":
		return r.cfg.OpenAI.APIKey != ""
	case "anthropic":
		return r.cfg.Anthropic.APIKey != ""
	case "gemini":
		return r.cfg.Gemini.APIKey != ""
	case "openrouter":
		return r.cfg.OpenRouter.APIKey != ""
	case "local":
		return r.cfg.Local.BaseURL != ""
	default:
		return false
	}
}

// AvailableProviders returns the configured provider names in preference order.
func (r *Registry) AvailableProviders() []string {
	var names []string
	for _, name := range providerOrder {
		if r.hasCredential(name) {
			names = append(names, name)
		}
	}
	return names
}

// ModelsFor returns the known models for a provider, or nil for an unknown name.
func (r *Registry) ModelsFor(name string) []string {
	return modelCatalog[name]
}

// Resolve returns a provider for the given name, configured with the given
// model as its default. An empty model keeps the configured or built-in
// default. Unknown names fail with ErrUnknownProvider and unconfigured ones
// with ErrNoCredential.
func (r *Registry) Resolve(name, model string) (Provider, error) {
	if _, ok := modelCatalog[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !r.hasCredential(name) {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, name)
	}

	key := name
	if model != "" {
		key = name + "/" + model
	}
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	p := r.build(name, model)
	r.cache.Set(key, p)
	return p, nil
}

func (r *Registry) build(name, model string) Provider {
	switch name {
	case "openai":
		cfg := r.cfg.OpenAI
		if model != "" {
			cfg.Model = model
		}
		return NewOpenAIProvider(cfg, r.searcher)
	case "anthropic":
		cfg := r.cfg.Anthropic
		if model != "" {
			cfg.Model = model
		}
		return NewAnthropicProvider(cfg, r.searcher)
	case "gemini":
		cfg := r.cfg.Gemini
		if model != "" {
			cfg.Model = model
		}
		return NewGeminiProvider(cfg, r.searcher)
	case "openrouter":
		cfg := r.cfg.OpenRouter
		if model != "" {
			cfg.Model = model
		}
		return NewOpenRouterProvider(cfg, r.searcher)
	case "local":
		cfg := r.cfg.Local
		if model != "" {
			cfg.Model = model
		}
		return NewLocalProvider(cfg, r.searcher)
	}
	panic("unreachable: provider name validated by Resolve")
}

// Default returns the first configured provider in preference order.
func (r *Registry) Default() (Provider, error) {
	for _, name := range providerOrder {
		if r.hasCredential(name) {
			return r.Resolve(name, "")
		}
	}
	return nil, ErrNoProviderAvailable
}

// FallbackChain returns the providers to try in order for a request whose
// primary is the named provider: the primary first, then every other
// configured provider in preference order. An empty or unusable primary
// yields just the configured providers.
func (r *Registry) FallbackChain(primary string) []Provider {
	var chain []Provider
	seen := make(map[string]bool)

	add := func(name string) {
		if seen[name] || !r.hasCredential(name) {
			return
		}
		p, err := r.Resolve(name, "")
		if err != nil {
			return
		}
		seen[name] = true
		chain = append(chain, p)
	}

	if primary != "" {
		add(primary)
	}
	for _, name := range providerOrder {
		add(name)
	}
	return chain
}
