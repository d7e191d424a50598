package config

// Config is the top-level application configuration.
type Config struct {
	Chat      ChatConfig                `json:"chat"`
	Providers map[string]ProviderConfig `json:"providers"`
	Memory    MemoryConfig              `json:"memory"`
	Search    SearchConfig              `json:"search"`
	Archive   ArchiveConfig             `json:"archive"`
	Channels  ChannelsConfig            `json:"channels"`
}

// ChatConfig tunes the generation orchestrator.
type ChatConfig struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model,omitempty"`
	SystemPrompt    string  `json:"system_prompt,omitempty"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
	DisableFallback bool    `json:"disable_fallback,omitempty"`
	UseSearch       bool    `json:"use_search,omitempty"`
	MaxRetries      int     `json:"max_retries"`
}

// ProviderConfig holds one backend's credential and overrides. The API key
// may be left empty here and resolved through the secrets chain instead.
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// MemoryConfig selects and tunes the conversation store. An empty RedisAddr
// keeps history in process memory.
type MemoryConfig struct {
	RedisAddr        string `json:"redis_addr,omitempty"`
	RedisPassword    string `json:"redis_password,omitempty"`
	RedisDB          int    `json:"redis_db,omitempty"`
	MaxMessages      int    `json:"max_messages"`
	SummaryThreshold int    `json:"summary_threshold"`
	TTLHours         int    `json:"ttl_hours"`
}

// SearchConfig wires the web-search collaborator.
type SearchConfig struct {
	SearXNGURL string `json:"searxng_url,omitempty"`
	MaxResults int    `json:"max_results"`
}

// ArchiveConfig controls the sqlite system of record.
type ArchiveConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type ChannelsConfig struct {
	Console  bool            `json:"console"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token      string  `json:"token"`
	AllowedIDs []int64 `json:"allowed_ids,omitempty"`
}
