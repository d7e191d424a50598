package config

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Chat: ChatConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   2048,
			MaxRetries:  3,
		},
		Providers: map[string]ProviderConfig{},
		Memory: MemoryConfig{
			MaxMessages:      50,
			SummaryThreshold: 10,
			TTLHours:         24,
		},
		Search: SearchConfig{
			MaxResults: 10,
		},
		Archive: ArchiveConfig{
			Enabled: false,
		},
		Channels: ChannelsConfig{
			Console: true,
		},
	}
}
