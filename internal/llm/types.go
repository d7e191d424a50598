package llm

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Default request parameters applied by providers when the caller leaves
// the corresponding field unset.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Message is a single chat turn. Messages are immutable once created and
// their order within a conversation is significant.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest is the normalized input for a chat completion. Each provider
// translates it into its own wire format.
type ChatRequest struct {
	Model        string    `json:"model,omitempty"`
	Messages     []Message `json:"messages"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Temperature  float64   `json:"temperature,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	UseSearch    bool      `json:"use_search,omitempty"`
}

// temperature returns the effective sampling temperature for the request.
func (r *ChatRequest) temperature() float64 {
	if r.Temperature > 0 {
		return r.Temperature
	}
	return DefaultTemperature
}

// maxTokens returns the effective completion token limit for the request.
func (r *ChatRequest) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// ChatResponse is the normalized buffered response from a provider.
type ChatResponse struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Chunk is one increment of a streaming response. The final element of a
// successful stream has Done set and conventionally empty content; consumers
// must treat Done as stream termination regardless of remaining elements.
// A failed stream terminates with Done set and Err non-nil.
type Chunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Err     error  `json:"-"`
}
