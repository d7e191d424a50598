package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultLocalBaseURL = "http://localhost:11434/v1"

// LocalConfig configures the local provider (an Ollama or LM Studio style
// endpoint speaking the OpenAI chat completions wire format).
type LocalConfig struct {
	BaseURL string
	APIKey  string // optional; most local servers ignore it
	Model   string
}

// LocalProvider talks to an OpenAI-compatible local inference server over
// plain HTTP. Unlike the SDK-backed providers it owns its wire handling,
// including the SSE stream parsing.
type LocalProvider struct {
	baseURL      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
	searcher     WebSearcher
	log          *slog.Logger
}

func NewLocalProvider(cfg LocalConfig, searcher WebSearcher) *LocalProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}
	return &LocalProvider{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		defaultModel: model,
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
		searcher:     searcher,
		log:          slog.Default().With(slog.String("provider", "local")),
	}
}

func (p *LocalProvider) Name() string         { return "local" }
func (p *LocalProvider) DefaultModel() string { return p.defaultModel }

// Wire types for the OpenAI-compatible chat completions endpoint.

type localChatRequest struct {
	Model       string         `json:"model"`
	Messages    []localMessage `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	Stream      bool           `json:"stream"`
}

type localMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localChatResponse struct {
	Choices []struct {
		Message      localMessage `json:"message"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type localChatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *LocalProvider) buildBody(req *ChatRequest, stream bool) localChatRequest {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	msgs := make([]localMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, localMessage{Role: RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, localMessage{Role: m.Role, Content: m.Content})
	}
	return localChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.temperature(),
		MaxTokens:   req.maxTokens(),
		Stream:      stream,
	}
}

func (p *LocalProvider) post(ctx context.Context, body localChatRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return resp, nil
}

func (p *LocalProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)

	resp, err := p.post(ctx, p.buildBody(req, false), false)
	if err != nil {
		return nil, classifyError("local", err)
	}
	defer resp.Body.Close()

	var out localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, parseError("local", err)
	}
	if len(out.Choices) == 0 {
		return nil, parseError("local", errNoChoices)
	}
	return &ChatResponse{
		Content:    out.Choices[0].Message.Content,
		StopReason: out.Choices[0].FinishReason,
		Usage: Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
		},
	}, nil
}

func (p *LocalProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	req = augmentWithSearch(ctx, p.searcher, req, p.log)

	resp, err := p.post(ctx, p.buildBody(req, true), true)
	if err != nil {
		return nil, classifyError("local", err)
	}

	ch := make(chan Chunk, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := newSSEScanner(resp.Body)
		var sawContent bool
		for {
			payload, err := scanner.next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				ch <- Chunk{Done: true, Err: classifyError("local", err)}
				return
			}

			var chunk localChatChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				// Malformed frame; skip it rather than killing the stream.
				p.log.Warn("skipping malformed stream frame", slog.String("error", err.Error()))
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				sawContent = true
				ch <- Chunk{Content: content}
			}
		}

		if !sawContent {
			ch <- Chunk{Done: true, Err: parseError("local", errEmptyStream)}
			return
		}
		ch <- Chunk{Done: true}
	}()
	return ch, nil
}

func (p *LocalProvider) SearchInternet(ctx context.Context, query string) (string, error) {
	return searchInternet(ctx, "local", p.searcher, query)
}
