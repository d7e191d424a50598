package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Provider is the interface all LLM backends implement. Implementations are
// stateless beyond their configuration and safe for concurrent use.
//
// Providers surface failures as typed errors; the chat client decides what
// the user sees. SearchInternet returns formatted results, or the NoResults
// sentinel when the search backend found nothing.
type Provider interface {
	// Chat sends a buffered chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChat sends a streaming chat completion request. The returned
	// channel yields a finite, ordered, non-restartable sequence of chunks
	// ending with one whose Done flag is set.
	StreamChat(ctx context.Context, req *ChatRequest) (<-chan Chunk, error)

	// SearchInternet runs a web search through the shared search collaborator
	// and returns the results formatted for prompt inclusion.
	SearchInternet(ctx context.Context, query string) (string, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// DefaultModel returns the model used when a request leaves Model empty.
	DefaultModel() string
}

// NoResults is returned by SearchInternet when the search backend
// replied successfully but found nothing.
const NoResults = "No search results found."

// WebSearcher is the shared web-search collaborator. SearchFormatted returns
// the results rendered as a numbered plain-text block, or an empty string
// when there are none.
type WebSearcher interface {
	SearchFormatted(ctx context.Context, query string, maxResults int) (string, error)
}

// Shared parse-failure causes.
var (
	errNoChoices   = errors.New("response contained no choices")
	errEmptyStream = errors.New("stream produced no content")
)

// Registry / configuration failures.
var (
	// ErrUnknownProvider is returned by the registry for a name it does not recognize.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoCredential is returned when a recognized provider has no configured credential.
	ErrNoCredential = errors.New("no credential configured")

	// ErrNoProviderAvailable is returned when no provider at all has a credential.
	ErrNoProviderAvailable = errors.New("no provider available")
)

// ErrorType classifies provider errors for retry and fallback decisions.
type ErrorType int

const (
	ErrorUnknown      ErrorType = iota
	ErrorRateLimit              // 429
	ErrorAuth                   // 401/403
	ErrorInvalidInput           // 400
	ErrorServer                 // 500+
	ErrorTimeout                // context deadline exceeded
	ErrorNetwork                // connection refused, DNS, etc.
	ErrorParse                  // malformed response body
)

// LLMError wraps a provider error with a classification.
type LLMError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// classifyError buckets a vendor SDK error by matching status codes and
// common phrases in its message. Provider errors carry status codes as text.
func classifyError(provider string, err error) *LLMError {
	msg := err.Error()
	lower := strings.ToLower(msg)
	llmErr := &LLMError{Provider: provider, Message: "request failed", Err: err}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication"):
		llmErr.Type = ErrorAuth
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		llmErr.Type = ErrorRateLimit
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid"):
		llmErr.Type = ErrorInvalidInput
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "overloaded"):
		llmErr.Type = ErrorServer
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		llmErr.Type = ErrorTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "dns") || strings.Contains(lower, "refused"):
		llmErr.Type = ErrorNetwork
	default:
		llmErr.Type = ErrorUnknown
	}
	return llmErr
}

// parseError wraps a malformed-response failure.
func parseError(provider string, err error) *LLMError {
	return &LLMError{Type: ErrorParse, Provider: provider, Message: "malformed response", Err: err}
}

// searchAugmentMaxResults bounds how many results get injected into a prompt.
const searchAugmentMaxResults = 5

// augmentWithSearch runs the request's final user message through the search
// collaborator and, when results come back non-empty, injects them as a
// system message immediately before that final user turn. The original
// request is never mutated. Search failures degrade to the unaugmented
// request; the completion itself must not fail because search did.
func augmentWithSearch(ctx context.Context, searcher WebSearcher, req *ChatRequest, log *slog.Logger) *ChatRequest {
	if !req.UseSearch || searcher == nil || len(req.Messages) == 0 {
		return req
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != RoleUser {
		return req
	}

	results, err := searcher.SearchFormatted(ctx, searchQuery(last.Content), searchAugmentMaxResults)
	if err != nil {
		log.Warn("search augmentation failed, continuing without results", slog.String("error", err.Error()))
		return req
	}
	if results == "" {
		return req
	}

	out := *req
	msgs := make([]Message, 0, len(req.Messages)+1)
	msgs = append(msgs, req.Messages[:len(req.Messages)-1]...)
	msgs = append(msgs, Message{
		Role:    RoleSystem,
		Content: "Relevant web search results for the user's next message:\n\n" + results,
	}, last)
	out.Messages = msgs
	return &out
}

// searchQuery derives a compact search query from a user message: collapse
// whitespace into single spaces and cap the length so pasted walls of text
// don't become the query.
func searchQuery(text string) string {
	const maxQueryLen = 200

	query := strings.Join(strings.Fields(text), " ")
	if len(query) > maxQueryLen {
		cut := query[:maxQueryLen]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		query = cut
	}
	return strings.TrimRight(query, "?!.,")
}

// searchInternet implements Provider.SearchInternet on top of the shared
// collaborator; all four providers delegate here.
func searchInternet(ctx context.Context, provider string, searcher WebSearcher, query string) (string, error) {
	if searcher == nil {
		return "", &LLMError{Type: ErrorNetwork, Provider: provider, Message: "no search backend configured"}
	}
	results, err := searcher.SearchFormatted(ctx, query, 0)
	if err != nil {
		return "", &LLMError{Type: ErrorNetwork, Provider: provider, Message: "web search failed", Err: err}
	}
	if results == "" {
		return NoResults, nil
	}
	return results, nil
}
