package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results   string
	err       error
	lastQuery string
	calls     int
}

func (f *fakeSearcher) SearchFormatted(ctx context.Context, query string, maxResults int) (string, error) {
	f.calls++
	f.lastQuery = query
	return f.results, f.err
}

func TestAugmentWithSearchInjectsResults(t *testing.T) {
	searcher := &fakeSearcher{results: `[1] "Go 1.24 released": details`}
	req := &ChatRequest{
		UseSearch: true,
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "what's new in Go 1.24"},
		},
	}

	out := augmentWithSearch(context.Background(), searcher, req, slog.Default())

	require.Len(t, out.Messages, 4)
	injected := out.Messages[2]
	assert.Equal(t, RoleSystem, injected.Role)
	assert.Contains(t, injected.Content, "Go 1.24 released")
	assert.Equal(t, RoleUser, out.Messages[3].Role)
	assert.Equal(t, "what's new in Go 1.24", out.Messages[3].Content)

	// Original request untouched.
	assert.Len(t, req.Messages, 3)
	assert.Equal(t, "what's new in Go 1.24", searcher.lastQuery)
}

func TestAugmentWithSearchDisabled(t *testing.T) {
	searcher := &fakeSearcher{results: "something"}
	req := &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	}

	out := augmentWithSearch(context.Background(), searcher, req, slog.Default())
	assert.Same(t, req, out)
	assert.Zero(t, searcher.calls)
}

func TestAugmentWithSearchSkipsNonUserFinal(t *testing.T) {
	searcher := &fakeSearcher{results: "something"}
	req := &ChatRequest{
		UseSearch: true,
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
	}

	out := augmentWithSearch(context.Background(), searcher, req, slog.Default())
	assert.Same(t, req, out)
	assert.Zero(t, searcher.calls)
}

func TestAugmentWithSearchFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("search backend down")}
	req := &ChatRequest{
		UseSearch: true,
		Messages:  []Message{{Role: RoleUser, Content: "anything"}},
	}

	out := augmentWithSearch(context.Background(), searcher, req, slog.Default())
	assert.Same(t, req, out)
	assert.Equal(t, 1, searcher.calls)
}

func TestAugmentWithSearchEmptyResults(t *testing.T) {
	searcher := &fakeSearcher{}
	req := &ChatRequest{
		UseSearch: true,
		Messages:  []Message{{Role: RoleUser, Content: "anything"}},
	}

	out := augmentWithSearch(context.Background(), searcher, req, slog.Default())
	assert.Same(t, req, out)
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "what is Go", searchQuery("  what   is\n Go?  "))
	assert.Equal(t, "plain", searchQuery("plain"))

	long := strings.Repeat("word ", 60)
	q := searchQuery(long)
	assert.LessOrEqual(t, len(q), 200)
	assert.False(t, strings.HasSuffix(q, " "))
}

func TestSearchInternetHelper(t *testing.T) {
	t.Run("no backend", func(t *testing.T) {
		_, err := searchInternet(context.Background(), "openai", nil, "query")
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrorNetwork, llmErr.Type)
	})

	t.Run("empty results map to sentinel", func(t *testing.T) {
		got, err := searchInternet(context.Background(), "openai", &fakeSearcher{}, "query")
		require.NoError(t, err)
		assert.Equal(t, NoResults, got)
	})

	t.Run("backend failure wrapped", func(t *testing.T) {
		cause := errors.New("dns failure")
		_, err := searchInternet(context.Background(), "openai", &fakeSearcher{err: cause}, "query")
		var llmErr *LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrorNetwork, llmErr.Type)
		require.ErrorIs(t, err, cause)
	})
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorType
	}{
		{"401 Unauthorized", ErrorAuth},
		{"403 Forbidden", ErrorAuth},
		{"429 Too Many Requests: rate_limit_exceeded", ErrorRateLimit},
		{"400 Bad Request: invalid model", ErrorInvalidInput},
		{"500 Internal Server Error", ErrorServer},
		{"503 Service Unavailable: overloaded_error", ErrorServer},
		{"context deadline exceeded", ErrorTimeout},
		{"dial tcp: connection refused", ErrorNetwork},
		{"something unexpected", ErrorUnknown},
	}
	for _, tc := range cases {
		got := classifyError("openai", errors.New(tc.msg))
		assert.Equal(t, tc.want, got.Type, "message %q", tc.msg)
		assert.Equal(t, "openai", got.Provider)
	}
}

func TestLLMErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := classifyError("anthropic", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "root cause")
}
