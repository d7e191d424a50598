// Package websearch is the shared web-search collaborator: a SearXNG JSON
// API client with a DuckDuckGo HTML fallback, plus result formatting for
// prompt inclusion.
package websearch

import (
	"context"
	"log/slog"
)

// Query describes one search request.
type Query struct {
	Query      string
	TimeRange  string // "day", "week", "month", "year" or empty
	MaxResults int
	Language   string
	Engines    []string
}

// Result is one search hit. Score, Source and Date are backend-dependent
// and may be empty.
type Result struct {
	Title   string
	Link    string
	Snippet string
	Score   float64
	Source  string
	Date    string
}

// DefaultMaxResults bounds result counts when the caller passes zero.
const DefaultMaxResults = 10

// Config wires the searcher. An empty SearXNGURL disables the primary
// backend; searches then go straight to DuckDuckGo.
type Config struct {
	SearXNGURL string
	MaxResults int
}

// Searcher queries SearXNG first and falls back to scraping DuckDuckGo when
// SearXNG is unconfigured or fails.
type Searcher struct {
	searxng    *SearXNGClient
	ddg        *DDGClient
	maxResults int
	log        *slog.Logger
}

func NewSearcher(cfg Config) *Searcher {
	s := &Searcher{
		ddg:        NewDDGClient(""),
		maxResults: cfg.MaxResults,
		log:        slog.Default().With(slog.String("component", "websearch")),
	}
	if s.maxResults <= 0 {
		s.maxResults = DefaultMaxResults
	}
	if cfg.SearXNGURL != "" {
		s.searxng = NewSearXNGClient(cfg.SearXNGURL)
	}
	return s
}

// Search runs the query against the primary backend, falling back to
// DuckDuckGo on failure.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.MaxResults <= 0 {
		q.MaxResults = s.maxResults
	}

	if s.searxng != nil {
		results, err := s.searxng.Search(ctx, q)
		if err == nil {
			return results, nil
		}
		s.log.Warn("searxng search failed, falling back to duckduckgo",
			slog.String("error", err.Error()))
	}
	return s.ddg.Search(ctx, q)
}

// SearchFormatted runs the query and renders the results as the numbered
// plain-text block providers inject into prompts. Empty results yield an
// empty string, not an error.
func (s *Searcher) SearchFormatted(ctx context.Context, query string, maxResults int) (string, error) {
	results, err := s.Search(ctx, Query{Query: query, MaxResults: maxResults})
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}
