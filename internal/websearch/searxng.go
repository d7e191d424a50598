package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const searchTimeout = 10 * time.Second

// SearXNGClient queries a SearXNG instance's JSON API.
type SearXNGClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSearXNGClient(baseURL string) *SearXNGClient {
	return &SearXNGClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: searchTimeout},
	}
}

type searxngResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		Engine        string  `json:"engine"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
}

func (c *SearXNGClient) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("format", "json")
	if q.TimeRange != "" {
		params.Set("time_range", q.TimeRange)
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if len(q.Engines) > 0 {
		params.Set("engines", strings.Join(q.Engines, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng responded with status %d", resp.StatusCode)
	}

	var body searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("searxng response decode failed: %w", err)
	}

	results := make([]Result, 0, len(body.Results))
	for _, r := range body.Results {
		if q.MaxResults > 0 && len(results) >= q.MaxResults {
			break
		}
		if r.Title == "" || r.URL == "" {
			continue
		}
		results = append(results, Result{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Content,
			Score:   r.Score,
			Source:  r.Engine,
			Date:    r.PublishedDate,
		})
	}
	return results, nil
}
