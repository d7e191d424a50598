package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultDDGBaseURL = "https://html.duckduckgo.com/html/"

const ddgUserAgent = "Mozilla/5.0 (compatible; OpenChat/1.0)"

// DDGClient scrapes DuckDuckGo's HTML endpoint. No API key required, which
// makes it the zero-configuration fallback backend.
type DDGClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewDDGClient(baseURL string) *DDGClient {
	if baseURL == "" {
		baseURL = defaultDDGBaseURL
	}
	return &DDGClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: searchTimeout},
	}
}

func (c *DDGClient) Search(ctx context.Context, q Query) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?q="+url.QueryEscape(q.Query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ddgUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo responded with status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo response parse failed: %w", err)
	}

	var results []Result
	doc.Find(".web-result").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if q.MaxResults > 0 && len(results) >= q.MaxResults {
			return false
		}

		link := node.Find(".result__a")
		title := strings.TrimSpace(link.Text())
		href := link.AttrOr("href", "")
		if title == "" || href == "" {
			return true
		}

		// DDG wraps targets in a redirect with the real URL in uddg.
		if parts := strings.SplitN(href, "uddg=", 2); len(parts) == 2 {
			href = parts[1]
			if i := strings.IndexByte(href, '&'); i >= 0 {
				href = href[:i]
			}
		}
		unescaped, err := url.QueryUnescape(href)
		if err != nil {
			return true
		}

		results = append(results, Result{
			Title:   title,
			Link:    unescaped,
			Snippet: strings.TrimSpace(node.Find(".result__snippet").Text()),
			Source:  "duckduckgo",
		})
		return true
	})
	return results, nil
}
