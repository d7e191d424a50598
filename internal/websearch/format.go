package websearch

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as a numbered plain-text block for
// prompt inclusion, one entry per line:
//
//	[1] "title": snippet (Published: date) Source: link
//
// The date clause is omitted when the backend supplied none. Empty input
// yields an empty string.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %q: %s", i+1, r.Title, r.Snippet)
		if r.Date != "" {
			fmt.Fprintf(&sb, " (Published: %s)", r.Date)
		}
		fmt.Fprintf(&sb, " Source: %s\n", r.Link)
	}
	return strings.TrimRight(sb.String(), "\n")
}
