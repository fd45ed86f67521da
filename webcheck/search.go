package webcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Searcher is the web search collaborator: query in, result URLs out.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// DuckDuckGoSearcher queries the DuckDuckGo HTML endpoint, which needs
// no API key, and parses result links out of the page.
type DuckDuckGoSearcher struct {
	client   *http.Client
	endpoint string
}

// NewDuckDuckGoSearcher returns a searcher backed by the given HTTP
// client, or http.DefaultClient when nil.
func NewDuckDuckGoSearcher(client *http.Client) *DuckDuckGoSearcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &DuckDuckGoSearcher{
		client:   client,
		endpoint: "https://html.duckduckgo.com/html/",
	}
}

// Search performs one query and returns up to limit result URLs.
func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, limit int) ([]string, error) {
	reqURL := s.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; veritext/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if resolved := resolveResultURL(href); resolved != "" {
			results = append(results, resolved)
		}
		return len(results) < limit
	})
	return results, nil
}

// resolveResultURL unwraps DuckDuckGo's redirect links (the target is
// carried in the uddg query parameter) and drops anything non-HTTP.
func resolveResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if target, err := url.QueryUnescape(uddg); err == nil {
			href = target
			u, err = url.Parse(href)
			if err != nil {
				return ""
			}
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
