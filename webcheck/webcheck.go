// Package webcheck estimates how much of a text overlaps with material
// already on the public web: it samples sentences into search queries,
// scrapes the top results, and compares the input against the scraped
// pages with the TF-IDF engine.
package webcheck

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"veritext/config"
	"veritext/similarity"
	"veritext/textextract"
	"veritext/types"
)

// Config holds the tunables of the corroboration check. The overlap
// divisor treats a raw cosine score of 0.9 as full overlap; it is an
// empirical constant with no documented calibration.
type Config struct {
	MinTextLen     int
	MaxQueries     int
	MaxQueryChars  int
	MaxPages       int
	SourceCutoff   float64
	OverlapDivisor float64
	SearchDelay    time.Duration
	ScrapeWorkers  int
}

// DefaultConfig returns the standard calibration.
func DefaultConfig() Config {
	return Config{
		MinTextLen:     100,
		MaxQueries:     config.MaxSearchQueries,
		MaxQueryChars:  config.MaxQueryChars,
		MaxPages:       config.MaxScrapedPages,
		SourceCutoff:   config.SourceScoreThreshold,
		OverlapDivisor: config.WebOverlapDivisor(),
		SearchDelay:    config.SearchDelay,
		ScrapeWorkers:  3,
	}
}

// Checker runs the corroboration pipeline. The searcher and fetch
// function are injectable so tests never touch the network.
type Checker struct {
	cfg      Config
	searcher Searcher
	engine   *similarity.Engine
	fetch    func(string) (string, error)
}

// NewChecker builds a checker with the given searcher. A nil searcher
// gets the default DuckDuckGo backend.
func NewChecker(cfg Config, searcher Searcher) *Checker {
	if searcher == nil {
		searcher = NewDuckDuckGoSearcher(nil)
	}
	return &Checker{
		cfg:      cfg,
		searcher: searcher,
		engine:   similarity.NewEngine(),
		fetch:    fetchPageText,
	}
}

const inputDocID = "input-text"

// Check estimates web overlap for the given text. Texts under the
// minimum length return a zero result without any network activity.
// Search and scrape failures degrade the result, never fail it.
func (c *Checker) Check(ctx context.Context, text string) types.WebCheckResult {
	result := types.WebCheckResult{Score: 0, Sources: []string{}}
	if len(text) < c.cfg.MinTextLen {
		return result
	}

	queries := buildQueries(text, c.cfg.MaxQueries, c.cfg.MaxQueryChars)
	urls := c.collectURLs(ctx, queries)
	if len(urls) == 0 {
		log.Printf("Web check: no result URLs for %d quer(ies)", len(queries))
		return result
	}
	if len(urls) > c.cfg.MaxPages {
		urls = urls[:c.cfg.MaxPages]
	}

	pages := scrapeAll(urls, c.fetch, c.cfg.ScrapeWorkers)
	if len(pages) == 0 {
		log.Printf("Web check: all %d scrape(s) failed or yielded too little text", len(urls))
		return result
	}

	docs := make([]types.Document, 0, len(pages)+1)
	docs = append(docs, types.Document{ID: inputDocID, Text: text})
	for _, p := range pages {
		docs = append(docs, types.Document{ID: p.URL, Text: p.Text})
	}

	var maxRaw float64
	for _, pair := range c.engine.Compare(docs).Pairs {
		if pair.DocA != inputDocID && pair.DocB != inputDocID {
			continue
		}
		if pair.Score > maxRaw {
			maxRaw = pair.Score
		}
		if pair.Score > c.cfg.SourceCutoff && len(result.Sources) < c.cfg.MaxPages {
			source := pair.DocB
			if source == inputDocID {
				source = pair.DocA
			}
			result.Sources = append(result.Sources, fmt.Sprintf("%s (%.1f%%)", source, pair.Score*100))
		}
	}

	score := maxRaw / c.cfg.OverlapDivisor * 100
	if score > 100 {
		score = 100
	}
	result.Score = score
	return result
}

// collectURLs runs every query through the searcher and merges the
// results into a deduplicated, order-preserving list. A short delay
// separates consecutive searches to avoid burst rate-limiting.
func (c *Checker) collectURLs(ctx context.Context, queries []string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for i, q := range queries {
		if i > 0 {
			select {
			case <-ctx.Done():
				return urls
			case <-time.After(c.cfg.SearchDelay):
			}
		}
		found, err := c.searcher.Search(ctx, q, c.cfg.MaxPages)
		if err != nil {
			log.Printf("Warning: web search failed for query %q: %v", q, err)
			continue
		}
		for _, u := range found {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}

var querySentenceRe = regexp.MustCompile(`[.!?]+`)

// buildQueries samples up to maxQueries sentences: the first, a middle
// one when the text has more than 5 sentences, and a near-final one
// when it has more than 10. Falls back to the leading characters of the
// whole text when no sentences are found.
func buildQueries(text string, maxQueries, maxChars int) []string {
	var sentences []string
	for _, s := range querySentenceRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{textextract.Truncate(strings.TrimSpace(text), maxChars)}
	}

	var picks []string
	picks = append(picks, sentences[0])
	if len(sentences) > 5 {
		picks = append(picks, sentences[len(sentences)/2])
	}
	if len(sentences) > 10 {
		picks = append(picks, sentences[len(sentences)-2])
	}
	if len(picks) > maxQueries {
		picks = picks[:maxQueries]
	}

	queries := make([]string, 0, len(picks))
	for _, p := range picks {
		queries = append(queries, textextract.Truncate(p, maxChars))
	}
	return queries
}

func logScrapeFailure(url string, err error) {
	log.Printf("Warning: scrape failed for %s: %v", url, err)
}

func logScrapeSuccess(url string, chars int, took time.Duration) {
	log.Printf("Scraped %s (%d chars in %s)", url, chars, took.Round(time.Millisecond))
}
