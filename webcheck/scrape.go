package webcheck

import (
	"fmt"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"veritext/config"
	"veritext/textextract"
)

// scrapedPage is the usable text of one fetched result URL.
type scrapedPage struct {
	URL  string
	Text string
}

// fetchPageText retrieves a page and returns its readable body text,
// stripped of script/style/navigation chrome, whitespace-normalized and
// length-capped. Pages yielding too little text are reported as errors
// so the caller can discard them.
func fetchPageText(pageURL string) (string, error) {
	article, err := readability.FromURL(pageURL, config.ScrapeTimeout)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}

	text := textextract.Truncate(textextract.NormalizeWhitespace(article.TextContent), config.MaxPageChars)
	if len(text) < config.MinPageChars {
		return "", fmt.Errorf("page yielded only %d chars", len(text))
	}
	return text, nil
}

// scrapeAll fetches the given URLs concurrently with a small worker pool.
// Failed scrapes are dropped; the order of survivors follows the input.
func scrapeAll(urls []string, fetch func(string) (string, error), workers int) []scrapedPage {
	if len(urls) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 3
	}

	texts := make([]string, len(urls))
	jobs := make(chan int, len(urls))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobs {
				start := time.Now()
				text, err := fetch(urls[i])
				if err != nil {
					logScrapeFailure(urls[i], err)
				} else {
					texts[i] = text
					logScrapeSuccess(urls[i], len(text), time.Since(start))
				}
				wg.Done()
			}
		}()
	}

	for i := range urls {
		wg.Add(1)
		jobs <- i
	}
	wg.Wait()
	close(jobs)

	pages := make([]scrapedPage, 0, len(urls))
	for i, text := range texts {
		if text != "" {
			pages = append(pages, scrapedPage{URL: urls[i], Text: text})
		}
	}
	return pages
}
