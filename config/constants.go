package config

import (
	"os"
	"strconv"
	"time"
)

// Text extraction constants
const (
	// MaxExtractedChars caps normalized text per document so pathological
	// inputs cannot blow up memory or TF-IDF runtime
	MaxExtractedChars = 200_000
)

// TF-IDF engine constants
const (
	// TopTermsPerDoc bounds the shared vocabulary: only the K
	// highest-weighted terms of each document enter the vector space
	TopTermsPerDoc = 800
)

// Web corroboration constants
const (
	// MaxSearchQueries is the number of sentence-sampled queries per run
	MaxSearchQueries = 3

	// MaxQueryChars truncates each search query
	MaxQueryChars = 150

	// MaxScrapedPages bounds how many result URLs are fetched
	MaxScrapedPages = 5

	// MaxPageChars caps scraped page text
	MaxPageChars = 10_000

	// MinPageChars discards pages that yielded too little text to compare
	MinPageChars = 200

	// SourceScoreThreshold is the pairwise score above which a scraped
	// page is reported as a source
	SourceScoreThreshold = 0.2

	// ScrapeTimeout bounds each page fetch so one unreachable host
	// cannot stall the run
	ScrapeTimeout = 5 * time.Second

	// SearchDelay spaces consecutive searches to avoid burst rate limits
	SearchDelay = 1 * time.Second
)

// WebOverlapDivisor rescales raw cosine similarity into a percentage:
// a raw score of 0.9 is treated as full overlap, since tokenization
// differences keep exact duplicates below 1.0. Empirically chosen;
// flagged for domain-expert calibration. Override: WEB_OVERLAP_DIVISOR.
func WebOverlapDivisor() float64 {
	return getEnvFloatOrDefault("WEB_OVERLAP_DIVISOR", 0.9)
}

// External tool constants
const (
	// ExternalToolTimeout is the hard wall-clock limit on the container
	// subprocess; on expiry the process is killed
	ExternalToolTimeout = 5 * time.Minute

	// ExternalToolThreads is the thread-count hint passed to the tool
	ExternalToolThreads = 4

	// ExternalToolLanguage is the source-language hint passed to the tool
	ExternalToolLanguage = "text"

	// TopExternalPairs is how many comparison rows the summary keeps
	TopExternalPairs = 20
)

// ExternalToolImage is the container image of the cross-submission
// similarity checker. Override: SIMILARITY_TOOL_IMAGE.
func ExternalToolImage() string {
	return getEnvOrDefault("SIMILARITY_TOOL_IMAGE", "jplag/jplag:latest")
}

// Run lock constants
const (
	// RunLockTTL caps how long an article stays locked if a run dies
	// without releasing
	RunLockTTL = 10 * time.Minute
)

// ReportURLExpiry is the lifetime of signed report-archive URLs.
// Override: REPORT_URL_EXPIRY_SECONDS.
func ReportURLExpiry() time.Duration {
	secs := getEnvIntOrDefault("REPORT_URL_EXPIRY_SECONDS", 7*24*3600)
	return time.Duration(secs) * time.Second
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultVal
}
