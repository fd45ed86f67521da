package types

import "time"

// SimilarityPair is the cosine similarity between two documents. Each
// unordered pair appears once; self-pairs are never computed.
type SimilarityPair struct {
	DocA  string  `json:"doc_a"`
	DocB  string  `json:"doc_b"`
	Score float64 `json:"score"`
}

// AIDetectionResult is the output of the heuristic AI-content detector.
// Score is a sum of capped heuristic contributions in [0,99]; Details
// records which heuristics fired, in human-readable form.
type AIDetectionResult struct {
	Score   int      `json:"score"`
	Details []string `json:"details"`
}

// WebCheckResult is the output of the web corroboration module. Score
// is the normalized maximum overlap against scraped pages in [0,100];
// Sources lists qualifying page URLs with their overlap percentage.
type WebCheckResult struct {
	Score   float64  `json:"score"`
	Sources []string `json:"sources"`
}

// ExternalToolPair is one row of the external tool's comparison table.
type ExternalToolPair struct {
	SubmissionA string  `json:"submission_a"`
	SubmissionB string  `json:"submission_b"`
	Similarity  float64 `json:"similarity"`
}

// ExternalToolSummary condenses the external tool's comparison output.
// When the tool failed or was skipped, Notice is set and the numeric
// fields are zero.
type ExternalToolSummary struct {
	Notice        string             `json:"notice,omitempty"`
	MaxSimilarity float64            `json:"max_similarity"`
	AvgSimilarity float64            `json:"avg_similarity"`
	TopPairs      []ExternalToolPair `json:"top_pairs,omitempty"`
}

// SimilaritySummary merges the three score sources of one run.
type SimilaritySummary struct {
	ExternalTool ExternalToolSummary `json:"external_tool_summary"`
	AIScore      int                 `json:"ai_score"`
	AIDetails    []string            `json:"ai_details"`
	WebScore     float64             `json:"web_score"`
	WebSources   []string            `json:"web_sources"`
}

// Report statuses. A report is written once after all upstream signals
// resolve; Status is the only field that may change afterwards.
const (
	ReportStatusCompleted = "completed"
	ReportStatusDegraded  = "degraded" // external tool failed or skipped
)

// OriginalityReport is the single durable output of a pipeline run.
// Re-running an analysis creates a new report; callers query the latest
// by CreatedAt descending.
type OriginalityReport struct {
	ID                string            `json:"id"`
	ArticleID         string            `json:"article_id"`
	RunBy             string            `json:"run_by"`
	CreatedAt         time.Time         `json:"created_at"`
	Status            string            `json:"status"`
	Summary           SimilaritySummary `json:"similarity_summary"`
	ReportStoragePath string            `json:"report_storage_path,omitempty"`
	ReportPublicURL   string            `json:"report_public_url,omitempty"`
}
