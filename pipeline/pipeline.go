// Package pipeline drives one originality check end to end: attachment
// retrieval, text extraction, AI-content detection, web corroboration,
// the external similarity tool, and assembly of the single persisted
// report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"veritext/aidetect"
	"veritext/events"
	"veritext/exttool"
	"veritext/locks"
	"veritext/similarity"
	"veritext/store"
	"veritext/textextract"
	"veritext/types"
	"veritext/webcheck"
)

// ErrNothingToAnalyze reports that the article has no attachments and
// no body text: the one precondition failure the caller must see.
var ErrNothingToAnalyze = errors.New("article has no content or attachments to analyze")

// ErrRunInProgress reports that another originality check currently
// holds the article's lock. Concurrent runs are rejected, not merged.
var ErrRunInProgress = errors.New("an originality check is already running for this article")

// BlobStore is the attachment-download side of blob storage.
type BlobStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
}

// CheckResponse is returned to the calling controller after a full run.
type CheckResponse struct {
	ReportID  string                  `json:"report_id"`
	ReportURL string                  `json:"report_url,omitempty"`
	Summary   types.SimilaritySummary `json:"summary"`
}

// SimilarityResponse is the lighter sibling: TF-IDF pairs only, no
// external tool and no persisted report.
type SimilarityResponse struct {
	Docs  []types.Document       `json:"docs"`
	Pairs []types.SimilarityPair `json:"pairs"`
}

// Runner owns the pipeline's collaborators. One Runner serves all
// requests; each run allocates its own transient state.
type Runner struct {
	store     *store.Store
	blobs     BlobStore
	extractor *textextract.Registry
	engine    *similarity.Engine
	detector  *aidetect.Detector
	checker   *webcheck.Checker
	tool      *exttool.Orchestrator
	lock      locks.ArticleLock
	publisher *events.Publisher
}

// Config assembles a Runner. Store, Blobs and Tool are required; a nil
// Lock falls back to the in-process table, a nil Publisher disables
// event emission.
type Config struct {
	Store     *store.Store
	Blobs     BlobStore
	Tool      *exttool.Orchestrator
	Checker   *webcheck.Checker
	Detector  *aidetect.Detector
	Lock      locks.ArticleLock
	Publisher *events.Publisher
}

// NewRunner wires the pipeline together.
func NewRunner(cfg Config) *Runner {
	detector := cfg.Detector
	if detector == nil {
		detector = aidetect.New(aidetect.DefaultConfig())
	}
	checker := cfg.Checker
	if checker == nil {
		checker = webcheck.NewChecker(webcheck.DefaultConfig(), nil)
	}
	lock := cfg.Lock
	if lock == nil {
		lock = locks.NewLocalLock()
	}
	return &Runner{
		store:     cfg.Store,
		blobs:     cfg.Blobs,
		extractor: textextract.NewRegistry(),
		engine:    similarity.NewEngine(),
		detector:  detector,
		checker:   checker,
		tool:      cfg.Tool,
		lock:      lock,
		publisher: cfg.Publisher,
	}
}

// RunOriginalityCheck executes the full pipeline for one article and
// persists exactly one report. The per-article lock guarantees at most
// one concurrent run; a second request fails with ErrRunInProgress.
func (r *Runner) RunOriginalityCheck(ctx context.Context, articleID, runBy string) (*CheckResponse, error) {
	acquired, err := r.lock.TryAcquire(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx), articleID); err != nil {
			log.Printf("Warning: failed to release run lock for %s: %v", articleID, err)
		}
	}()

	article, err := r.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	docs, workFiles, err := r.gatherDocuments(ctx, article)
	if err != nil {
		return nil, err
	}

	combined := combineText(docs)

	log.Printf("Running AI-content detection for article %s (%d chars)", articleID, len(combined))
	aiResult := r.detector.Detect(combined)

	log.Printf("Running web corroboration for article %s", articleID)
	webResult := r.checker.Check(ctx, combined)

	log.Printf("Running external similarity tool for article %s (%d file(s))", articleID, len(workFiles))
	toolOutcome := r.tool.Run(ctx, workFiles)

	report := assembleReport(articleID, runBy, aiResult, webResult, toolOutcome)
	if err := r.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	if err := r.publisher.PublishReportCreated(report); err != nil {
		// The report is durable; a lost event is not worth failing the run.
		log.Printf("Warning: report event not published for %s: %v", report.ID, err)
	}

	log.Printf("Originality check complete for article %s: report %s (ai=%d web=%.1f tool_max=%.3f)",
		articleID, report.ID, report.Summary.AIScore, report.Summary.WebScore,
		report.Summary.ExternalTool.MaxSimilarity)

	return &CheckResponse{
		ReportID:  report.ID,
		ReportURL: report.ReportPublicURL,
		Summary:   report.Summary,
	}, nil
}

// RunSimilarityCheck extracts the article's documents and returns only
// the TF-IDF pairs at or above threshold, capped at limit. Nothing is
// persisted.
func (r *Runner) RunSimilarityCheck(ctx context.Context, articleID string, threshold float64, limit int) (*SimilarityResponse, error) {
	article, err := r.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	docs, _, err := r.gatherDocuments(ctx, article)
	if err != nil {
		return nil, err
	}

	result := r.engine.Compare(docs)
	pairs := make([]types.SimilarityPair, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		if p.Score < threshold {
			continue
		}
		pairs = append(pairs, p)
		if limit > 0 && len(pairs) >= limit {
			break
		}
	}

	// Strip the text from the response; callers only need identities.
	slim := make([]types.Document, len(docs))
	for i, d := range docs {
		slim[i] = types.Document{ID: d.ID, Filename: d.Filename}
	}
	return &SimilarityResponse{Docs: slim, Pairs: pairs}, nil
}

// LatestReport exposes the newest persisted report for an article.
func (r *Runner) LatestReport(ctx context.Context, articleID string) (*types.OriginalityReport, error) {
	return r.store.LatestReport(ctx, articleID)
}

// gatherDocuments downloads and extracts every attachment and appends
// the article body as one more document. Unreadable attachments are
// logged and contribute empty text; only a fully empty corpus is an
// error.
func (r *Runner) gatherDocuments(ctx context.Context, article *types.Article) ([]types.Document, []exttool.WorkFile, error) {
	attachments, err := r.store.ListAttachments(ctx, article.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list attachments: %w", err)
	}

	body := textextract.NormalizeWhitespace(article.Content)
	if len(attachments) == 0 && body == "" {
		return nil, nil, ErrNothingToAnalyze
	}

	var (
		docs  []types.Document
		files []exttool.WorkFile
	)
	for _, att := range attachments {
		raw, err := r.blobs.GetBytes(ctx, att.StoragePath)
		if err != nil {
			log.Printf("Warning: attachment %s (%s) not downloadable: %v", att.ID, att.Filename, err)
			continue
		}
		files = append(files, exttool.WorkFile{Name: att.Filename, Content: raw})
		docs = append(docs, types.Document{
			ID:       att.ID,
			Filename: att.Filename,
			Text:     r.extractor.Extract(att.Filename, raw),
		})
	}

	if body != "" {
		docs = append(docs, types.Document{ID: "article-body", Filename: "article-body.txt", Text: body})
		files = append(files, exttool.WorkFile{Name: "article-body.txt", Content: []byte(body)})
	}

	if len(docs) == 0 {
		return nil, nil, ErrNothingToAnalyze
	}
	return docs, files, nil
}

// combineText concatenates every document's text for the whole-corpus
// signals (AI detection, web corroboration).
func combineText(docs []types.Document) string {
	var parts []string
	for _, d := range docs {
		if d.Text != "" {
			parts = append(parts, d.Text)
		}
	}
	return strings.Join(parts, " ")
}

// assembleReport merges the three score sources into one report record.
// This is the only write of a run and happens after every upstream
// signal has resolved or explicitly failed soft.
func assembleReport(articleID, runBy string, ai types.AIDetectionResult, web types.WebCheckResult, tool exttool.Outcome) types.OriginalityReport {
	status := types.ReportStatusCompleted
	if !tool.Success {
		status = types.ReportStatusDegraded
	}

	return types.OriginalityReport{
		ID:        uuid.NewString(),
		ArticleID: articleID,
		RunBy:     runBy,
		CreatedAt: time.Now().UTC(),
		Status:    status,
		Summary: types.SimilaritySummary{
			ExternalTool: tool.Summary,
			AIScore:      ai.Score,
			AIDetails:    ai.Details,
			WebScore:     web.Score,
			WebSources:   web.Sources,
		},
		ReportStoragePath: tool.ReportStoragePath,
		ReportPublicURL:   tool.ReportPublicURL,
	}
}
