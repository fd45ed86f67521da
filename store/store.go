// Package store is the metadata layer: articles, their attachments, and
// the append-only originality reports, backed by sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"veritext/types"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("record not found")

// createdAtFormat pads fractional seconds to a fixed width so the text
// column sorts chronologically. RFC3339Nano trims trailing zeros, which
// puts "…01Z" after "…01.5Z" under ORDER BY.
const createdAtFormat = "2006-01-02T15:04:05.000000000Z07:00"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attachments (
    id TEXT PRIMARY KEY,
    article_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    mime_type TEXT NOT NULL DEFAULT '',
    storage_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    article_id TEXT NOT NULL,
    run_by TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    status TEXT NOT NULL,
    summary_json TEXT NOT NULL,
    report_storage_path TEXT NOT NULL DEFAULT '',
    report_public_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attachments_article ON attachments(article_id);
CREATE INDEX IF NOT EXISTS idx_reports_article ON reports(article_id, created_at DESC);
`

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// CreateArticle inserts or replaces an article record.
func (s *Store) CreateArticle(ctx context.Context, a types.Article) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO articles(id, title, content) VALUES(?,?,?)`,
		a.ID, a.Title, a.Content)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetArticle fetches one article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content FROM articles WHERE id = ?`, id)

	var a types.Article
	if err := row.Scan(&a.ID, &a.Title, &a.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return &a, nil
}

// AddAttachment registers an attachment record for an article.
func (s *Store) AddAttachment(ctx context.Context, att types.Attachment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO attachments(id, article_id, filename, mime_type, storage_path) VALUES(?,?,?,?,?)`,
		att.ID, att.ArticleID, att.Filename, att.MimeType, att.StoragePath)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// ListAttachments returns all attachments of an article.
func (s *Store) ListAttachments(ctx context.Context, articleID string) ([]types.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, article_id, filename, mime_type, storage_path FROM attachments WHERE article_id = ?`,
		articleID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var atts []types.Attachment
	for rows.Next() {
		var att types.Attachment
		if err := rows.Scan(&att.ID, &att.ArticleID, &att.Filename, &att.MimeType, &att.StoragePath); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// CreateReport persists a new originality report. Reports are
// append-only: a re-run writes a fresh row, never an upsert.
func (s *Store) CreateReport(ctx context.Context, r types.OriginalityReport) error {
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports(id, article_id, run_by, created_at, status, summary_json, report_storage_path, report_public_url)
		 VALUES(?,?,?,?,?,?,?,?)`,
		r.ID, r.ArticleID, r.RunBy, r.CreatedAt.UTC().Format(createdAtFormat),
		r.Status, string(summary), r.ReportStoragePath, r.ReportPublicURL)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// LatestReport returns the newest report for an article by created_at
// descending.
func (s *Store) LatestReport(ctx context.Context, articleID string) (*types.OriginalityReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, article_id, run_by, created_at, status, summary_json, report_storage_path, report_public_url
		 FROM reports WHERE article_id = ? ORDER BY created_at DESC LIMIT 1`,
		articleID)

	var (
		r         types.OriginalityReport
		createdAt string
		summary   string
	)
	if err := row.Scan(&r.ID, &r.ArticleID, &r.RunBy, &createdAt, &r.Status, &summary, &r.ReportStoragePath, &r.ReportPublicURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}

	// RFC3339Nano accepts padded and trimmed fractional seconds alike.
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse report timestamp: %w", err)
	}
	r.CreatedAt = t

	if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &r, nil
}

// CountReports returns the number of reports stored for an article.
func (s *Store) CountReports(ctx context.Context, articleID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE article_id = ?`, articleID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
