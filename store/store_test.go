package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritext/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestArticleRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	article := types.Article{ID: "art-1", Title: "On Rivers", Content: "body text"}
	require.NoError(t, s.CreateArticle(ctx, article))

	got, err := s.GetArticle(ctx, "art-1")
	require.NoError(t, err)
	assert.Equal(t, article, *got)

	_, err = s.GetArticle(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, types.Article{ID: "art-1"}))
	require.NoError(t, s.AddAttachment(ctx, types.Attachment{
		ID: "att-1", ArticleID: "art-1", Filename: "a.pdf", MimeType: "application/pdf", StoragePath: "attachments/a.pdf",
	}))
	require.NoError(t, s.AddAttachment(ctx, types.Attachment{
		ID: "att-2", ArticleID: "art-1", Filename: "b.docx", StoragePath: "attachments/b.docx",
	}))

	atts, err := s.ListAttachments(ctx, "art-1")
	require.NoError(t, err)
	assert.Len(t, atts, 2)

	none, err := s.ListAttachments(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReportsAppendOnlyLatestWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := types.OriginalityReport{
		ID:        "rep-1",
		ArticleID: "art-1",
		RunBy:     "editor@example.com",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:    types.ReportStatusCompleted,
		Summary: types.SimilaritySummary{
			AIScore:    12,
			AIDetails:  []string{"Likely human-written"},
			WebScore:   4.5,
			WebSources: []string{},
		},
	}
	second := first
	second.ID = "rep-2"
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.Status = types.ReportStatusDegraded
	second.Summary.ExternalTool.Notice = "jplag-failed-or-skipped"

	require.NoError(t, s.CreateReport(ctx, first))
	require.NoError(t, s.CreateReport(ctx, second))

	latest, err := s.LatestReport(ctx, "art-1")
	require.NoError(t, err)
	assert.Equal(t, "rep-2", latest.ID)
	assert.Equal(t, types.ReportStatusDegraded, latest.Status)
	assert.Equal(t, "jplag-failed-or-skipped", latest.Summary.ExternalTool.Notice)
	assert.Equal(t, 12, latest.Summary.AIScore)

	count, err := s.CountReports(ctx, "art-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "re-running creates a new report, never an upsert")
}

func TestLatestReportOrdersWithinOneSecond(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Whole-second vs fractional timestamps in the same second: the
	// stored strings must still sort chronologically.
	older := types.OriginalityReport{
		ID:        "rep-older",
		ArticleID: "art-1",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 1, 500_000_000, time.UTC),
		Status:    types.ReportStatusCompleted,
	}
	newer := older
	newer.ID = "rep-newer"
	newer.CreatedAt = time.Date(2026, 3, 1, 12, 0, 1, 900_000_000, time.UTC)
	zeroFrac := older
	zeroFrac.ID = "rep-zero-frac"
	zeroFrac.CreatedAt = time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)

	require.NoError(t, s.CreateReport(ctx, newer))
	require.NoError(t, s.CreateReport(ctx, older))
	require.NoError(t, s.CreateReport(ctx, zeroFrac))

	latest, err := s.LatestReport(ctx, "art-1")
	require.NoError(t, err)
	assert.Equal(t, "rep-newer", latest.ID)
	assert.True(t, latest.CreatedAt.Equal(newer.CreatedAt))
}

func TestLatestReportMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestReport(context.Background(), "art-none")
	assert.ErrorIs(t, err, ErrNotFound)
}
