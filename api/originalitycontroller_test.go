package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritext/exttool"
	"veritext/locks"
	"veritext/pipeline"
	"veritext/store"
	"veritext/types"
	"veritext/webcheck"
)

type failingToolRunner struct{}

func (failingToolRunner) Run(context.Context, string) error {
	return errors.New("exit status 1")
}

type silentSearcher struct{}

func (silentSearcher) Search(context.Context, string, int) ([]string, error) {
	return nil, nil
}

type emptyBlobStore struct{}

func (emptyBlobStore) GetBytes(context.Context, string) ([]byte, error) {
	return nil, errors.New("not found")
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	webCfg := webcheck.DefaultConfig()
	webCfg.SearchDelay = time.Millisecond

	runner := pipeline.NewRunner(pipeline.Config{
		Store:   s,
		Blobs:   emptyBlobStore{},
		Tool:    exttool.New(failingToolRunner{}, nil),
		Checker: webcheck.NewChecker(webCfg, silentSearcher{}),
		Lock:    locks.NewLocalLock(),
	})
	return NewRouter(runner), s
}

func TestOriginalityCheckEndpoint(t *testing.T) {
	router, s := newTestRouter(t)
	require.NoError(t, s.CreateArticle(context.Background(), types.Article{
		ID:      "art-1",
		Content: strings.Repeat("A reasonably long article body about harbour logistics and customs paperwork. ", 10),
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/articles/art-1/originality-check",
		strings.NewReader(`{"run_by":"editor@example.com"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp pipeline.CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ReportID)
	assert.Equal(t, exttool.NoticeFailedOrSkipped, resp.Summary.ExternalTool.Notice)
}

func TestOriginalityCheckNothingToAnalyze(t *testing.T) {
	router, s := newTestRouter(t)
	require.NoError(t, s.CreateArticle(context.Background(), types.Article{ID: "art-2"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/articles/art-2/originality-check", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOriginalityCheckUnknownArticle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/articles/nope/originality-check", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimilarityEndpointValidation(t *testing.T) {
	router, s := newTestRouter(t)
	require.NoError(t, s.CreateArticle(context.Background(), types.Article{ID: "art-3", Content: "body"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/articles/art-3/similarity",
		strings.NewReader(`{"threshold": 1.5}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimilarityEndpointEmptyBodyUsesDefaults(t *testing.T) {
	router, s := newTestRouter(t)
	require.NoError(t, s.CreateArticle(context.Background(), types.Article{ID: "art-5", Content: "body text"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/articles/art-5/similarity", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp pipeline.SimilarityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Docs, 1)
}

func TestLatestReportEndpoint(t *testing.T) {
	router, s := newTestRouter(t)
	require.NoError(t, s.CreateArticle(context.Background(), types.Article{ID: "art-4"}))
	require.NoError(t, s.CreateReport(context.Background(), types.OriginalityReport{
		ID:        "rep-1",
		ArticleID: "art-4",
		CreatedAt: time.Now().UTC(),
		Status:    types.ReportStatusCompleted,
		Summary:   types.SimilaritySummary{AIScore: 10, AIDetails: []string{}, WebSources: []string{}},
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/articles/art-4/originality-report", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report types.OriginalityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "rep-1", report.ID)

	// No report yet for a different article.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/articles/other/originality-report", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
