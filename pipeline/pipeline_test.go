package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritext/aidetect"
	"veritext/exttool"
	"veritext/locks"
	"veritext/store"
	"veritext/types"
	"veritext/webcheck"
)

// fakeBlobStore serves attachment bytes from memory.
type fakeBlobStore struct {
	objects map[string][]byte
}

func (f *fakeBlobStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return b, nil
}

// failingToolRunner simulates a broken container runtime.
type failingToolRunner struct{}

func (failingToolRunner) Run(context.Context, string) error {
	return errors.New("exit status 1")
}

// silentSearcher returns no results, keeping web checks offline.
type silentSearcher struct{}

func (silentSearcher) Search(context.Context, string, int) ([]string, error) {
	return nil, nil
}

type fixture struct {
	runner *Runner
	store  *store.Store
	blobs  *fakeBlobStore
	lock   locks.ArticleLock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	blobs := &fakeBlobStore{objects: map[string][]byte{}}
	lock := locks.NewLocalLock()

	webCfg := webcheck.DefaultConfig()
	webCfg.SearchDelay = time.Millisecond

	runner := NewRunner(Config{
		Store:    s,
		Blobs:    blobs,
		Tool:     exttool.New(failingToolRunner{}, nil),
		Checker:  webcheck.NewChecker(webCfg, silentSearcher{}),
		Detector: aidetect.New(aidetect.DefaultConfig()),
		Lock:     lock,
	})
	return &fixture{runner: runner, store: s, blobs: blobs, lock: lock}
}

func (f *fixture) addArticle(t *testing.T, article types.Article) {
	t.Helper()
	require.NoError(t, f.store.CreateArticle(context.Background(), article))
}

func (f *fixture) addAttachment(t *testing.T, articleID, filename string, content []byte) {
	t.Helper()
	path := "attachments/" + filename
	f.blobs.objects[path] = content
	require.NoError(t, f.store.AddAttachment(context.Background(), types.Attachment{
		ID:          "att-" + filename,
		ArticleID:   articleID,
		Filename:    filename,
		StoragePath: path,
	}))
}

// Scenario A: two identical text attachments yield one pair scoring 1.0.
func TestIdenticalAttachmentsScoreOne(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-a"})

	text := []byte("The committee reviewed the proposal over two long evenings before voting narrowly to adopt it.")
	f.addAttachment(t, "art-a", "first.txt", text)
	f.addAttachment(t, "art-a", "second.txt", text)

	resp, err := f.runner.RunSimilarityCheck(context.Background(), "art-a", 0.5, 10)
	require.NoError(t, err)
	require.Len(t, resp.Pairs, 1)
	assert.Equal(t, 1.0, resp.Pairs[0].Score)
}

// Scenario B: dense marker phrases + uniform sentences + repetitive
// vocabulary over 800+ words drive the AI score to the cap.
func TestHeavyMarkerTextHitsAICap(t *testing.T) {
	f := newFixture(t)

	sentence := "In conclusion the framework plays a crucial role in the ever-evolving landscape of enterprise software. "
	f.addArticle(t, types.Article{ID: "art-b", Content: strings.Repeat(sentence, 60)})

	resp, err := f.runner.RunOriginalityCheck(context.Background(), "art-b", "tester")
	require.NoError(t, err)
	assert.Equal(t, 99, resp.Summary.AIScore)
	assert.Contains(t, resp.Summary.AIDetails, "High probability of AI generation")
}

// Scenario C: nothing to analyze is a client error and writes no report.
func TestEmptyArticleRejected(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-c", Content: "   "})

	_, err := f.runner.RunOriginalityCheck(context.Background(), "art-c", "tester")
	assert.ErrorIs(t, err, ErrNothingToAnalyze)

	count, err := f.store.CountReports(context.Background(), "art-c")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "no report record on precondition failure")
}

// Scenario D: an undecodable binary attachment contributes no pairs but
// never blocks the rest of the corpus.
func TestBinaryAttachmentContributesNothing(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-d"})

	blob := make([]byte, 4096)
	rnd := rand.New(rand.NewSource(11))
	rnd.Read(blob)
	f.addAttachment(t, "art-d", "garbage.pdf", blob)

	text := []byte("A perfectly ordinary paragraph about municipal water treatment schedules and their seasonal variation.")
	f.addAttachment(t, "art-d", "one.txt", text)
	f.addAttachment(t, "art-d", "two.txt", text)

	resp, err := f.runner.RunSimilarityCheck(context.Background(), "art-d", 0, 50)
	require.NoError(t, err)
	require.Len(t, resp.Pairs, 1, "only the two readable documents compare")
	for _, p := range resp.Pairs {
		assert.NotEqual(t, "att-garbage.pdf", p.DocA)
		assert.NotEqual(t, "att-garbage.pdf", p.DocB)
	}
}

// External-tool failure must still produce a persisted report with
// valid AI and web scores and a notice in place of the tool summary.
func TestToolFailureStillProducesReport(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-e", Content: strings.Repeat(
		"The harvest came in late that year and the co-op argued about storage fees for a week. ", 15)})

	resp, err := f.runner.RunOriginalityCheck(context.Background(), "art-e", "tester")
	require.NoError(t, err)
	assert.Equal(t, exttool.NoticeFailedOrSkipped, resp.Summary.ExternalTool.Notice)
	assert.GreaterOrEqual(t, resp.Summary.AIScore, 0)
	assert.LessOrEqual(t, resp.Summary.AIScore, 99)
	assert.GreaterOrEqual(t, resp.Summary.WebScore, 0.0)
	assert.LessOrEqual(t, resp.Summary.WebScore, 100.0)

	report, err := f.runner.LatestReport(context.Background(), "art-e")
	require.NoError(t, err)
	assert.Equal(t, resp.ReportID, report.ID)
	assert.Equal(t, types.ReportStatusDegraded, report.Status)
	assert.Equal(t, "tester", report.RunBy)
}

// Each run appends a fresh report; the latest-by-created-at query moves.
func TestRerunCreatesNewReport(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-f", Content: strings.Repeat(
		"Short factual sentences about regional train schedules fill this paragraph to a useful length. ", 10)})

	first, err := f.runner.RunOriginalityCheck(context.Background(), "art-f", "tester")
	require.NoError(t, err)
	second, err := f.runner.RunOriginalityCheck(context.Background(), "art-f", "tester")
	require.NoError(t, err)
	assert.NotEqual(t, first.ReportID, second.ReportID)

	count, err := f.store.CountReports(context.Background(), "art-f")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// A held lock rejects a second concurrent run for the same article but
// not for others.
func TestConcurrentRunRejected(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-g", Content: "some body text long enough to pass the emptiness check"})
	f.addArticle(t, types.Article{ID: "art-h", Content: "an unrelated article that should be free to run"})

	held, err := f.lock.TryAcquire(context.Background(), "art-g")
	require.NoError(t, err)
	require.True(t, held)

	_, err = f.runner.RunOriginalityCheck(context.Background(), "art-g", "tester")
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = f.runner.RunOriginalityCheck(context.Background(), "art-h", "tester")
	assert.NoError(t, err, "lock is per article")
}

func TestUnknownArticle(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.RunOriginalityCheck(context.Background(), "missing", "tester")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// The lock is released after a run so the article can be re-analyzed.
func TestLockReleasedAfterRun(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-i", Content: "body text that comfortably exceeds the emptiness check"})

	_, err := f.runner.RunOriginalityCheck(context.Background(), "art-i", "tester")
	require.NoError(t, err)

	held, err := f.lock.TryAcquire(context.Background(), "art-i")
	require.NoError(t, err)
	assert.True(t, held, "lock must be free after the run completes")
}

// Unreadable blobs degrade that attachment to nothing instead of
// failing the run.
func TestMissingBlobDegradesGracefully(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, types.Article{ID: "art-j"})

	// Attachment row exists but the object is gone from blob storage.
	require.NoError(t, f.store.AddAttachment(context.Background(), types.Attachment{
		ID: "att-lost", ArticleID: "art-j", Filename: "lost.txt", StoragePath: "attachments/lost.txt",
	}))
	f.addAttachment(t, "art-j", "present.txt", []byte("the one attachment that still exists in storage"))

	resp, err := f.runner.RunOriginalityCheck(context.Background(), "art-j", "tester")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ReportID)
}
