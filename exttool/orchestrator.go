// Package exttool materializes submission files on disk, invokes the
// containerized cross-submission similarity checker as a subprocess,
// and condenses its comparison table into a summary. The tool is an
// opaque collaborator: any failure downgrades the summary to a notice
// instead of failing the pipeline.
package exttool

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"veritext/config"
	"veritext/types"
)

// NoticeFailedOrSkipped replaces the tool summary when the subprocess
// could not run or exited non-zero.
const NoticeFailedOrSkipped = "jplag-failed-or-skipped"

// ErrToolTimeout reports that the subprocess exceeded its wall-clock
// budget and was killed.
var ErrToolTimeout = errors.New("external similarity tool timed out")

// WorkFile is one submission to materialize in the working directory:
// an attachment's bytes or the article body rendered as a text file.
type WorkFile struct {
	Name    string
	Content []byte
}

// Outcome is the orchestrator's result. Success false means the tool
// contributed nothing and Summary carries only a notice.
type Outcome struct {
	Success           bool
	Summary           types.ExternalToolSummary
	ReportStoragePath string
	ReportPublicURL   string
}

// ArchiveStore persists the zipped tool output and issues a long-lived
// download URL for it.
type ArchiveStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Runner executes the tool against a prepared working directory. The
// directory contract is fixed: submissions under <dir>/submissions,
// results expected under <dir>/results.
type Runner interface {
	Run(ctx context.Context, workDir string) error
}

// Orchestrator drives one tool invocation end to end.
type Orchestrator struct {
	runner  Runner
	archive ArchiveStore
	timeout time.Duration
}

// New builds an orchestrator. A nil runner gets the docker-backed
// default; a nil archive skips upload and leaves the report local-only.
func New(runner Runner, archive ArchiveStore) *Orchestrator {
	if runner == nil {
		runner = &dockerRunner{
			image:   config.ExternalToolImage(),
			lang:    config.ExternalToolLanguage,
			threads: config.ExternalToolThreads,
		}
	}
	return &Orchestrator{
		runner:  runner,
		archive: archive,
		timeout: config.ExternalToolTimeout,
	}
}

// Run writes the files into a fresh working directory, invokes the
// tool, and parses and archives its output. The working directory is
// removed on every exit path.
func (o *Orchestrator) Run(ctx context.Context, files []WorkFile) Outcome {
	failed := Outcome{
		Success: false,
		Summary: types.ExternalToolSummary{Notice: NoticeFailedOrSkipped},
	}

	workDir, err := os.MkdirTemp("", "similarity-run-*")
	if err != nil {
		log.Printf("Warning: external tool skipped, temp dir: %v", err)
		return failed
	}
	defer os.RemoveAll(workDir)

	if err := materialize(workDir, files); err != nil {
		log.Printf("Warning: external tool skipped, materialize: %v", err)
		return failed
	}

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := o.runner.Run(runCtx, workDir); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrToolTimeout, o.timeout)
		}
		log.Printf("Warning: external tool failed: %v", err)
		return failed
	}

	resultsDir := filepath.Join(workDir, "results")
	pairs, err := parseComparisons(filepath.Join(resultsDir, "comparisons.csv"))
	if err != nil {
		log.Printf("Warning: external tool output unreadable: %v", err)
		return failed
	}

	out := Outcome{Success: true, Summary: summarize(pairs)}

	if o.archive != nil {
		path, url, err := o.archiveResults(ctx, resultsDir)
		if err != nil {
			// The scores are still valid without the archive.
			log.Printf("Warning: failed to archive tool results: %v", err)
		} else {
			out.ReportStoragePath = path
			out.ReportPublicURL = url
		}
	}
	return out
}

// materialize writes every work file into <dir>/submissions and creates
// the results directory the tool is contracted to write into.
func materialize(workDir string, files []WorkFile) error {
	subDir := filepath.Join(workDir, "submissions")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		return fmt.Errorf("create submissions dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(workDir, "results"), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	for _, f := range files {
		name := filepath.Base(f.Name)
		if name == "" || name == "." {
			continue
		}
		if err := os.WriteFile(filepath.Join(subDir, name), f.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (o *Orchestrator) archiveResults(ctx context.Context, resultsDir string) (string, string, error) {
	archive, err := zipDir(resultsDir)
	if err != nil {
		return "", "", fmt.Errorf("zip results: %w", err)
	}

	key := fmt.Sprintf("reports/%d-results.zip", time.Now().UnixNano())
	if err := o.archive.Put(ctx, key, bytes.NewReader(archive), "application/zip"); err != nil {
		return "", "", fmt.Errorf("upload results archive: %w", err)
	}

	url, err := o.archive.PresignGet(ctx, key, config.ReportURLExpiry())
	if err != nil {
		// An archive nobody can reach is an orphan; remove it again.
		if delErr := o.archive.Delete(ctx, key); delErr != nil {
			log.Printf("Warning: orphaned results archive %s not deleted: %v", key, delErr)
		}
		return "", "", fmt.Errorf("presign results archive: %w", err)
	}
	return key, url, nil
}

// zipDir packs a directory tree into an in-memory zip archive.
func zipDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dockerRunner invokes the tool image through the container runtime.
// The working directory is bind-mounted at /data; the tool writes its
// export under /data/results per the fixed output contract.
type dockerRunner struct {
	image   string
	lang    string
	threads int
}

func (d *dockerRunner) Run(ctx context.Context, workDir string) error {
	args := []string{
		"run", "--rm",
		"-v", workDir + ":/data",
		d.image,
		"-r", "/data/results",
		"-l", d.lang,
		"-t", strconv.Itoa(d.threads),
		"/data/submissions",
	}

	cmd := exec.CommandContext(ctx, "docker", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = io.Discard

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("docker run: %w: %s", err, stderr.String())
		}
		return fmt.Errorf("docker run: %w", err)
	}
	return nil
}
