// Package download fetches quiz data files into per-job workspaces.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Darunesh1/tds-quiz-solver/pkg/file"
	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

const (
	// MaxFileSize caps a single download at 50 MB.
	MaxFileSize = 50 * 1024 * 1024

	defaultMaxRetries = 3
)

// ErrFileTooLarge is returned when a download exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("download: file exceeds size limit")

// Downloader fetches remote files into job workspaces under baseDir.
type Downloader struct {
	baseDir    string
	maxRetries int
	httpClient *http.Client
}

// New creates a downloader rooted at baseDir.
func New(baseDir string) *Downloader {
	return &Downloader{
		baseDir:    baseDir,
		maxRetries: defaultMaxRetries,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// JobDir returns the workspace directory for a job, creating it if needed.
func (d *Downloader) JobDir(jobID string) (string, error) {
	dir := filepath.Join(d.baseDir, jobID)
	if err := file.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// Download fetches url into the job workspace and returns the local path.
// Transient failures are retried with exponential backoff.
func (d *Downloader) Download(ctx context.Context, jobID, url string) (string, error) {
	dir, err := d.JobDir(jobID)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, file.SafeFilename(url))

	var lastErr error
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			log.Warn("Retrying download of %s in %s (attempt %d/%d)", url, backoff, attempt+1, d.maxRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := d.fetch(ctx, url, dest)
		if err == nil {
			log.Info("Downloaded %s -> %s", url, dest)
			return dest, nil
		}
		lastErr = err
		if errors.Is(err, ErrFileTooLarge) || ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("download %s: %w", url, lastErr)
}

// DownloadAll fetches urls in parallel and returns local paths in the
// same order. The first failure cancels the remaining downloads.
func (d *Downloader) DownloadAll(ctx context.Context, jobID string, urls []string) ([]string, error) {
	paths := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, url := range urls {
		g.Go(func() error {
			path, err := d.Download(gctx, jobID, url)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Cleanup removes a job's workspace directory.
func (d *Downloader) Cleanup(jobID string) error {
	if jobID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(d.baseDir, jobID))
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, resp.ContentLength)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	// Stream with a hard cap; Content-Length can lie or be absent.
	written, err := io.Copy(out, io.LimitReader(resp.Body, MaxFileSize+1))
	closeErr := out.Close()
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("write file: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("close file: %w", closeErr)
	}
	if written > MaxFileSize {
		_ = os.Remove(dest)
		return fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, MaxFileSize)
	}
	return nil
}
