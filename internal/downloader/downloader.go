package downloader

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/NovaHFly/kemono-su-downloader/internal/helpers"
	"github.com/NovaHFly/kemono-su-downloader/internal/models"
	"github.com/NovaHFly/kemono-su-downloader/internal/retry"
)

// Custom Downloader Errors
var (
	ErrHttpStatus  = errors.New("unexpected HTTP status code")
	ErrFileSystem  = errors.New("filesystem error") // Covers create dir and write file
	ErrHttpRequest = errors.New("HTTP request creation/execution error")
)

// Downloader fetches one attachment's bytes and persists them. Each
// fetch-and-write is wrapped in the retry policy as a unit: a write
// failure counts as a failed attempt and the whole fetch re-runs.
type Downloader struct {
	client      *http.Client
	maxAttempts int
}

// NewDownloader creates a Downloader. A nil client gets a default
// with a generous timeout for large attachments.
func NewDownloader(client *http.Client, maxAttempts int) *Downloader {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Minute,
		}
	}
	if maxAttempts <= 0 {
		maxAttempts = retry.DefaultMaxAttempts
	}
	return &Downloader{
		client:      client,
		maxAttempts: maxAttempts,
	}
}

// Fetch downloads the attachment to its destination folder, returning
// the final local path and byte count. The file at the target path is
// overwritten; a crash mid-write leaves a truncated file.
func (d *Downloader) Fetch(att models.Attachment) (string, int64, error) {
	var localPath string
	var size int64

	op := fmt.Sprintf("download %s", att.URL())
	err := retry.Do(op, d.maxAttempts, func() error {
		path, n, err := d.fetchOnce(att)
		if err != nil {
			return err
		}
		localPath, size = path, n
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return localPath, size, nil
}

func (d *Downloader) fetchOnce(att models.Attachment) (string, int64, error) {
	// Idempotent: the folder existing already is not an error.
	if !helpers.CheckAndMakeDir(att.Folder) {
		return "", 0, fmt.Errorf("%w: failed to create directory %s", ErrFileSystem, att.Folder)
	}

	url := att.URL()
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: creating request for %s: %v", ErrHttpRequest, url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: performing request for %s: %v", ErrHttpRequest, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", 0, fmt.Errorf("%w: received status %d from %s", ErrHttpStatus, resp.StatusCode, url)
	}

	targetPath := filepath.Join(att.Folder, att.Filename)
	outFile, err := os.Create(targetPath)
	if err != nil {
		return "", 0, fmt.Errorf("%w: creating file %s: %v", ErrFileSystem, targetPath, err)
	}

	counter := &helpers.CounterWriter{Writer: outFile}
	if _, err := io.Copy(counter, resp.Body); err != nil {
		_ = outFile.Close()
		return "", 0, fmt.Errorf("%w: writing to %s: %v", ErrFileSystem, targetPath, err)
	}
	if err := outFile.Close(); err != nil {
		return "", 0, fmt.Errorf("%w: closing %s: %v", ErrFileSystem, targetPath, err)
	}

	log.Debugf("Wrote %s (%s)", targetPath, helpers.BytesToSize(uint64(counter.Total)))
	return targetPath, counter.Total, nil
}
