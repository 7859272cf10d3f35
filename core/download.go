package core

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// progressInterval is how many bytes pass between progress callbacks.
const progressInterval = 1 << 20

// DownloadOptions configures DownloadWithProgress.
type DownloadOptions struct {
	URL            string
	DestPath       string
	ExpectedSHA256 string
	HTTPClient     *http.Client
	OnProgress     func(ProgressInfo)

	// Resume continues a partial file at DestPath with an HTTP Range request.
	Resume bool
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	BytesDownloaded int64
	TotalBytes      int64
	Resumed         bool
	ChecksumValid   bool
	Path            string
}

// HTTPStatusError is an unexpected response status from the download server.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", e.StatusCode, e.Status)
}

// DownloadWithProgress streams opts.URL into opts.DestPath. The body is
// hashed as it is written, so ExpectedSHA256 costs no second pass over the
// file; a resumed download hashes the existing prefix first.
func DownloadWithProgress(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	switch {
	case opts.URL == "":
		return nil, fmt.Errorf("URL is required")
	case opts.DestPath == "":
		return nil, fmt.Errorf("DestPath is required")
	}
	if opts.ExpectedSHA256 != "" {
		if err := validSHA256(opts.ExpectedSHA256); err != nil {
			return nil, err
		}
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(filepath.Dir(opts.DestPath), 0o755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	var offset int64
	if opts.Resume {
		if info, err := os.Stat(opts.DestPath); err == nil {
			offset = info.Size()
		}
	}

	resp, err := get(ctx, client, opts.URL, offset)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res := &DownloadResult{Path: opts.DestPath}
	switch resp.StatusCode {
	case http.StatusOK:
		offset = 0
		res.TotalBytes = resp.ContentLength
	case http.StatusPartialContent:
		res.Resumed = true
		res.TotalBytes = offset + resp.ContentLength
		if total, ok := contentRangeTotal(resp.Header.Get("Content-Range")); ok {
			res.TotalBytes = total
		}
	case http.StatusRequestedRangeNotSatisfiable:
		// Nothing left to fetch. Keep the file only if it verifies.
		if opts.ExpectedSHA256 != "" && VerifyChecksum(opts.DestPath, opts.ExpectedSHA256) == nil {
			if info, err := os.Stat(opts.DestPath); err == nil {
				res.TotalBytes, res.Resumed, res.ChecksumValid = info.Size(), true, true
				return res, nil
			}
		}
		os.Remove(opts.DestPath)
		opts.Resume = false
		return DownloadWithProgress(ctx, opts)
	default:
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	h := sha256.New()
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if res.Resumed {
		flags = os.O_WRONLY | os.O_APPEND
		if opts.ExpectedSHA256 != "" {
			if err := hashFile(h, opts.DestPath); err != nil {
				return nil, fmt.Errorf("hash partial file: %w", err)
			}
		}
	}
	f, err := os.OpenFile(opts.DestPath, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open destination file: %w", err)
	}
	defer f.Close()

	tracker := NewProgressTracker(res.TotalBytes)
	tracker.SetDownloaded(offset)
	body := &progressReader{r: resp.Body, tracker: tracker, notify: opts.OnProgress}

	res.BytesDownloaded, err = io.Copy(io.MultiWriter(f, h), body)
	if err != nil {
		return nil, fmt.Errorf("download interrupted: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync file: %w", err)
	}
	if opts.OnProgress != nil {
		opts.OnProgress(tracker.Progress())
	}

	if opts.ExpectedSHA256 != "" {
		if err := verifyDigest(h, opts.DestPath, opts.ExpectedSHA256); err != nil {
			return nil, err
		}
		res.ChecksumValid = true
	}
	return res, nil
}

func verifyDigest(h hash.Hash, path, want string) error {
	if err := compareDigest(h, path, want); err != nil {
		return fmt.Errorf("%w (file may be corrupted)", err)
	}
	return nil
}

func get(ctx context.Context, client *http.Client, url string, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", rangeFrom(offset))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	return resp, nil
}

// rangeFrom is an open-ended byte range starting at offset.
func rangeFrom(offset int64) string {
	return "bytes=" + strconv.FormatInt(max(offset, 0), 10) + "-"
}

// contentRangeTotal extracts the complete length from "bytes a-b/total".
// It reports false for a missing, malformed or unknown ("*") total.
func contentRangeTotal(header string) (int64, bool) {
	unit, rest, ok := strings.Cut(header, " ")
	if !ok || unit != "bytes" {
		return 0, false
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type progressReader struct {
	r       io.Reader
	tracker *ProgressTracker
	notify  func(ProgressInfo)
	last    int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.tracker.Update(int64(n))
		if p.notify != nil {
			if done := p.tracker.Downloaded(); done-p.last >= progressInterval {
				p.notify(p.tracker.Progress())
				p.last = done
			}
		}
	}
	return n, err
}
