package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Download errors callers branch on.
var (
	ErrInvalidImageURL  = errors.New("imagegen: image URL must be an absolute http(s) URL")
	ErrDownloadTooLarge = errors.New("imagegen: downloaded image exceeds size limit")
)

// Downloader fetches source images referenced by URL.
//
// Thread Safety: Downloader is safe for concurrent use.
// Each download creates its own HTTP request.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// DownloaderConfig holds configuration for the Downloader.
type DownloaderConfig struct {
	// HTTPClient is used as is when set; Timeout is ignored then.
	HTTPClient *http.Client

	// Timeout bounds a whole download. Default: 60 seconds.
	Timeout time.Duration

	// MaxBytes caps the response body. Zero means no limit.
	MaxBytes int64
}

// DefaultDownloaderConfig returns a 60 second timeout and a 10 MB limit,
// the same ceiling as multipart uploads.
func DefaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{
		Timeout:  60 * time.Second,
		MaxBytes: 10 << 20,
	}
}

// NewDownloader creates a downloader from cfg.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Downloader{client: client, maxBytes: cfg.MaxBytes}
}

// ValidateImageURL reports whether raw is an absolute http or https URL.
func ValidateImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidImageURL
	}
	return nil
}

// DownloadBytes downloads an image and returns the raw bytes together with
// the file extension implied by its Content-Type.
func (d *Downloader) DownloadBytes(ctx context.Context, imageURL string) ([]byte, string, error) {
	if err := ValidateImageURL(imageURL); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(imageURL), nil)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to create download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("imagegen: download failed with status %d", resp.StatusCode)
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return nil, "", ErrDownloadTooLarge
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		// one extra byte tells a body at the limit from one past it
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to read image data: %w", err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, "", ErrDownloadTooLarge
	}

	ext := extensionFromContentType(resp.Header.Get("Content-Type"))
	if ext == "" {
		ext = ".png"
	}
	return data, ext, nil
}

// extensionFromContentType returns the file extension for a given Content-Type.
func extensionFromContentType(contentType string) string {
	lower := strings.ToLower(contentType)
	if idx := strings.Index(lower, ";"); idx != -1 {
		lower = lower[:idx]
	}
	lower = strings.TrimSpace(lower)

	switch lower {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		if strings.HasPrefix(lower, "image/") {
			return ".png"
		}
		return ""
	}
}
