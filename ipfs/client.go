// Package ipfs pins generated images and their NFT metadata through the
// nft.storage upload API.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"nftgen/logging"

	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the nft.storage API root.
	DefaultEndpoint = "https://api.nft.storage"

	uploadPath = "/upload"

	// maxResponse bounds the upload response; it is a small JSON document.
	maxResponse = 1 << 20
)

// ErrNotConfigured is returned by NewClient without an API key.
var ErrNotConfigured = errors.New("NFT.storage API key not configured")

// Config configures Client.
type Config struct {
	APIKey   string
	Endpoint string // DefaultEndpoint when empty
	Timeout  time.Duration

	// HTTPClient is used as is when set; Timeout is ignored then.
	HTTPClient *http.Client
}

// Client uploads content to nft.storage. It is safe for concurrent use.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// Upload is the content identifier nft.storage assigned to an upload.
type Upload struct {
	CID string
}

// IPFSURL is the ipfs:// form of the CID, used inside token metadata.
func (u Upload) IPFSURL() string { return "ipfs://" + u.CID }

// GatewayURL is an HTTPS URL that serves the content.
func (u Upload) GatewayURL() string {
	return fmt.Sprintf("https://%s.ipfs.nftstorage.link/", u.CID)
}

// NewClient returns ErrNotConfigured when cfg has no API key.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		client:   client,
		logger:   logger.Named("ipfs"),
	}, nil
}

// UploadJSON stores v, encoded as JSON, as a single file.
func (c *Client) UploadJSON(ctx context.Context, v any) (Upload, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Upload{}, fmt.Errorf("ipfs: encode metadata: %w", err)
	}
	return c.upload(ctx, bytes.NewReader(body), "application/json", int64(len(body)))
}

// UploadFile stores data under filename as a multipart "file" part.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (Upload, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Upload{}, fmt.Errorf("ipfs: build form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return Upload{}, fmt.Errorf("ipfs: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Upload{}, fmt.Errorf("ipfs: build form: %w", err)
	}
	return c.upload(ctx, &body, mw.FormDataContentType(), int64(body.Len()))
}

type uploadResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) upload(ctx context.Context, body io.Reader, contentType string, size int64) (Upload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+uploadPath, body)
	if err != nil {
		return Upload{}, fmt.Errorf("ipfs: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Upload{}, fmt.Errorf("ipfs: upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return Upload{}, fmt.Errorf("ipfs: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Upload{}, fmt.Errorf("NFT.storage error: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Upload{}, fmt.Errorf("ipfs: decode response: %w", err)
	}
	if out.Value.CID == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = "response carries no cid"
		}
		return Upload{}, fmt.Errorf("NFT.storage error: %s", msg)
	}

	c.logger.Info("uploaded",
		zap.String("cid", out.Value.CID),
		zap.Int64("bytes", size),
		zap.Duration("took", time.Since(start)))
	return Upload{CID: out.Value.CID}, nil
}
