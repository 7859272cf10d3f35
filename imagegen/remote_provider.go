package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"nftgen/imaging"
	"nftgen/logging"

	"go.uber.org/zap"
)

const (
	img2imgPath = "/sdapi/v1/img2img"
	modelsPath  = "/sdapi/v1/sd-models"

	// maxRemoteResponse bounds the JSON body; a 512px PNG is well under it.
	maxRemoteResponse = 64 << 20
)

// RemoteProvider calls an AUTOMATIC1111-compatible web UI API.
type RemoteProvider struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// NewRemoteProvider targets baseURL, e.g. http://127.0.0.1:7860.
func NewRemoteProvider(baseURL string, timeout time.Duration, logger *logging.Logger) *RemoteProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RemoteProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("remote"),
	}
}

// a1111Img2ImgRequest is the subset of the img2img payload this client sets.
type a1111Img2ImgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt"`
	DenoisingStrength float64  `json:"denoising_strength"`
	CFGScale          float64  `json:"cfg_scale"`
	Steps             int      `json:"steps"`
	Seed              int64    `json:"seed"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	BatchSize         int      `json:"batch_size"`
	NIter             int      `json:"n_iter"`
}

type a1111Img2ImgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

// Name reports "remote".
func (p *RemoteProvider) Name() string { return "remote" }

// Missing reports an unset or unreachable endpoint.
func (p *RemoteProvider) Missing(ctx context.Context) []string {
	if p.baseURL == "" {
		return []string{"remote endpoint (set SD_REMOTE_URL)"}
	}
	if err := p.ping(ctx); err != nil {
		p.logger.Debug("remote endpoint unreachable", zap.Error(err))
		return []string{fmt.Sprintf("remote endpoint %s (%v)", p.baseURL, err)}
	}
	return nil
}

func (p *RemoteProvider) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+modelsPath, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// Load is a no-op; the server owns the model.
func (p *RemoteProvider) Load(context.Context) error { return nil }

// Img2Img posts r to the img2img route and decodes the first image of the
// response.
func (p *RemoteProvider) Img2Img(ctx context.Context, r Request) (*image.RGBA, error) {
	pngData, err := imaging.PNGBytes(r.InitImage)
	if err != nil {
		return nil, fmt.Errorf("imagegen: encode init image: %w", err)
	}

	payload := a1111Img2ImgRequest{
		InitImages:        []string{base64.StdEncoding.EncodeToString(pngData)},
		Prompt:            r.Prompt,
		NegativePrompt:    r.NegativePrompt,
		DenoisingStrength: r.Strength,
		CFGScale:          r.GuidanceScale,
		Steps:             r.Steps,
		Seed:              r.Seed,
		Width:             r.InitImage.Rect.Dx(),
		Height:            r.InitImage.Rect.Dy(),
		BatchSize:         1,
		NIter:             1,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("imagegen: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+img2imgPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagegen: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagegen: remote img2img: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return nil, fmt.Errorf("imagegen: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagegen: remote img2img: HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out a1111Img2ImgResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("imagegen: decode response: %w", err)
	}
	if len(out.Images) == 0 || out.Images[0] == "" {
		return nil, ErrEmptyResponse
	}

	p.logger.Debug("remote img2img finished", zap.Duration("elapsed", time.Since(start)))
	return decodeBase64Image(out.Images[0])
}

// Close releases idle connections.
func (p *RemoteProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// decodeBase64Image accepts raw base64 or a data URL.
func decodeBase64Image(s string) (*image.RGBA, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("imagegen: decode base64 image: %w", err)
	}
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return imaging.ToRGB(img), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Provider = (*RemoteProvider)(nil)
