package imagegen

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"nftgen/imaging"
	"nftgen/logging"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider edits the init image through the OpenAI images API. The
// edit endpoint has no strength, guidance or step controls; those request
// fields are logged and dropped.
type OpenAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
	apiKey     string
	model      string
	logger     *logging.Logger
}

// OpenAIProviderConfig configures NewOpenAIProvider.
type OpenAIProviderConfig struct {
	APIKey  string
	BaseURL string // default https://api.openai.com/v1
	Model   string // default dall-e-2, the only model the edit endpoint takes at 512x512
	Timeout time.Duration
}

// NewOpenAIProvider builds the provider. A missing API key is reported by
// Missing rather than here so the pipeline can list it with the rest.
func NewOpenAIProvider(cfg OpenAIProviderConfig, logger *logging.Logger) *OpenAIProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = openai.CreateImageModelDallE2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger.Named("openai"),
	}
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// Missing reports an unset API key.
func (p *OpenAIProvider) Missing(context.Context) []string {
	if p.apiKey == "" {
		return []string{"OpenAI API key (set OPENAI_API_KEY)"}
	}
	return nil
}

// Load is a no-op; the API needs no local preparation.
func (p *OpenAIProvider) Load(context.Context) error { return nil }

// Img2Img sends the init image to the edit endpoint with a fully
// transparent mask and decodes the first returned image.
func (p *OpenAIProvider) Img2Img(ctx context.Context, r Request) (*image.RGBA, error) {
	p.logger.Debug("edit endpoint ignores diffusion controls",
		zap.Float64("strength", r.Strength),
		zap.Float64("guidance_scale", r.GuidanceScale),
		zap.Int("steps", r.Steps),
		zap.Int64("seed", r.Seed),
		zap.String("negative_prompt", r.NegativePrompt))

	dir, err := os.MkdirTemp("", "nftgen-openai-*")
	if err != nil {
		return nil, fmt.Errorf("imagegen: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// The edit endpoint regenerates the transparent area of the mask; a fully
	// transparent mask lets it repaint the whole image.
	bounds := r.InitImage.Rect
	imgFile, err := writeTempPNG(filepath.Join(dir, "image.png"), r.InitImage)
	if err != nil {
		return nil, err
	}
	defer imgFile.Close()
	maskFile, err := writeTempPNG(filepath.Join(dir, "mask.png"), image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy())))
	if err != nil {
		return nil, err
	}
	defer maskFile.Close()

	resp, err := p.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          imgFile,
		Mask:           maskFile,
		Prompt:         r.Prompt,
		Model:          p.model,
		N:              1,
		Size:           openai.CreateImageSize512x512,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: OpenAI image edit failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	switch d := resp.Data[0]; {
	case d.B64JSON != "":
		return decodeBase64Image(d.B64JSON)
	case d.URL != "":
		return p.fetch(ctx, d.URL)
	default:
		return nil, ErrEmptyResponse
	}
}

// fetch downloads an image URL, for gateways that ignore response_format.
func (p *OpenAIProvider) fetch(ctx context.Context, url string) (*image.RGBA, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("imagegen: create download request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagegen: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagegen: download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return nil, fmt.Errorf("imagegen: read image: %w", err)
	}
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return imaging.ToRGB(img), nil
}

// Close is a no-op.
func (p *OpenAIProvider) Close() error { return nil }

func writeTempPNG(path string, img image.Image) (*os.File, error) {
	if err := imaging.SavePNG(path, img); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imagegen: reopen %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

var _ Provider = (*OpenAIProvider)(nil)
