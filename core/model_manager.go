package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ModelConfig describes a downloadable set of diffusion weights.
type ModelConfig struct {
	// Name is the identifier used with EnsureModelAvailable, e.g. "runwayml/stable-diffusion-v1-5".
	Name string

	URL      string
	Filename string

	// ExpectedSHA256 enables verification when non-empty.
	ExpectedSHA256 string

	// SizeBytes is informational, used for progress output.
	SizeBytes int64
}

// DefaultSDModel is the img2img checkpoint used when SD_MODEL_ID is unset.
var DefaultSDModel = ModelConfig{
	Name:      "runwayml/stable-diffusion-v1-5",
	URL:       "https://huggingface.co/runwayml/stable-diffusion-v1-5/resolve/main/v1-5-pruned-emaonly.safetensors",
	Filename:  "v1-5-pruned-emaonly.safetensors",
	SizeBytes: 4 * BytesPerGB,

	ExpectedSHA256: "6ce0161689b3853acaa03779ec93eafe75a02f4ced659bee03f50797806fa2fa",
}

// TurboSDModel is a smaller distilled checkpoint that works with few steps.
var TurboSDModel = ModelConfig{
	Name:      "stabilityai/sd-turbo",
	URL:       "https://huggingface.co/stabilityai/sd-turbo/resolve/main/sd_turbo.safetensors",
	Filename:  "sd_turbo.safetensors",
	SizeBytes: 5 * BytesPerGB / 2,
}

// ModelManager makes model weights available on local disk, downloading
// them with resume and retry when missing.
type ModelManager struct {
	modelDir       string
	httpClient     *http.Client
	models         map[string]ModelConfig
	maxRetries     int
	baseRetryDelay time.Duration
	onProgress     func(ProgressInfo)
}

// ModelManagerOption configures a ModelManager.
type ModelManagerOption func(*ModelManager)

// WithMaxRetries sets the number of download attempts.
func WithMaxRetries(n int) ModelManagerOption {
	return func(mm *ModelManager) {
		if n > 0 {
			mm.maxRetries = n
		}
	}
}

// WithBaseRetryDelay sets the first backoff delay. It doubles per attempt.
func WithBaseRetryDelay(d time.Duration) ModelManagerOption {
	return func(mm *ModelManager) {
		if d > 0 {
			mm.baseRetryDelay = d
		}
	}
}

// WithModel registers or replaces a model.
func WithModel(model ModelConfig) ModelManagerOption {
	return func(mm *ModelManager) {
		mm.models[model.Name] = model
	}
}

// WithProgress receives download progress updates.
func WithProgress(fn func(ProgressInfo)) ModelManagerOption {
	return func(mm *ModelManager) {
		mm.onProgress = fn
	}
}

// NewModelManager returns a manager storing weights under modelDir. A nil
// httpClient uses a client without timeout; the context bounds downloads.
func NewModelManager(modelDir string, httpClient *http.Client, opts ...ModelManagerOption) *ModelManager {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	mm := &ModelManager{
		modelDir:       modelDir,
		httpClient:     httpClient,
		models:         make(map[string]ModelConfig),
		maxRetries:     3,
		baseRetryDelay: 2 * time.Second,
	}
	mm.models[DefaultSDModel.Name] = DefaultSDModel
	mm.models[TurboSDModel.Name] = TurboSDModel

	for _, opt := range opts {
		opt(mm)
	}
	return mm
}

// EnsureModelAvailable returns the local path of modelName, downloading it
// first if it is missing or empty. A present file that fails checksum
// verification is an error rather than a silent re-download.
func (mm *ModelManager) EnsureModelAvailable(ctx context.Context, modelName string) (string, error) {
	modelCfg, ok := mm.models[modelName]
	if !ok {
		return "", fmt.Errorf("unknown model: %q (available: %v)", modelName, mm.ModelNames())
	}

	modelPath := filepath.Join(mm.modelDir, modelCfg.Filename)
	exists, err := mm.checkModelExists(modelPath, modelCfg.ExpectedSHA256)
	if err != nil {
		return "", err
	}
	if exists {
		return modelPath, nil
	}

	if err := mm.downloadModel(ctx, modelCfg, modelPath); err != nil {
		return "", err
	}
	return modelPath, nil
}

// GetModelPath returns where modelName lives, whether or not it is downloaded.
func (mm *ModelManager) GetModelPath(modelName string) (string, error) {
	modelCfg, ok := mm.models[modelName]
	if !ok {
		return "", fmt.Errorf("unknown model: %q", modelName)
	}
	return filepath.Join(mm.modelDir, modelCfg.Filename), nil
}

// ModelNames lists registered models in sorted order.
func (mm *ModelManager) ModelNames() []string {
	names := make([]string, 0, len(mm.models))
	for name := range mm.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (mm *ModelManager) checkModelExists(modelPath, expectedChecksum string) (bool, error) {
	info, err := os.Stat(modelPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat model file: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("model path is a directory: %s", modelPath)
	}
	if info.Size() == 0 {
		return false, nil
	}
	if expectedChecksum == "" {
		return true, nil
	}

	if err := VerifyChecksum(modelPath, expectedChecksum); err != nil {
		return false, err
	}
	return true, nil
}

func (mm *ModelManager) downloadModel(ctx context.Context, modelCfg ModelConfig, destPath string) error {
	if err := os.MkdirAll(mm.modelDir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= mm.maxRetries; attempt++ {
		if attempt > 1 {
			delay := mm.baseRetryDelay * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		_, err := DownloadWithProgress(ctx, DownloadOptions{
			URL:            modelCfg.URL,
			DestPath:       destPath,
			ExpectedSHA256: modelCfg.ExpectedSHA256,
			HTTPClient:     mm.httpClient,
			OnProgress:     mm.onProgress,
			Resume:         true,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableDownloadError(err) {
			break
		}
	}

	return &ModelDownloadError{
		ModelName: modelCfg.Name,
		URL:       modelCfg.URL,
		DestPath:  destPath,
		Cause:     lastErr,
	}
}

func isRetryableDownloadError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrChecksumMismatch):
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// ModelDownloadError reports a failed download with manual instructions.
type ModelDownloadError struct {
	ModelName string
	URL       string
	DestPath  string
	Cause     error
}

func (e *ModelDownloadError) Error() string {
	return fmt.Sprintf("model download failed: %s: %v (download %s manually to %s)",
		e.ModelName, e.Cause, e.URL, e.DestPath)
}

func (e *ModelDownloadError) Unwrap() error {
	return e.Cause
}
