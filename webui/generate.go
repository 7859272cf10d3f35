package webui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"nftgen/history"
	"nftgen/imagegen"
	"nftgen/imaging"
	"nftgen/metrics"
	"nftgen/styles"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generation modes reported to clients.
const (
	ModeDiffusion = history.ModeDiffusion
	ModeBasic     = history.ModeBasic
	ModeOriginal  = history.ModeOriginal
)

// Diffuser runs img2img on a decoded image. *imagegen.Pipeline satisfies it.
type Diffuser interface {
	Generate(ctx context.Context, src image.Image, opts imagegen.Options) (*image.RGBA, error)
}

// GenerateResponse is the body of a successful POST /api/generate.
type GenerateResponse struct {
	Success        bool   `json:"success"`
	ID             string `json:"id"`
	ImageURL       string `json:"imageUrl"`
	Style          string `json:"style"`
	Prompt         string `json:"prompt"`
	Mode           string `json:"mode"`
	Provider       string `json:"provider,omitempty"`
	ProcessingTime string `json:"processingTime"`
}

// generation is the per-request state of handleGenerate.
type generation struct {
	id       string
	style    string
	custom   string
	prompt   string
	filename string
	dir      string
	input    string
	output   string
	start    time.Time
}

// upload is a decoded source image with the form fields that came with it.
type upload struct {
	style    string
	custom   string
	filename string
	data     []byte
}

// generateJSONRequest is the JSON form of POST /api/generate. The image is
// fetched from ImageURL.
type generateJSONRequest struct {
	ImageURL     string `json:"imageUrl"`
	Style        string `json:"style"`
	CustomPrompt string `json:"customPrompt"`
}

// requestError is an input problem with its HTTP status.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	var (
		up  *upload
		err error
	)
	if isJSONRequest(r) {
		up, err = s.readURLUpload(r)
	} else {
		up, err = s.readMultipartUpload(r)
	}
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			writeError(w, reqErr.status, reqErr.msg)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !imaging.IsImage(up.data) {
		writeError(w, http.StatusBadRequest, "upload is not a supported image")
		return
	}

	dir, err := os.MkdirTemp(s.config.TempDir, "nftgen-*")
	if err != nil {
		s.logger.Error("create temp dir", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}
	defer os.RemoveAll(dir)

	g := &generation{
		id:       uuid.NewString(),
		style:    up.style,
		custom:   up.custom,
		filename: up.filename,
		dir:      dir,
		input:    filepath.Join(dir, "input"+filepath.Ext(up.filename)),
		output:   filepath.Join(dir, "output.png"),
		start:    time.Now(),
	}
	g.prompt = s.prompts.BuildPrompt(g.style, g.custom)

	if err := os.WriteFile(g.input, up.data, 0o600); err != nil {
		s.logger.Error("stage upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}

	resp, genErr := s.generate(r.Context(), g)
	if resp == nil {
		writeError(w, http.StatusInternalServerError, genErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) tooLarge() *requestError {
	return &requestError{
		status: http.StatusRequestEntityTooLarge,
		msg:    fmt.Sprintf("image exceeds %d MB limit", s.config.MaxUploadBytes>>20),
	}
}

func (s *Server) readMultipartUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, s.tooLarge()
		}
		return nil, errors.New("expected multipart form data")
	}
	defer r.MultipartForm.RemoveAll()

	style := strings.TrimSpace(r.FormValue("style"))
	if style == "" {
		return nil, errors.New("style is required")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("could not read image")
	}
	return &upload{
		style:    style,
		custom:   strings.TrimSpace(r.FormValue("customPrompt")),
		filename: filepath.Base(header.Filename),
		data:     data,
	}, nil
}

func (s *Server) readURLUpload(r *http.Request) (*upload, error) {
	var req generateJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, s.tooLarge()
		}
		return nil, errors.New("invalid JSON body")
	}

	req.Style = strings.TrimSpace(req.Style)
	if req.Style == "" {
		return nil, errors.New("style is required")
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, errors.New("imageUrl is required")
	}
	if err := imagegen.ValidateImageURL(req.ImageURL); err != nil {
		return nil, errors.New("imageUrl must be an absolute http(s) URL")
	}

	data, ext, err := s.downloader.DownloadBytes(r.Context(), req.ImageURL)
	if errors.Is(err, imagegen.ErrDownloadTooLarge) {
		return nil, s.tooLarge()
	}
	if err != nil {
		s.logger.Warn("fetch source image", zap.String("url", req.ImageURL), zap.Error(err))
		return nil, &requestError{status: http.StatusBadGateway, msg: "could not fetch imageUrl"}
	}
	return &upload{
		style:    req.Style,
		custom:   strings.TrimSpace(req.CustomPrompt),
		filename: urlFilename(req.ImageURL, ext),
		data:     data,
	}, nil
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// urlFilename names a fetched image after the last path segment of its URL.
func urlFilename(raw, ext string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "image" + ext
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	if path.Ext(name) == "" {
		name += ext
	}
	return name
}

// generate tries diffusion, then the style filters, then echoes the upload.
// It returns a response in every case except an undecodable input; the
// error, if any, is the last pipeline failure.
func (s *Server) generate(ctx context.Context, g *generation) (*GenerateResponse, error) {
	done := s.startGeneration(g)

	src, err := imaging.DecodeFile(g.input)
	if err != nil {
		done(ModeOriginal, err)
		return nil, err
	}

	mode := ModeDiffusion
	genErr := s.runDiffusion(ctx, g, src)
	if genErr != nil {
		s.logger.Warn("diffusion failed, using basic processing",
			zap.String("id", g.id), zap.String("style", g.style), zap.Error(genErr))
		mode = ModeBasic
		genErr = s.runBasic(g, src)
	}

	var png []byte
	if genErr == nil {
		png, genErr = os.ReadFile(g.output)
	}
	if genErr != nil {
		s.logger.Error("basic processing failed, returning original",
			zap.String("id", g.id), zap.Error(genErr))
		mode = ModeOriginal
		png, err = imaging.PNGBytes(src)
		if err != nil {
			done(mode, err)
			return nil, err
		}
	}

	elapsed := done(mode, genErr)
	return &GenerateResponse{
		Success:        true,
		ID:             g.id,
		ImageURL:       "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Style:          g.style,
		Prompt:         g.prompt,
		Mode:           mode,
		Provider:       s.providerName(mode),
		ProcessingTime: formatProcessingTime(elapsed, mode),
	}, genErr
}

func (s *Server) runDiffusion(ctx context.Context, g *generation, src image.Image) error {
	if s.diffuser == nil {
		return errors.New("no diffusion backend configured")
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for diffusion slot: %w", err)
	}
	defer s.sem.Release(1)

	out, err := s.diffuser.Generate(ctx, src, imagegen.DefaultOptions(g.prompt))
	if err != nil {
		return err
	}
	return imaging.SavePNG(g.output, out)
}

func (s *Server) runBasic(g *generation, src image.Image) error {
	style, _ := styles.Parse(g.style)
	return imaging.SavePNG(g.output, styles.Apply(src, style))
}

func (s *Server) providerName(mode string) string {
	if mode == ModeDiffusion {
		return s.config.Provider
	}
	return "filters"
}

// startGeneration announces g to history, metrics and websocket clients.
// The returned func records the outcome and returns the elapsed time.
func (s *Server) startGeneration(g *generation) func(mode string, err error) time.Duration {
	s.logger.Info("generation started",
		zap.String("id", g.id), zap.String("style", g.style), zap.String("prompt", g.prompt))

	inFlightDone := func() {}
	if s.prom != nil {
		inFlightDone = s.prom.GenerationStarted()
	}
	if s.history != nil {
		s.history.Started(history.Generation{
			ID:           g.id,
			Style:        g.style,
			CustomPrompt: g.custom,
			Prompt:       g.prompt,
			Status:       history.StatusGenerating,
			Provider:     s.config.Provider,
			InputPath:    g.filename,
			CreatedAt:    g.start,
		})
	}
	s.broadcaster.BroadcastGenerationStarted(GenerationStartedData{
		ID:       g.id,
		Style:    g.style,
		Prompt:   g.prompt,
		Provider: s.config.Provider,
	})

	return func(mode string, err error) time.Duration {
		inFlightDone()
		elapsed := time.Since(g.start)

		histStatus, recStatus, errMsg := history.StatusCompleted, metrics.StatusSuccess, ""
		if err != nil || mode == ModeOriginal {
			histStatus, recStatus = history.StatusFailed, metrics.StatusError
			if err != nil {
				errMsg = err.Error()
			}
		}

		if s.history != nil {
			s.history.Finished(g.id, histStatus, mode, "", elapsed, err)
		}
		s.recorder.RecordGeneration(metrics.GenerationRecord{
			ID:        g.id,
			Style:     g.style,
			Mode:      mode,
			Provider:  s.providerName(mode),
			Status:    recStatus,
			StartTime: g.start,
			Duration:  elapsed,
			ErrorMsg:  errMsg,
		})
		if err != nil {
			s.broadcaster.BroadcastMessage(NewErrorMessage(ErrCodeGenerationFailed,
				fmt.Sprintf("generation %s: %s", g.id, errMsg)))
		}
		s.broadcaster.BroadcastGenerationCompleted(GenerationCompletedData{
			ID:             g.id,
			Style:          g.style,
			Status:         histStatus,
			Mode:           mode,
			ProcessingTime: formatProcessingTime(elapsed, mode),
			DurationMS:     elapsed.Milliseconds(),
			Error:          errMsg,
		})
		s.logger.Info("generation finished",
			zap.String("id", g.id), zap.String("mode", mode),
			zap.String("status", histStatus), zap.Duration("elapsed", elapsed))
		return elapsed
	}
}
