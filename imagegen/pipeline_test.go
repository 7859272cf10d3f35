package imagegen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"nftgen/imaging"
	"nftgen/sdruntime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	missing []string
	loadErr error
	genErr  error

	loads   atomic.Int32
	lastReq Request
	closed  bool
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Missing(context.Context) []string { return f.missing }

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func (f *fakeProvider) Load(context.Context) error {
	f.loads.Add(1)
	return f.loadErr
}

func (f *fakeProvider) Img2Img(_ context.Context, r Request) (*image.RGBA, error) {
	f.lastReq = r
	if f.genErr != nil {
		return nil, f.genErr
	}
	out := image.NewRGBA(r.InitImage.Rect)
	for i := range out.Pix {
		out.Pix[i] = 0x80
	}
	return out, nil
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func TestCheckDependenciesNamesMissing(t *testing.T) {
	fp := &fakeProvider{missing: []string{"runtime", "model weights"}}
	p := NewPipeline(fp, nil)

	err := p.CheckDependencies(context.Background())
	require.Error(t, err)

	var mde *MissingDependenciesError
	require.True(t, errors.As(err, &mde))
	assert.Equal(t, []string{"runtime", "model weights"}, mde.Missing)
	assert.Contains(t, err.Error(), "runtime")
	assert.Contains(t, err.Error(), "model weights")
	assert.True(t, IsMissingDependencies(err))
}

func TestGenerateFailsBeforeLoadWhenDependenciesMissing(t *testing.T) {
	fp := &fakeProvider{missing: []string{"runtime"}}
	p := NewPipeline(fp, nil)

	_, err := p.Generate(context.Background(), testImage(64, 64), DefaultOptions("a cat"))
	assert.True(t, IsMissingDependencies(err))
	assert.Equal(t, int32(0), fp.loads.Load())
}

func TestGenerateResizesAndAppliesDefaults(t *testing.T) {
	fp := &fakeProvider{}
	p := NewPipeline(fp, nil)

	out, err := p.Generate(context.Background(), testImage(300, 200), DefaultOptions("anime style"))
	require.NoError(t, err)

	assert.Equal(t, 512, out.Rect.Dx())
	assert.Equal(t, 512, out.Rect.Dy())
	assert.Equal(t, 512, fp.lastReq.InitImage.Rect.Dx())
	assert.Equal(t, 512, fp.lastReq.InitImage.Rect.Dy())
	assert.Equal(t, "blurry, low quality, distorted, deformed, ugly, bad anatomy", fp.lastReq.NegativePrompt)
	assert.Equal(t, 0.7, fp.lastReq.Strength)
	assert.Equal(t, 7.5, fp.lastReq.GuidanceScale)
	assert.Equal(t, 20, fp.lastReq.Steps)
}

func TestGenerateLoadsOnce(t *testing.T) {
	fp := &fakeProvider{}
	p := NewPipeline(fp, nil)

	for i := 0; i < 3; i++ {
		_, err := p.Generate(context.Background(), testImage(32, 32), DefaultOptions("a cat"))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fp.loads.Load())
	assert.True(t, p.Loaded())
}

func TestGenerateRetriesFailedLoad(t *testing.T) {
	fp := &fakeProvider{loadErr: errors.New("out of memory")}
	p := NewPipeline(fp, nil)

	_, err := p.Generate(context.Background(), testImage(32, 32), DefaultOptions("a cat"))
	require.Error(t, err)
	assert.False(t, p.Loaded())

	fp.loadErr = nil
	_, err = p.Generate(context.Background(), testImage(32, 32), DefaultOptions("a cat"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), fp.loads.Load())
}

func TestGeneratePassesOutOfRangeKnobs(t *testing.T) {
	fp := &fakeProvider{}
	p := NewPipeline(fp, nil)

	opts := Options{Prompt: "a cat", Strength: 1.5, GuidanceScale: -2, Steps: 5, Seed: 9}
	_, err := p.Generate(context.Background(), testImage(32, 32), opts)
	require.NoError(t, err)
	assert.Equal(t, 1.5, fp.lastReq.Strength)
	assert.Equal(t, -2.0, fp.lastReq.GuidanceScale)
	assert.Equal(t, int64(9), fp.lastReq.Seed)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	p := NewPipeline(&fakeProvider{}, nil)

	_, err := p.Generate(context.Background(), testImage(32, 32), DefaultOptions("   "))
	assert.ErrorIs(t, err, sdruntime.ErrInvalidPrompt)

	opts := DefaultOptions("a cat")
	opts.Steps = 0
	_, err = p.Generate(context.Background(), testImage(32, 32), opts)
	assert.ErrorIs(t, err, sdruntime.ErrInvalidParams)
}

func TestGeneratePropagatesProviderError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(&fakeProvider{genErr: boom}, nil)

	_, err := p.Generate(context.Background(), testImage(32, 32), DefaultOptions("a cat"))
	assert.ErrorIs(t, err, boom)
}

func TestTransformWritesPNG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "nested", "out.png")
	require.NoError(t, imaging.SavePNG(in, testImage(40, 30)))

	p := NewPipeline(&fakeProvider{}, nil)
	require.NoError(t, p.Transform(context.Background(), in, out, DefaultOptions("a cat")))

	img, err := imaging.DecodeFile(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 512, 512), img.Bounds())
}

func TestTransformMissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.png")

	p := NewPipeline(&fakeProvider{}, nil)
	err := p.Transform(context.Background(), filepath.Join(dir, "missing.png"), out, DefaultOptions("a cat"))
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_FixedResolution(t *testing.T) {
	t.Setenv("SD_IMAGE_SIZE", "256")
	fp := &fakeProvider{}
	p := NewPipeline(fp, nil)

	_, err := p.Generate(context.Background(), testImage(900, 300), DefaultOptions("a cat"))
	require.NoError(t, err)
	assert.Equal(t, 512, fp.lastReq.InitImage.Rect.Dx())
	assert.Equal(t, 512, fp.lastReq.InitImage.Rect.Dy())
	assert.Equal(t, sdruntime.NegativePrompt, fp.lastReq.NegativePrompt)
}

func TestClose(t *testing.T) {
	fp := &fakeProvider{}
	p := NewPipeline(fp, nil)
	require.NoError(t, p.Load(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
	assert.False(t, p.Loaded())
}
