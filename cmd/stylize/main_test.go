package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"nftgen/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 15), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "in.png")
	require.NoError(t, imaging.SavePNG(path, img))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_FILE", "")
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStylize_WritesPNG(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	output := filepath.Join(dir, "nested", "out.png")

	for _, style := range []string{"oil_painting", "pixel_art", "cyberpunk", "no_such_style"} {
		t.Run(style, func(t *testing.T) {
			stdout, err := execute(t, "--input", input, "--output", output, "--style", style)
			require.NoError(t, err)
			assert.Contains(t, stdout, "Processed image saved to: "+output)

			got, err := imaging.DecodeFile(output)
			require.NoError(t, err)
			assert.Equal(t, image.Pt(24, 16), got.Bounds().Size())
		})
	}
}

func TestStylize_ShortFlags(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	output := filepath.Join(dir, "out.png")

	_, err := execute(t, "-i", input, "-o", output, "-s", "anime")
	require.NoError(t, err)
	assert.FileExists(t, output)
}

func TestStylize_MissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.png")

	_, err := execute(t, "--input", filepath.Join(dir, "missing.png"), "--output", output, "--style", "anime")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
	assert.NoFileExists(t, output)
}

func TestStylize_CorruptInputLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(input, []byte("not an image"), 0o644))
	output := filepath.Join(dir, "out.png")

	_, err := execute(t, "--input", input, "--output", output, "--style", "watercolor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing image")
	assert.NoFileExists(t, output)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestStylize_RequiredFlags(t *testing.T) {
	_, err := execute(t, "--input", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
