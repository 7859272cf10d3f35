package core

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic_CreatesParentAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.png")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("png-bytes"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteFileAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	boom := errors.New("encode failed")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteFileAtomic() error = %v, want %v", err, boom)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("directory not empty after failure: %v", entries)
	}
}

func TestRequireFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "in.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RequireFile(file); err != nil {
		t.Errorf("RequireFile(existing) error = %v", err)
	}
	if err := RequireFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("RequireFile(missing) error = nil")
	}
	if err := RequireFile(dir); err == nil {
		t.Error("RequireFile(dir) error = nil")
	}
}
