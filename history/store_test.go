package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := MigrationVersion(s.Path())
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 clean", version, dirty)
	}

	// Reopening an up-to-date database is a no-op.
	if err := MigrateUp(s.Path()); err != nil {
		t.Errorf("MigrateUp() second run error = %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") should fail")
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := Generation{
		Style:        "van_gogh",
		CustomPrompt: "starry night over a harbor",
		Prompt:       "in the style of Van Gogh, post-impressionist, swirling brushstrokes, starry night over a harbor",
		Provider:     "local",
		InputPath:    "/tmp/in.png",
		Metadata:     map[string]any{"strength": 0.7, "steps": float64(20)},
	}
	id, err := s.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id == "" {
		t.Fatal("Insert() returned empty id")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusGenerating {
		t.Errorf("Status = %q, want %q", got.Status, StatusGenerating)
	}
	if got.Style != in.Style || got.CustomPrompt != in.CustomPrompt || got.Prompt != in.Prompt {
		t.Errorf("got %+v, want fields of %+v", got, in)
	}
	if got.Metadata["strength"] != 0.7 || got.Metadata["steps"] != float64(20) {
		t.Errorf("Metadata = %v", got.Metadata)
	}
	if time.Since(got.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	if err := s.Finish(ctx, id, StatusCompleted, ModeBasic, "/tmp/out.png", 1500*time.Millisecond, nil); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	got, _ = s.Get(ctx, id)
	if got.Status != StatusCompleted || got.Mode != ModeBasic || got.ProcessingMS != 1500 || got.OutputPath != "/tmp/out.png" {
		t.Errorf("after Finish got %+v", got)
	}
}

func TestFinishRecordsError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _ := s.Insert(ctx, Generation{Style: "anime"})
	if err := s.Finish(ctx, id, StatusFailed, "", "", time.Second, errors.New("decode failed")); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, id)
	if got.Status != StatusFailed || got.Error != "decode failed" {
		t.Errorf("got %+v", got)
	}
}

func TestGetAndFinishUnknownID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Finish(ctx, "nope", StatusCompleted, ModeBasic, "", 0, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, style := range []string{"anime", "pixel_art", "cyberpunk"} {
		if _, err := s.Insert(ctx, Generation{Style: style, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Style != "cyberpunk" || got[1].Style != "pixel_art" {
		t.Errorf("Recent(2) = %+v", got)
	}

	n, _ := s.Count(ctx)
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestCleanup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, Generation{Style: "old", CreatedAt: time.Now().AddDate(0, 0, -40)})
	s.Insert(ctx, Generation{Style: "new"})

	deleted, err := s.Cleanup(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := s.Cleanup(ctx, -1); err == nil {
		t.Error("negative retention should fail")
	}
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	s.Close()
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := s.Insert(context.Background(), Generation{Style: "anime"}); err == nil {
		t.Error("Insert on closed store should fail")
	}
}

func TestMigrateDown(t *testing.T) {
	s := openTestStore(t)
	path := s.Path()
	s.Close()

	if err := MigrateDown(path, -1); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	version, _, err := MigrationVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Errorf("version = %d, want 0", version)
	}
}

func TestAsyncWriter(t *testing.T) {
	s := openTestStore(t)
	w := NewAsyncWriter(s, nil)

	g := Generation{ID: "gen-1", Style: "watercolor"}
	w.Started(g)
	w.Finished(g.ID, StatusCompleted, ModeDiffusion, "", 2*time.Second, nil)
	w.Annotate(g.ID, map[string]any{"ipfsImage": "ipfs://bafy"})

	if !w.Close(5 * time.Second) {
		t.Fatal("Close() did not drain in time")
	}
	if !w.Close(time.Second) {
		t.Error("second Close() should report drained")
	}
	// Writes after close are dropped.
	w.Started(Generation{ID: "gen-2", Style: "anime"})

	got, err := s.Get(context.Background(), "gen-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted || got.Mode != ModeDiffusion || got.ProcessingMS != 2000 {
		t.Errorf("got %+v", got)
	}
	if got.Metadata["ipfsImage"] != "ipfs://bafy" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if _, err := s.Get(context.Background(), "gen-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("write after close was applied: %v", err)
	}
}

func TestMergeMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, Generation{Style: "anime", Metadata: map[string]any{"seed": float64(7)}})
	if err != nil {
		t.Fatal(err)
	}
	bare, err := s.Insert(ctx, Generation{Style: "sketch"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MergeMetadata(ctx, id, map[string]any{"ipfsImage": "ipfs://bafy1"}); err != nil {
		t.Fatalf("MergeMetadata() error = %v", err)
	}
	if err := s.MergeMetadata(ctx, id, map[string]any{"ipfsImage": "ipfs://bafy2"}); err != nil {
		t.Fatalf("MergeMetadata() second call error = %v", err)
	}
	if err := s.MergeMetadata(ctx, bare, map[string]any{"ipfsMetadata": "ipfs://bafy3"}); err != nil {
		t.Fatalf("MergeMetadata() on empty metadata error = %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata["seed"] != float64(7) || got.Metadata["ipfsImage"] != "ipfs://bafy2" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	got, err = s.Get(ctx, bare)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata["ipfsMetadata"] != "ipfs://bafy3" {
		t.Errorf("metadata = %v", got.Metadata)
	}

	if err := s.MergeMetadata(ctx, "missing", map[string]any{"a": "b"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("MergeMetadata(missing) error = %v, want ErrNotFound", err)
	}
}
