package validation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func passing(name string) Check {
	return Check{Name: name, Run: func(context.Context) (string, error) { return "ok", nil }}
}

func failing(name string, optional bool) Check {
	return Check{Name: name, Optional: optional, Run: func(context.Context) (string, error) {
		return "", errors.New(name + " broke")
	}}
}

type stubChecker struct{ err error }

func (s stubChecker) CheckDependencies(context.Context) error { return s.err }

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		Passed:     "passed",
		Failed:     "failed",
		Warning:    "warning",
		Skipped:    "skipped",
		Status(99): "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestSuite_AllPass(t *testing.T) {
	var buf bytes.Buffer
	res := NewSuite("startup", WithOutput(&buf)).
		Add(passing("a"), passing("b")).
		Run(context.Background())

	if !res.OK() {
		t.Fatalf("expected success, got %s", res.Summary())
	}
	if res.Passed() != 2 || len(res.Steps) != 2 {
		t.Errorf("passed %d/%d, want 2/2", res.Passed(), len(res.Steps))
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v", res.Err())
	}
	out := buf.String()
	if !strings.Contains(out, "startup") || !strings.Contains(out, "Checks Passed") {
		t.Errorf("progress output missing header or summary:\n%s", out)
	}
}

func TestSuite_OptionalFailureIsWarning(t *testing.T) {
	res := NewSuite("startup", Quiet()).
		Add(passing("a"), failing("env", true)).
		Run(context.Background())

	if !res.OK() {
		t.Fatal("optional failure should not fail the suite")
	}
	if res.Warnings() != 1 {
		t.Errorf("Warnings() = %d, want 1", res.Warnings())
	}
	if res.Err() != nil {
		t.Errorf("warnings should not be reported by Err: %v", res.Err())
	}
}

func TestSuite_FailFast(t *testing.T) {
	ran := false
	late := Check{Name: "late", Run: func(context.Context) (string, error) {
		ran = true
		return "", nil
	}}

	res := NewSuite("startup", Quiet(), FailFast()).
		Add(failing("config", false), late).
		Run(context.Background())

	if res.OK() {
		t.Fatal("expected failure")
	}
	if ran {
		t.Error("check after failure should have been skipped")
	}
	if res.Steps[1].Status != Skipped {
		t.Errorf("second step status = %s, want skipped", res.Steps[1].Status)
	}
	if err := res.Err(); err == nil || !strings.Contains(err.Error(), "config: config broke") {
		t.Errorf("Err() = %v", err)
	}
}

func TestSuite_CollectsEveryFailure(t *testing.T) {
	res := NewSuite("startup", Quiet()).
		Add(failing("one", false), passing("two"), failing("three", false)).
		Run(context.Background())

	if got := len(multierr.Errors(res.Err())); got != 2 {
		t.Errorf("Err() holds %d errors, want 2", got)
	}
	for _, want := range []string{"1/3 passed", "2 failed", "checks failed"} {
		if !strings.Contains(res.Summary(), want) {
			t.Errorf("Summary %q should contain %q", res.Summary(), want)
		}
	}
}

func TestSuite_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewSuite("startup", Quiet()).Add(passing("a")).Run(ctx)
	if res.Steps[0].Status != Skipped {
		t.Errorf("status = %s, want skipped", res.Steps[0].Status)
	}
}

func TestEnvFileCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("A=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "nope"), dir} {
		res := NewSuite("env", Quiet()).Add(EnvFileCheck(path)).Run(context.Background())
		if !res.OK() || res.Warnings() != 1 {
			t.Errorf("%s: ok=%v warnings=%d, want a warning", path, res.OK(), res.Warnings())
		}
	}
	if msg, err := EnvFileCheck(file).Run(context.Background()); err != nil || msg != file {
		t.Errorf("Run() = %q, %v", msg, err)
	}
}

func TestCheckWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models", "nested")
	if err := CheckWritableDir(dir); err != nil {
		t.Fatalf("CheckWritableDir: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("test file left behind: %v", entries)
	}
	if err := CheckWritableDir(""); err == nil {
		t.Error("empty path should fail")
	}
}

func TestGetDiskSpace_MissingPathUsesAncestor(t *testing.T) {
	dir := t.TempDir()
	info, err := GetDiskSpace(filepath.Join(dir, "not", "yet", "created"))
	if err != nil {
		t.Fatalf("GetDiskSpace: %v", err)
	}
	if info.Path != dir {
		t.Errorf("Path = %q, want %q", info.Path, dir)
	}
	if info.Total <= 0 || info.Free < 0 || info.Free > info.Total {
		t.Errorf("implausible sizes: %+v", info)
	}
}

func TestCheckDiskSpace_Insufficient(t *testing.T) {
	err := CheckDiskSpace(t.TempDir(), 1<<62)
	var dse *DiskSpaceError
	if !errors.As(err, &dse) {
		t.Fatalf("error = %v, want *DiskSpaceError", err)
	}
	if !strings.Contains(dse.Error(), "insufficient disk space") {
		t.Errorf("message = %q", dse.Error())
	}
}

func TestDependencyCheck(t *testing.T) {
	ok := DependencyCheck("local", stubChecker{}, false)
	if msg, err := ok.Run(context.Background()); err != nil || msg != "local ready" {
		t.Errorf("Run() = %q, %v", msg, err)
	}

	missing := DependencyCheck("local", stubChecker{err: errors.New("Missing dependencies for local: model weights")}, true)
	res := NewSuite("deps", Quiet()).Add(missing).Run(context.Background())
	if !res.OK() || res.Warnings() != 1 {
		t.Errorf("optional dependency failure: ok=%v warnings=%d", res.OK(), res.Warnings())
	}
}
