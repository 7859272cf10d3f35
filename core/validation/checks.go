package validation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"nftgen/core"
)

// DependencyChecker is satisfied by imagegen.Pipeline.
type DependencyChecker interface {
	CheckDependencies(ctx context.Context) error
}

// EnvFileCheck reports whether a .env file is present. Configuration may
// come from the process environment alone, so this check is optional.
func EnvFileCheck(path string) Check {
	return Check{
		Name:     "Environment File",
		Optional: true,
		Run: func(context.Context) (string, error) {
			info, err := os.Stat(path)
			if err != nil {
				return "using process environment", err
			}
			if info.IsDir() {
				return "using process environment", fmt.Errorf("%s is a directory", path)
			}
			return path, nil
		},
	}
}

// ConfigCheck validates cfg.
func ConfigCheck(cfg *core.Config) Check {
	return Check{
		Name: "Configuration",
		Run: func(context.Context) (string, error) {
			if err := cfg.Validate(); err != nil {
				return "", err
			}
			return fmt.Sprintf("provider %s, listening on %s", cfg.Provider, cfg.Addr()), nil
		},
	}
}

// WritableDirCheck creates dir if needed and checks it by writing a temp file.
func WritableDirCheck(name, dir string) Check {
	return Check{
		Name: name,
		Run: func(context.Context) (string, error) {
			if err := CheckWritableDir(dir); err != nil {
				return "", err
			}
			return dir, nil
		},
	}
}

// DiskSpaceCheck warns when the filesystem holding path has less than
// requiredBytes free.
func DiskSpaceCheck(path string, requiredBytes int64) Check {
	return Check{
		Name:     "Disk Space",
		Optional: true,
		Run: func(context.Context) (string, error) {
			info, err := GetDiskSpace(path)
			if err != nil {
				return "", err
			}
			msg := fmt.Sprintf("%s free (%.0f%% used)", core.FormatBytes(info.Free), info.UsedPercent)
			if info.Free < requiredBytes {
				return msg, &DiskSpaceError{Path: info.Path, Required: requiredBytes, Available: info.Free}
			}
			return msg, nil
		},
	}
}

// DependencyCheck runs the generation backend's prerequisite check. The
// service falls back to filters without a backend, so callers there mark
// it optional.
func DependencyCheck(provider string, checker DependencyChecker, optional bool) Check {
	return Check{
		Name:     "Generation Backend",
		Optional: optional,
		Run: func(ctx context.Context) (string, error) {
			if err := checker.CheckDependencies(ctx); err != nil {
				return provider, err
			}
			return provider + " ready", nil
		},
	}
}

// CheckWritableDir returns an error unless dir exists (or can be created)
// and accepts new files.
func CheckWritableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
