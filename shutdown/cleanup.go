package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"nftgen/logging"

	"go.uber.org/zap"
)

// RemoveGlob returns a cleanup that deletes the files in dir matching
// pattern, such as atomic-write leftovers (".*.tmp"). Failures are logged,
// not returned.
func RemoveGlob(logger *logging.Logger, dir, pattern string) Func {
	return func(ctx context.Context) error {
		removeMatches(ctx, logger, filepath.Join(dir, pattern))
		return nil
	}
}

// RemoveDir returns a cleanup that deletes dir and everything in it, used
// for the per-process staging directory.
func RemoveDir(logger *logging.Logger, dir string) Func {
	return func(ctx context.Context) error {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			logger.Warn("stat staging directory", zap.String("dir", dir), zap.Error(err))
			return nil
		}
		if !info.IsDir() {
			logger.Warn("staging path is not a directory", zap.String("path", dir))
			return nil
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Error("remove staging directory", zap.String("dir", dir), zap.Error(err))
			return nil
		}
		logger.Debug("removed staging directory", zap.String("dir", dir))
		return nil
	}
}

func removeMatches(ctx context.Context, logger *logging.Logger, pattern string) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger.Error("bad cleanup pattern", zap.String("pattern", pattern), zap.Error(err))
		return
	}

	removed, failed := 0, 0
	for _, path := range matches {
		if ctx.Err() != nil {
			logger.Warn("cleanup interrupted", zap.Int("removed", removed), zap.Int("remaining", len(matches)-removed-failed))
			return
		}
		if err := os.RemoveAll(path); err != nil {
			failed++
			logger.Warn("remove temp file", zap.String("file", filepath.Base(path)), zap.Error(err))
			continue
		}
		removed++
	}
	if removed+failed > 0 {
		logger.Info("temp file cleanup", zap.Int("removed", removed), zap.Int("failed", failed))
	}
}
