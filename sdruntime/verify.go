package sdruntime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nftgen/core"
)

var (
	checksumMu sync.RWMutex

	// modelChecksums maps model filenames to their published SHA-256.
	modelChecksums = map[string]string{
		core.DefaultSDModel.Filename: core.DefaultSDModel.ExpectedSHA256,
		"sd-v1-5.safetensors":        core.DefaultSDModel.ExpectedSHA256,
	}
)

// VerifyModelChecksum checks modelPath against the registered checksum for
// its filename. Unregistered models pass.
func VerifyModelChecksum(modelPath string) error {
	if _, err := os.Stat(modelPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return fmt.Errorf("failed to access model file: %w", err)
	}

	expected, ok := GetExpectedChecksum(filepath.Base(modelPath))
	if !ok {
		return nil
	}

	err := core.VerifyChecksum(modelPath, expected)
	if errors.Is(err, core.ErrChecksumMismatch) {
		return fmt.Errorf("%w: %v", ErrModelCorrupted, err)
	}
	return err
}

// GetExpectedChecksum returns the registered checksum for a model filename.
func GetExpectedChecksum(modelName string) (string, bool) {
	checksumMu.RLock()
	defer checksumMu.RUnlock()
	sum, ok := modelChecksums[modelName]
	return sum, ok
}

// RegisterModelChecksum adds or replaces the checksum for a model filename.
func RegisterModelChecksum(modelName, checksum string) {
	checksumMu.Lock()
	defer checksumMu.Unlock()
	modelChecksums[modelName] = checksum
}

