package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrChecksumMismatch is returned when a file does not match its expected SHA-256.
var ErrChecksumMismatch = errors.New("checksum mismatch")

func validSHA256(s string) error {
	if len(s) != sha256.Size*2 {
		return fmt.Errorf("sha256 must be %d hex characters, got %d", sha256.Size*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("sha256 is not hex: %w", err)
	}
	return nil
}

// hashFile feeds the contents of path into h.
func hashFile(h hash.Hash, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

func compareDigest(h hash.Hash, path, want string) error {
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%w: %s is %s, want %s", ErrChecksumMismatch, filepath.Base(path), got, want)
	}
	return nil
}

// VerifyChecksum hashes the file at path and compares it to want, ignoring
// case. A mismatch wraps ErrChecksumMismatch.
func VerifyChecksum(path, want string) error {
	if err := validSHA256(want); err != nil {
		return err
	}
	h := sha256.New()
	if err := hashFile(h, path); err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	return compareDigest(h, path, want)
}
