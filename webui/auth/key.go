// Package auth guards the generation API with a shared API key whose bcrypt
// hash is configured through NFTGEN_API_KEY_HASH.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost takes roughly 250ms per hash on current hardware.
	DefaultCost = 12
	MinCost     = 10
	MaxCost     = bcrypt.MaxCost
)

var (
	ErrEmptyKey    = errors.New("auth: api key cannot be empty")
	ErrKeyMismatch = errors.New("auth: api key does not match")
	ErrInvalidHash = errors.New("auth: invalid bcrypt hash")
	ErrCostTooLow  = errors.New("auth: hash cost is below the minimum")
)

// HashKeyWithCost returns the bcrypt hash of key. The hash-key command
// passes DefaultCost unless --cost says otherwise.
func HashKeyWithCost(key string, cost int) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if cost < MinCost || cost > MaxCost {
		return "", bcrypt.InvalidCostError(cost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyKey compares key against hash in constant time. Every failure other
// than an empty argument is reported as ErrKeyMismatch.
func VerifyKey(key, hash string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if hash == "" {
		return ErrInvalidHash
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrKeyMismatch
	}
	return nil
}

// ValidateHash checks that hash is well formed and at least MinCost.
func ValidateHash(hash string) error {
	if hash == "" {
		return ErrInvalidHash
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return ErrInvalidHash
	}
	if cost < MinCost {
		return ErrCostTooLow
	}
	return nil
}
