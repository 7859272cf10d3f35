package auth

import (
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"sync"

	"nftgen/logging"

	"go.uber.org/zap"
)

// HeaderName carries the API key.
const HeaderName = "X-API-Key"

// maxCachedKeys bounds the digest cache so random keys cannot grow it.
const maxCachedKeys = 16

// APIKeyMiddleware rejects requests whose X-API-Key does not match the
// configured bcrypt hash. Keys that verified once are remembered by SHA-256
// digest so bcrypt only runs on the first request per key.
type APIKeyMiddleware struct {
	hash   string
	logger *logging.Logger

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewAPIKeyMiddleware validates hash up front.
func NewAPIKeyMiddleware(hash string, logger *logging.Logger) (*APIKeyMiddleware, error) {
	if err := ValidateHash(hash); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &APIKeyMiddleware{
		hash:     hash,
		logger:   logger.Named("auth"),
		verified: make(map[[sha256.Size]byte]struct{}),
	}, nil
}

// Check reports whether key is accepted.
func (m *APIKeyMiddleware) Check(key string) bool {
	if key == "" {
		return false
	}
	digest := sha256.Sum256([]byte(key))

	m.mu.RLock()
	_, ok := m.verified[digest]
	m.mu.RUnlock()
	if ok {
		return true
	}

	if VerifyKey(key, m.hash) != nil {
		return false
	}

	m.mu.Lock()
	if len(m.verified) < maxCachedKeys {
		m.verified[digest] = struct{}{}
	}
	m.mu.Unlock()
	return true
}

// Middleware rejects requests without a matching X-API-Key with 401.
func (m *APIKeyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderName)
		if key == "" {
			unauthorized(w, "missing API key")
			return
		}
		if !m.Check(key) {
			m.logger.Warn("rejected api key", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			unauthorized(w, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `APIKey header="`+HeaderName+`"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
