package webui

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"nftgen/logging"

	"go.uber.org/zap"
)

// HTTPObserver receives one call per finished request.
type HTTPObserver interface {
	RecordHTTPRequest(method, path string, status int, d time.Duration)
}

// LoggingMiddlewareConfig configures LoggingMiddleware.
type LoggingMiddlewareConfig struct {
	Logger *logging.Logger

	// Observer, if set, is fed every request including skipped paths.
	Observer HTTPObserver

	// SkipPaths are not logged.
	SkipPaths []string

	// Routes are the path labels reported to Observer. Any other path is
	// reported as "other" to keep label cardinality bounded.
	Routes []string
}

// LoggingMiddleware logs method, path, status and duration for each request.
type LoggingMiddleware struct {
	logger    *logging.Logger
	observer  HTTPObserver
	skipPaths map[string]bool
	routes    map[string]bool
}

// NewLoggingMiddleware builds the middleware. A nil Logger discards output
// and a nil Observer skips metrics.
func NewLoggingMiddleware(config LoggingMiddlewareConfig) *LoggingMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &LoggingMiddleware{
		logger:    logger.Named("http"),
		observer:  config.Observer,
		skipPaths: make(map[string]bool, len(config.SkipPaths)),
		routes:    make(map[string]bool, len(config.Routes)),
	}
	for _, p := range config.SkipPaths {
		m.skipPaths[p] = true
	}
	for _, p := range config.Routes {
		m.routes[p] = true
	}
	return m
}

// Handler logs each request after it is served and reports it to the
// observer, labelled by route.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		if m.observer != nil {
			m.observer.RecordHTTPRequest(r.Method, m.routeLabel(r.URL.Path), wrapped.statusCode, duration)
		}
		if m.skipPaths[r.URL.Path] {
			return
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", duration),
			zap.String("remote", clientIP(r)),
			zap.Int64("bytes", wrapped.bytesWritten),
		}
		switch {
		case wrapped.statusCode >= 500:
			m.logger.Error("request", fields...)
		case wrapped.statusCode >= 400:
			m.logger.Warn("request", fields...)
		default:
			m.logger.Info("request", fields...)
		}
	})
}

func (m *LoggingMiddleware) routeLabel(path string) string {
	if m.routes[path] {
		return path
	}
	return "other"
}

// responseWriterWrapper captures the status code and body size.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

func (w *responseWriterWrapper) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack passes through so /ws can upgrade behind the middleware.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("webui: %T does not support hijacking", w.ResponseWriter)
	}
	w.wroteHeader = true
	w.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// clientIP returns the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// proxyHeaders replaces RemoteAddr with the first X-Forwarded-For hop, or
// X-Real-IP. Only install it behind a proxy that sets these headers.
func proxyHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ""
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ip, _, _ = strings.Cut(xff, ",")
			ip = strings.TrimSpace(ip)
		} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
			ip = strings.TrimSpace(xri)
		}
		if ip != "" {
			r.RemoteAddr = net.JoinHostPort(ip, "0")
		}
		next.ServeHTTP(w, r)
	})
}
