package middleware

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"adventure-backend/internal/monitoring"
)

// RequestLoggingMiddleware logs requests and records them in Prometheus
type RequestLoggingMiddleware struct {
	metrics *monitoring.Metrics
	verbose bool
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets the live reload websocket take over the connection
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// NewRequestLoggingMiddleware creates a new request logging middleware.
// metrics may be nil. When verbose is false static asset requests are not logged.
func NewRequestLoggingMiddleware(metrics *monitoring.Metrics, verbose bool) *RequestLoggingMiddleware {
	return &RequestLoggingMiddleware{
		metrics: metrics,
		verbose: verbose,
	}
}

// Handler returns the middleware handler
func (m *RequestLoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status and size
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		if m.metrics != nil {
			m.metrics.RecordRequest(r.Method, routeLabel(r.URL.Path), wrapped.statusCode, duration)
		}

		if m.verbose || !shouldSkipLogging(r.URL.Path) {
			log.Printf("%s %s %s %d %dB %s",
				remoteIP(r),
				r.Method,
				sanitizePath(r.URL.Path),
				wrapped.statusCode,
				wrapped.bytesWritten,
				duration.Round(time.Microsecond),
			)
		}
	})
}

// routeLabel collapses paths into a fixed set so metric cardinality stays bounded
func routeLabel(path string) string {
	switch {
	case path == "/":
		return "/"
	case strings.HasPrefix(path, "/static/"):
		return "/static"
	case path == "/debug/reload":
		return "/debug/reload"
	default:
		return "other"
	}
}

// shouldSkipLogging returns true for paths that shouldn't be logged
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/static/",
		"/favicon.ico",
		"/robots.txt",
	}

	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}

	return false
}

// sanitizePath truncates very long paths
func sanitizePath(path string) string {
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies/load balancers)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the list
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	return remoteIP(r)
}

// remoteIP is the address of the connected peer, ignoring forwarding headers
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
