package http

import (
	"net/http"

	"adventure-backend/internal/config"
	"adventure-backend/internal/middleware"
	"adventure-backend/internal/monitoring"
)

// NewHandler wraps the router in the middleware chain, outermost first:
// request logging, recover, security headers, CORS, gzip, rate limiting.
// Recover sits inside logging so a recovered panic is counted as a 500.
// metrics and limiter may be nil.
func NewHandler(router http.Handler, cfg *config.Config, metrics *monitoring.Metrics, limiter *middleware.RateLimiter) http.Handler {
	handler := router
	if limiter != nil {
		handler = limiter.Middleware(handler)
	}
	handler = middleware.GzipCompression(handler)
	handler = middleware.NewCORS(cfg)(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Recover(cfg.Debug)(handler)
	handler = middleware.NewRequestLoggingMiddleware(metrics, cfg.Debug).Handler(handler)
	return handler
}

// NewServer returns an http.Server for addr with the configured timeouts
func NewServer(addr string, handler http.Handler, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
