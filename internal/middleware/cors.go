package middleware

import (
	"net/http"

	"adventure-backend/internal/config"

	"github.com/rs/cors"
)

// NewCORS returns a CORS middleware for the configured origins. Without any
// origins it is a pass-through and browsers apply the same-origin policy.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
	return c.Handler
}
