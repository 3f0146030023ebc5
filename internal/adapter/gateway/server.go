package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	RequestsPerMin int
	BurstSize      int
}

// NewServer assembles the chi router with the middleware chain and returns
// a configured http.Server. ctx bounds the rate limiter's cleanup goroutine.
func NewServer(ctx context.Context, cfg ServerConfig, handler *Handler, logger *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	if cfg.RequestsPerMin > 0 {
		r.Use(RateLimit(ctx, cfg.RequestsPerMin, cfg.BurstSize))
	}
	handler.Routes(r)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
