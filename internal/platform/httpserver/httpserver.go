package httpserver

import (
	"net/http"
	"time"

	"registrar/internal/platform/config"
)

const headerTimeout = 5 * time.Second

// New builds the HTTP server. Read and write timeouts leave headroom over the
// per-request timeout so the middleware deadline fires first and the client
// sees a proper timeout response.
func New(cfg config.Server, handler http.Handler) *http.Server {
	slack := 5 * time.Second
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: headerTimeout,
		ReadTimeout:       cfg.RequestTimeout + slack,
		WriteTimeout:      cfg.RequestTimeout + slack,
		IdleTimeout:       2 * time.Minute,
	}
}
