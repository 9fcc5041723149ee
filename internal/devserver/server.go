// Package devserver is a small local REST API that serves the auth and user
// endpoints the client calls, so the CLI can run end to end without a
// real backend.
package devserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ernestjumbe/zimzimba-mobile/config"
	"github.com/ernestjumbe/zimzimba-mobile/kv"
)

// NewRouter registers all routes and wraps them with the middleware chain.
func NewRouter(h *AuthHandler, v Verifier, cfg config.Server, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check (no auth required; JWT middleware skips /healthz)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/me", h.Me)
	mux.HandleFunc("PATCH /users/me", h.UpdateMe)

	// Middleware chain: Recovery → CORS → RequestLogging → JWTAuth → mux
	var handler http.Handler = mux
	handler = JWTAuth(v, cfg.DevBypassAuth)(handler)
	handler = RequestLogging(logger)(handler)
	handler = CORS(cfg.CORSAllowOrigin)(handler)
	handler = Recovery(logger)(handler)

	return handler
}

// New builds the full handler with accounts and revocations kept in backend.
func New(cfg config.Server, backend kv.Backend, logger *slog.Logger) http.Handler {
	store := NewKVStore(backend)
	tokens := NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, store.IsRevoked)
	return NewRouter(NewAuthHandler(store, tokens, logger), tokens, cfg, logger)
}

// NewHTTPServer wraps handler in an http.Server listening on port.
func NewHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
