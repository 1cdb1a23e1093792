// Package api exposes the ingest and chat pipeline over HTTP.
//
// Endpoints:
//
//	POST /api/v1/ingest   — split, embed, and store a document
//	POST /api/v1/chat     — chat completion with optional retrieval
//	GET  /api/v1/sources  — list ingested sources with chunk counts
//	GET  /health          — liveness probe
//	GET  /ready           — readiness probe (database ping)
//
// Every response carries the request correlation id, both as the
// X-Request-ID header and in the JSON body, so failures can be matched
// against provider-side logs.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragstack/ragd/internal/rag"
	"github.com/ragstack/ragd/internal/store"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Service     *rag.Service // required
	Store       *store.Store // required: backs /api/v1/sources
	Pool        *pgxpool.Pool // optional: nil disables pool ping in /ready
	CORSOrigins []string
	TrustProxy  bool // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int  // rate limiter burst per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes and middleware
// configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("rag service is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("chunk store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ih := &ingestHandler{service: cfg.Service, logger: logger}
	ch := &chatHandler{service: cfg.Service, logger: logger}
	sh := &sourcesHandler{store: cfg.Store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ingest", ih.ingest)
	mux.HandleFunc("POST /api/v1/chat", ch.chat)
	mux.HandleFunc("GET /api/v1/sources", sh.list)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must precede Logging so request_id appears in access
	// logs; CORS must precede RateLimit so preflight OPTIONS gets its
	// headers even when throttled.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
