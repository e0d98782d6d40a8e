// Package server exposes the HTTP surface: clients, sessions, interactions,
// knowledge, dojo and health endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/dojo"
	"github.com/salesmind/salesmind/pkg/knowledge"
	"github.com/salesmind/salesmind/pkg/pipeline"
	"github.com/salesmind/salesmind/pkg/ratelimit"
	"github.com/salesmind/salesmind/pkg/store"
)

// Server wires the pipeline, store and knowledge services behind chi.
type Server struct {
	cfg          *config.ServerConfig
	store        store.Store
	orchestrator *pipeline.Orchestrator
	retriever    *knowledge.Retriever
	trainer      *dojo.Trainer
	limiter      *ratelimit.Limiter

	httpServer *http.Server
}

// Options carries the server's collaborators. Retriever, trainer and limiter
// are optional; their endpoints answer 503 or pass through when absent.
type Options struct {
	Config       *config.ServerConfig
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	Retriever    *knowledge.Retriever
	Trainer      *dojo.Trainer
	Limiter      *ratelimit.Limiter
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server configuration is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	return &Server{
		cfg:          opts.Config,
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		retriever:    opts.Retriever,
		trainer:      opts.Trainer,
		limiter:      opts.Limiter,
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.cfg.CORSOrigins))
	r.Use(metricsMiddleware)
	r.Use(ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter:       s.limiter,
		ExcludedPaths: []string{"/health", "/health/db", "/metrics"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/health/db", s.handleHealthDB)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/clients", func(r chi.Router) {
		r.Post("/", s.handleCreateClient)
		r.Get("/", s.handleListClients)
		r.Get("/{clientID}", s.handleGetClient)
		r.Post("/{clientID}/sessions", s.handleCreateSession)
		r.Get("/{clientID}/sessions", s.handleListClientSessions)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/{sessionID}", s.handleGetSession)
		r.Post("/{sessionID}/end", s.handleEndSession)
		r.Delete("/{sessionID}", s.handleDeleteSession)
		r.Post("/{sessionID}/interactions", s.handleCreateInteraction)
		r.Get("/{sessionID}/interactions", s.handleListInteractions)
		r.Post("/{sessionID}/interactions/stream", s.handleStreamInteraction)
	})

	r.Post("/interactions/{interactionID}/feedback", s.handleFeedback)

	r.Route("/knowledge", func(r chi.Router) {
		r.Post("/", s.handleCreateNugget)
		r.Post("/bulk", s.handleBulkNuggets)
		r.Get("/", s.handleListNuggets)
		r.Post("/search", s.handleSearchNuggets)
		r.Delete("/{nuggetID}", s.handleDeleteNugget)
		r.Get("/health/qdrant", s.handleKnowledgeHealth)
	})

	r.Route("/dojo", func(r chi.Router) {
		r.Post("/chat", s.handleDojoChat)
		r.Post("/confirm", s.handleDojoConfirm)
	})

	return r
}

// Start runs the HTTP server until ctx is cancelled, then drains.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// ---------------------------------------------------------------------------
// Health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"detail": "database unreachable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Response helpers

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError emits the uniform {"detail": ...} error body. Internal error
// text never leaks; callers pass a caller-safe detail.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// storeError maps repository errors onto status codes.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrQuestionNotFound):
		respondError(w, http.StatusNotFound, "clarifying question not found")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "resource not found")
	default:
		slog.Error("storage failure", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

type paginated[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}
