package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/quizzer/internal/config"
	"github.com/dgallion1/quizzer/internal/llm"
	"github.com/dgallion1/quizzer/internal/pipeline"
)

// Server is the HTTP API for submitting documents and fetching quizzes.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	provider     llm.Provider
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, provider llm.Provider, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		provider:     provider,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.QuizzerAPIKey, s.log))

		r.Post("/api/quiz", s.handleSubmit)
		r.Get("/api/quiz/{runID}/status", s.handleStatus)
		r.Get("/api/quiz/{runID}/result", s.handleResult)
		r.Post("/api/quiz/{runID}/retry", s.handleRetry)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
