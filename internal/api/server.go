package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/dgallion1/storysignals/internal/config"
	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/pipeline"
	"github.com/dgallion1/storysignals/internal/telemetry"
)

// Server is the HTTP API server for storysignals.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	extractor    *extract.Extractor
	recorder     *telemetry.Recorder
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, ex *extract.Extractor, rec *telemetry.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		extractor:    ex,
		recorder:     rec,
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

	// Public endpoints. Neither carries narrative content.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.recorder.MetricsHandler())

	// Authenticated, rate-limited endpoints.
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst), s.log))
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/extract/file", s.handleExtractFile)
		r.Post("/api/extract/batch", s.handleBatch)
		r.Get("/api/extract/batch/{batchID}", s.handleBatchStatus)
		r.Get("/api/extract/{jobID}/status", s.handleJobStatus)
		r.Post("/api/suggest", s.handleSuggest)
		r.Get("/api/telemetry/dashboard", s.handleDashboard)
	})

	s.router = r
}
