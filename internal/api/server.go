package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dgallion1/lessonlens/internal/analysis"
	"github.com/dgallion1/lessonlens/internal/config"
	"github.com/dgallion1/lessonlens/internal/material"
	"github.com/dgallion1/lessonlens/internal/pipeline"
)

// PDFAnalyzer runs the analysis pipeline and owns the staged document.
type PDFAnalyzer interface {
	Process(ctx context.Context, doc *pipeline.Document) (*pipeline.Outcome, error)
}

// RunLister exposes recent analysis runs.
type RunLister interface {
	Recent(limit int) []pipeline.RunSnapshot
	Get(id string) *pipeline.Run
}

// MaterialReader extracts text from a teaching material upload.
type MaterialReader interface {
	Read(ctx context.Context, src io.Reader, filename string) (*material.Material, error)
}

// StatsSource reports AI call statistics.
type StatsSource interface {
	Stats() *analysis.LLMStats
	Provider() string
	Model() string
}

// Deps are the collaborators the handlers call. Any of them may be nil; the
// matching endpoints then answer 503.
type Deps struct {
	Analyzer  PDFAnalyzer
	Runs      RunLister
	Materials MaterialReader
	Stats     StatsSource
}

// Server is the HTTP API server for lessonlens.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Run-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.JWTSecret, s.log))

		r.Post("/api/analysis/pdf", s.handleAnalyzePDF)
		r.Get("/api/analysis/runs", s.handleListRuns)
		r.Get("/api/analysis/runs/{runID}", s.handleGetRun)
		r.Post("/api/materials/text", s.handleExtractMaterial)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
