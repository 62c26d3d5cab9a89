package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/sheetgen/internal/config"
	"github.com/dgallion1/sheetgen/internal/ocr"
	"github.com/dgallion1/sheetgen/internal/pipeline"
	"github.com/dgallion1/sheetgen/internal/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for sheetgen.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *ocr.Stats
	state        *state.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, stats *ocr.Stats, store *state.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		state:        store,
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

	// API endpoints, authenticated when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/extract/file", s.handleExtractFile)

		r.Post("/api/ocr", s.handleOCRSubmit)
		r.Get("/api/ocr/{jobID}/status", s.handleOCRStatus)
		r.Get("/api/ocr/{jobID}/document", s.handleOCRDocument)
		r.Get("/api/ocr/{jobID}/sheet", s.handleOCRSheet)
		r.Get("/api/ocr/{jobID}/sheet.pdf", s.handleOCRSheetPDF)

		r.Post("/api/render", s.handleRender)

		r.Get("/api/state", s.handleLoadState)
		r.Post("/api/state", s.handleSaveState)

		r.Get("/api/stats/ocr", s.handleOCRStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
