package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/dgallion1/docsite/internal/search"
	"github.com/dgallion1/docsite/internal/site"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP preview and API server for docsite.
type Server struct {
	router       chi.Router
	site         *site.Site
	orchestrator *pipeline.Orchestrator
	metrics      http.Handler
	log          *slog.Logger
	cfg          config.Config
	redirects    map[string]string
	searchCfg    search.Config
}

// NewServer creates and configures the HTTP server. orch and metricsHandler
// may be nil, which disables builds and /metrics respectively.
func NewServer(st *site.Site, orch *pipeline.Orchestrator, metricsHandler http.Handler, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		site:         st,
		orchestrator: orch,
		metrics:      metricsHandler,
		log:          log,
		cfg:          cfg,
		redirects:    make(map[string]string, len(cfg.Redirects)),
		searchCfg:    search.DefaultConfig(),
	}
	for _, rd := range cfg.Redirects {
		s.redirects[trimSlash(rd.From)] = rd.To
	}
	if cfg.SearchSectionWords > 0 {
		s.searchCfg.MaxWords = cfg.SearchSectionWords
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
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/api/sets", s.handleListSets)
	r.Get("/api/sets/{set}/paths", s.handlePaths)
	r.Get("/api/sets/{set}/docs", s.handleDocument)
	r.Get("/api/sets/{set}/docs/*", s.handleDocument)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocsiteAPIKey, s.log))

		r.Post("/api/builds", s.handleBuild)
		r.Get("/api/builds/{jobID}/status", s.handleBuildStatus)
	})

	// Everything else is a page inside some mounted set.
	r.Get("/*", s.handlePage)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bad := s.site.Unhealthy()
	if len(bad) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"status": "degraded",
		"sets":   bad,
	})
}
