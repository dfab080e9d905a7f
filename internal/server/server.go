package server

import (
	"log/slog"
	"net/http"

	"wine-dashboard/internal/assets"
	"wine-dashboard/internal/config"
	"wine-dashboard/internal/handlers"
	"wine-dashboard/internal/services"
)

type Server struct {
	catalog      *services.Catalog
	mux          *http.ServeMux
	logger       *slog.Logger
	features     config.FeatureConfig
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
}

func NewServer(catalog *services.Catalog, provider *assets.Provider, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		catalog:      catalog,
		mux:          http.NewServeMux(),
		logger:       logger,
		features:     cfg.Features,
		apiHandlers:  handlers.NewAPIHandlers(catalog, provider, cfg, logger),
		sseHandlers:  handlers.NewSSEHandlers(catalog, cfg, logger),
		pageHandlers: handlers.NewPageHandlers(catalog, cfg, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("GET /assets/{name}", s.apiHandlers.HandleAsset)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/wines", s.apiHandlers.HandleWines)
	s.mux.HandleFunc("GET /api/options", s.apiHandlers.HandleOptions)
	s.mux.HandleFunc("GET /api/ranking", s.apiHandlers.HandleRanking)
	s.mux.HandleFunc("GET /api/top", s.apiHandlers.HandleTop)
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
	if s.features.Explorer {
		s.mux.HandleFunc("GET /sse/explorer", s.sseHandlers.HandleExplorer)
	}
	if s.features.Carousel {
		s.mux.HandleFunc("GET /sse/slide", s.sseHandlers.HandleSlide)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
