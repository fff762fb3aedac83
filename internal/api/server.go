// Package api provides the HTTP API server and handlers for the Hörspiel
// server. Typed JSON endpoints go through huma; raw byte endpoints (artwork)
// are plain chi handlers.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hoerspielapp/hoerspiel-server/internal/http/response"
	"github.com/hoerspielapp/hoerspiel-server/internal/media/artwork"
	"github.com/hoerspielapp/hoerspiel-server/internal/search"
	"github.com/hoerspielapp/hoerspiel-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	services *Services
	artwork  *artwork.Cache
	search   *search.Index
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, artworkCache *artwork.Cache, searchIndex *search.Index, logger *slog.Logger) *Server {
	s := &Server{
		store:    st,
		services: services,
		artwork:  artworkCache,
		search:   searchIndex,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	RegisterErrorHandler()
	config := huma.DefaultConfig("Hörspiel API", "1.0.0")
	config.DocsPath = "/docs"
	s.api = humachi.New(s.router, config)

	s.registerLibraryRoutes()
	s.registerPlaybackRoutes()
	s.registerSearchRoutes()
	s.setupRawRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRawRoutes registers handlers that serve raw bytes and stay outside
// the typed API layer.
func (s *Server) setupRawRoutes() {
	s.router.Get("/health", s.handleHealthCheck)
	s.router.Get("/api/v1/items/{id}/artwork", s.handleGetArtwork)
	s.router.Get("/api/v1/items/{id}/artwork/placeholder", s.handleGetArtworkPlaceholder)
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
