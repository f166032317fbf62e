package web

import (
	"github.com/kozaktomas/doppelganger/internal/web/handlers"
	"github.com/kozaktomas/doppelganger/internal/web/static"
	"go.uber.org/zap"
)

const imagesPrefix = "/monkeys/"

func (s *Server) setupRoutes() {
	engine := s.deps.Analyzer.Engine()

	infoHandler := handlers.NewInfoHandler(s.deps.Catalog, s.deps.Version)
	sessionsHandler := handlers.NewSessionsHandler(engine)
	analyzeHandler := handlers.NewAnalyzeHandler(s.deps.Analyzer, s.logger)
	monkeysHandler := handlers.NewMonkeysHandler(s.deps.Catalog, s.deps.Index)
	configHandler := handlers.NewConfigHandler(s.config)
	statsHandler := handlers.NewStatsHandler(s.deps.Catalog, s.deps.Index, engine)

	s.router.Get("/", infoHandler.Root)
	s.router.Get("/health", infoHandler.Health)

	// Sessions
	s.router.Post("/session", sessionsHandler.Create)
	s.router.Get("/session/{id}", sessionsHandler.Get)
	s.router.Post("/reset/{id}", sessionsHandler.Reset)

	// Matching
	s.router.Post("/analyze", analyzeHandler.Analyze)
	s.router.Post("/classify", handlers.Classify)

	// Catalog
	s.router.Get("/monkeys", monkeysHandler.List)
	s.router.Post("/monkeys/similar", monkeysHandler.Similar)

	// Diagnostics
	s.router.Get("/config", configHandler.Get)
	s.router.Get("/stats", statsHandler.Get)

	if static.Available(s.config.Web.ImagesDir) {
		s.router.Handle(imagesPrefix+"*", static.Images(imagesPrefix, s.config.Web.ImagesDir))
	} else if s.config.Web.ImagesDir != "" {
		s.logger.Warn("images directory not found, not serving images", zap.String("dir", s.config.Web.ImagesDir))
	}
}
