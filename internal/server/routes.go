package server

import (
	"github.com/nulzo/concierge-bot/internal/server/middleware"
	v1 "github.com/nulzo/concierge-bot/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.ErrorHandler(s.logger))
	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing("concierge-bot"))
	}

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond,
		s.config.RateLimit.Burst,
		s.logger,
	)

	api := s.router.Group("/v1")
	api.Use(limiter.Middleware())
	api.Use(middleware.Auth(s.config.ServerAPIKeys()))
	{
		chatHandler := v1.NewChatHandler(s.chat)
		api.POST("/chat", chatHandler.Respond)
		api.POST("/chat/reset", chatHandler.Reset)
		api.PUT("/chat/model", chatHandler.SetModel)

		adminHandler := v1.NewAdminHandler(s.admin, s.status)
		api.GET("/status", adminHandler.Status)
		api.GET("/settings", adminHandler.Settings)
		api.PUT("/settings/:key", adminHandler.UpdateSetting)
		api.GET("/models", adminHandler.Models)
		api.GET("/sponsors", adminHandler.ListSponsors)
		api.POST("/sponsors", adminHandler.AddSponsor)
		api.DELETE("/sponsors/:channel", adminHandler.RemoveSponsor)
	}
}
