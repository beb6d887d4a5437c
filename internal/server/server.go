package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/config"
	"github.com/nulzo/concierge-bot/internal/server/middleware"
	v1 "github.com/nulzo/concierge-bot/internal/server/v1"
	"github.com/nulzo/concierge-bot/internal/server/validator"
)

// Server is the ops/admin HTTP surface: health, chat entry for
// non-messaging clients, and the live settings editor.
type Server struct {
	router *gin.Engine
	config *config.Config
	logger *zap.Logger

	chat   v1.ChatService
	admin  v1.AdminService
	status v1.StatusReporter
}

func New(cfg *config.Config, logger *zap.Logger, chat v1.ChatService, admin v1.AdminService, status v1.StatusReporter) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router: engine,
		config: cfg,
		logger: logger,
		chat:   chat,
		admin:  admin,
		status: status,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
