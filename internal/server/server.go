package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spam-detector/internal/config"
	"spam-detector/internal/handler"
	"spam-detector/internal/middleware"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	log    *zap.Logger
}

// NewServer wires middleware and routes around the API handler.
func NewServer(h *handler.Handler, cfg config.ServerConfig, log *zap.Logger) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.AllowedOrigins),
	)
	h.RegisterRoutes(router)

	return &Server{
		router: router,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Port),
			Handler: router,
		},
		log: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called. It never returns http.ErrServerClosed.
func (s *Server) Run() error {
	s.log.Info("Server starting", zap.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
