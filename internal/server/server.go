package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"autoparts/catalog/internal/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func NewServer(cfg config.ServerConfig, service CatalogService) *Server {
	engine := NewRouter(cfg, service)

	timeout := time.Duration(cfg.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

func NewRouter(cfg config.ServerConfig, service CatalogService) *gin.Engine {
	h := &handlers{service: service}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.AllowedOrigins))
	}

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	{
		api.GET("/vehicles/:vehicleId/categories", h.categories)
		api.GET("/articles/:articleId/equivalents", h.equivalents)
		api.GET("/articles/:articleId/equivalents/stream", h.streamEquivalents)
		api.POST("/equivalents/precompute", h.precompute)
	}

	return router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("🌐 HTTP API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	log.Info("🛑 Shutting down HTTP API...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
