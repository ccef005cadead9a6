package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/config"
	"github.com/smccarney/phosphor-power/internal/manager"
)

// Server exposes the pull-style status surface: fault and sensor snapshots
// per chassis/device/rail, Prometheus metrics, and an on-demand configure
// trigger.
type Server struct {
	router  *gin.Engine
	manager *manager.Manager
	logger  *zap.Logger
	server  *http.Server
}

func NewServer(cfg *config.Config, mgr *manager.Manager, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		manager: mgr,
		logger:  logger,
	}

	s.router.Use(loggerMiddleware(logger))
	s.router.Use(gin.Recovery())
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting status API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("Status server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down status API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.getStatus)
		v1.POST("/configure", s.triggerConfigure)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Snapshot())
}

func (s *Server) triggerConfigure(c *gin.Context) {
	s.manager.Configure(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "configured"})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
