// Package api exposes the surveillance store over HTTP with gin.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
	"github.com/water-ml-server/internal/middleware"
	"github.com/water-ml-server/internal/service"
)

const version = "1.0.0"

// Config holds the HTTP server settings.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
	SessionTTL      time.Duration
	Debug           bool
}

// Dependencies carries the stores and services the handlers operate on. The
// Health hook reports backing store liveness for the health endpoint.
type Dependencies struct {
	Stats    *service.StatsService
	Forecast *service.ForecastService
	Records  domain.TestRecordStore
	Users    domain.UserStore
	Sessions domain.SessionStore
	Importer *service.Importer
	Health   func(ctx context.Context) error
}

// Server is the HTTP boundary of the surveillance service.
type Server struct {
	cfg    Config
	deps   Dependencies
	log    *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a configured HTTP server with routes registered.
func NewServer(cfg Config, deps Dependencies, logger *logrus.Logger) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		log:    logger,
		router: router,
	}
	s.setupRoutes()
	return s
}

// Router exposes the gin engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	if s.cfg.RateLimit > 0 {
		api.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateBurst))
	}

	api.GET("/stats", s.handleStats)
	api.GET("/stats/secure",
		middleware.RequireSession(s.deps.Sessions, s.log), s.handleStats)

	api.GET("/forecast", s.handleGetForecast)
	api.POST("/forecast", s.handleSaveForecast)
	api.DELETE("/forecast", s.handleTrimForecast)

	api.GET("/tests", s.handleListTests)
	api.POST("/tests", s.handleCreateTest)
	api.GET("/tests/:id", s.handleGetTest)
	api.PUT("/tests/:id", s.handleUpdateTest)
	api.DELETE("/tests/:id", s.handleDeleteTest)
	api.POST("/upload-csv", s.handleUploadCSV)

	api.GET("/users", s.handleListUsers)
	api.POST("/users", s.handleCreateUser)
	api.GET("/users/:id", s.handleGetUser)
	api.PUT("/users/:id", s.handleUpdateUser)
	api.DELETE("/users/:id", s.handleDeleteUser)

	auth := api.Group("/auth")
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout",
		middleware.RequireSession(s.deps.Sessions, s.log), s.handleLogout)
	auth.GET("/session",
		middleware.RequireSession(s.deps.Sessions, s.log), s.handleSession)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
