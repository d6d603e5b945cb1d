// Package server exposes the diarization pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"speakerstream/internal/pipeline"
)

// Server is the HTTP front end backed by Gin. It owns the listener lifecycle;
// request handling is delegated to the diarization and health handlers.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	stream     *pipeline.DiarizationStream
	warm       func() bool
	uploadDir  string
	logger     *zap.Logger
}

// NewServer creates a Server listening on addr. warm reports whether the
// diarization model has already been loaded; it backs the health endpoint.
func NewServer(addr string, stream *pipeline.DiarizationStream, warm func() bool, uploadDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     engine,
			ReadTimeout: 10 * time.Minute,
			IdleTimeout: 120 * time.Second,
		},
		engine:    engine,
		stream:    stream,
		warm:      warm,
		uploadDir: uploadDir,
		logger:    logger,
	}

	engine.POST("/diarization", s.handleDiarization)
	engine.GET("/health", s.handleHealth)

	return s
}

// Engine returns the underlying Gin engine. Tests drive it directly
// through httptest without binding a port.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start binds the listen address and begins serving. It returns once the
// listener is bound; serving continues in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("HTTP server started", zap.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
