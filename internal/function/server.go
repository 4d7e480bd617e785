package function

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
)

// Config holds custom handler settings.
type Config struct {
	Port              int           `mapstructure:"port"`
	InvocationTimeout time.Duration `mapstructure:"invocation_timeout"`
	BlobBinding       string        `mapstructure:"blob_binding"`
}

// Server is the HTTP server the Functions host forwards invocations to.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
}

// NewServer builds a gin engine with request logging and the handler's routes.
func NewServer(cfg Config, logger zerolog.Logger, handler *Handler) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), pkglog.GinMiddleware(logger))
	handler.RegisterRoutes(r)

	return &Server{
		engine: r,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("custom handler server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight invocations.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
