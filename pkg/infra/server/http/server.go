// Package http provides the gin based HTTP server.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/kb-chatbot/pkg/errors"
	"github.com/kart-io/kb-chatbot/pkg/infra/middleware"
	options "github.com/kart-io/kb-chatbot/pkg/options/http"
	"github.com/kart-io/kb-chatbot/pkg/utils/response"
)

// Server is the HTTP server implementation.
type Server struct {
	opts   *options.Options
	engine *gin.Engine
	server *http.Server
	addr   net.Addr
	errCh  chan error
}

// NewServer creates a new HTTP server with the given options.
// The middleware chain is applied before any route is registered so that
// every route group inherits it.
func NewServer(opts *options.Options) (*Server, error) {
	if opts == nil {
		opts = options.NewOptions()
	}
	if err := opts.Complete(); err != nil {
		return nil, fmt.Errorf("complete http options: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		opts:   opts,
		engine: engine,
		errCh:  make(chan error, 1),
	}
	s.applyMiddleware()

	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrNotFound)
	})

	return s, nil
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	logger.Infow("HTTP server listening", "addr", s.Addr())
	go func() {
		err := s.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.errCh <- err
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Wait blocks until the server stops serving and returns the serve error.
func (s *Server) Wait() error {
	return <-s.errCh
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// applyMiddleware installs the chain in fixed order:
// recovery, request-id, logger, cors.
func (s *Server) applyMiddleware() {
	mw := s.opts.Middleware
	s.engine.Use(
		middleware.RecoveryWithOptions(*mw.Recovery),
		middleware.RequestIDWithOptions(*mw.RequestID, nil),
		middleware.LoggerWithOptions(*mw.Logger),
		middleware.CORSWithOptions(*mw.CORS),
	)
}
