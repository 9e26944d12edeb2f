// Package httpapi serves the account protocol over HTTP+JSON with gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/gin-gonic/gin"
)

// BasePath prefixes the account endpoints.
const BasePath = "/api/v1/identity/account"

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address string
	logger  logging.Logger
	engine  *gin.Engine
}

// NewHTTPServer builds the router:
//
//	POST {BasePath}/login
//	POST {BasePath}/register
//	POST {BasePath}/refresh
//	GET  {BasePath}/me       (bearer access token)
//	GET  /health
//	GET  /ready
func NewHTTPServer(a string, l logging.Logger, svc SessionAPI, tokens TokenValidator, probe Probe) *HTTPServer {
	l = l.With("module", "http_server")

	engine := gin.New()
	engine.Use(RequestID(), Logger(l), Recovery(l))

	health := NewHealthHandler(probe)
	engine.GET("/health", health.Health)
	engine.GET("/ready", health.Ready)

	account := NewAccountHandler(svc, l)
	g := engine.Group(BasePath)
	g.POST("/login", account.Login)
	g.POST("/register", account.Register)
	g.POST("/refresh", account.Refresh)
	g.GET("/me", Bearer(tokens, time.Now), account.Me)

	return &HTTPServer{address: a, logger: l, engine: engine}
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve runs on lis until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
