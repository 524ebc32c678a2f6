package cmd

import (
	"context"
	"fmt"
	httpNet "net/http"
	"time"

	"stock-forecast/internal/delivery/http"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	ctx     context.Context
	appDep  *AppDependency
	handler *http.HttpAPIHandler
}

func NewHTTPServer(ctx context.Context, appDep *AppDependency, handler *http.HttpAPIHandler) *HTTPServer {
	return &HTTPServer{
		ctx:     ctx,
		appDep:  appDep,
		handler: handler,
	}
}

func (s *HTTPServer) SetupRoutes() error {
	return s.handler.SetupRoutes()
}

// Start blocks until the server stops. The write timeout leaves room for a
// prediction that uses its whole request budget.
func (s *HTTPServer) Start() error {
	cfg := s.appDep.cfg.API
	server := &httpNet.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	s.appDep.log.Info("Starting HTTP server",
		zap.Int("port", cfg.Port),
		zap.Duration("request_timeout", cfg.RequestTimeout))
	return s.appDep.echo.StartServer(server)
}

func (s *HTTPServer) Stop() error {
	s.appDep.log.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.appDep.echo.Shutdown(ctx); err != nil {
		s.appDep.log.Error("Failed to stop HTTP server", zap.Error(err))
		return err
	}
	s.appDep.log.Info("HTTP server stopped")
	return nil
}
