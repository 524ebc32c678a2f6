package http

import (
	"context"

	"stock-forecast/config"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/middleware"
	"stock-forecast/pkg/session"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	ctx       context.Context
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	sessions  *session.SessionManager
}

func NewHttpAPIHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	sessions *session.SessionManager,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
		sessions:  sessions,
	}
}

func (h *HttpAPIHandler) SetupRoutes() error {
	h.echo.GET("/healthz", h.Health)

	// health checks and the payment gateway are not throttled
	v1 := h.echo.Group("/api/v1", middleware.NewRateLimiterMiddleware(h.cfg.API,
		"/api/v1/healthz", "/api/v1/payments/webhook"))
	v1.GET("/healthz", h.Health)
	h.SetupAuth(v1)
	h.SetupPredictions(v1)
	h.SetupChatLink(v1)
	h.SetupPayments(v1)

	if err := h.SetupDashboard(); err != nil {
		return err
	}
	h.echo.Static(h.cfg.Chart.URLPrefix, h.cfg.Chart.OutputDir)
	return nil
}
