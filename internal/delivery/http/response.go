package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/common"

	"github.com/labstack/echo/v4"
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidLinkToken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotLinked):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrLinkConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c echo.Context, err error) error {
	status := httpStatus(err)
	return c.JSON(status, dto.NewErrorResponse(status, service.Message(err)))
}

// requestContext bounds a request by the configured API timeout.
func (h *HttpAPIHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.cfg.API.RequestTimeout)
}

func currentUser(c echo.Context) *model.User {
	user, _ := c.Get(common.CONTEXT_KEY_USER).(*model.User)
	return user
}

// RequireBearer resolves the user from an `Authorization: Bearer` token.
func (h *HttpAPIHandler) RequireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "missing bearer token"))
		}

		userID, err := h.service.AuthService.ParseToken(strings.TrimSpace(token))
		if err != nil {
			return errorResponse(c, err)
		}

		user, err := h.service.AuthService.GetUser(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "invalid or expired token"))
			}
			return errorResponse(c, err)
		}

		c.Set(common.CONTEXT_KEY_USER, user)
		return next(c)
	}
}

func (h *HttpAPIHandler) chartURL(name string) string {
	if name == "" {
		return ""
	}
	return path.Join(h.cfg.Chart.URLPrefix, name)
}

func (h *HttpAPIHandler) toPredictionResponse(p model.Prediction) dto.PredictionResponse {
	metrics := map[string]interface{}{}
	_ = json.Unmarshal(p.Metrics, &metrics)

	return dto.PredictionResponse{
		ID:               p.ID,
		Ticker:           p.Ticker,
		PredictedPrice:   p.PredictedPrice,
		Metrics:          metrics,
		HistoryChartURL:  h.chartURL(p.HistoryChartPath),
		ForecastChartURL: h.chartURL(p.ForecastChartPath),
		CreatedAt:        p.CreatedAt,
	}
}
