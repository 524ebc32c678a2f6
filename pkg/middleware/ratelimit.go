package middleware

import (
	"net/http"
	"strconv"

	"stock-forecast/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Response mirrors the API's JSON envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRateLimiterMiddleware limits requests per client IP. Requests whose path
// is listed in skipPaths are never counted.
func NewRateLimiterMiddleware(cfg config.API, skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	retryAfter := "1"
	if cfg.MaxRequestPerSec > 0 && cfg.MaxRequestBurst > cfg.MaxRequestPerSec {
		retryAfter = strconv.Itoa(cfg.MaxRequestBurst / cfg.MaxRequestPerSec)
	}

	rlConfig := middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			_, ok := skip[c.Path()]
			return ok
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.MaxRequestPerSec),
				Burst:     cfg.MaxRequestBurst,
				ExpiresIn: cfg.RateLimitExpireIn,
			},
		),

		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},

		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, Response{
				Code:    http.StatusForbidden,
				Message: "cannot identify client",
			})
		},

		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", retryAfter)
			return c.JSON(http.StatusTooManyRequests, Response{
				Code:    http.StatusTooManyRequests,
				Message: "too many requests, slow down",
			})
		},
	}

	return middleware.RateLimiterWithConfig(rlConfig)
}
