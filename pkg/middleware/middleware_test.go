package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-forecast/config"
	"stock-forecast/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gopkg.in/telebot.v3"
)

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(NewRateLimiterMiddleware(config.API{
		MaxRequestPerSec:  1,
		MaxRequestBurst:   2,
		RateLimitExpireIn: time.Minute,
	}, "/healthz"))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"too many requests, slow down"}`, rec.Body.String())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "skipped path is not limited")
	}
}

func TestWithContext_SetsDeadline(t *testing.T) {
	bot, err := telebot.NewBot(telebot.Settings{Offline: true})
	assert.NoError(t, err)

	update := telebot.Update{Message: &telebot.Message{Chat: &telebot.Chat{ID: 42}, Text: "/help"}}
	c := bot.NewContext(update)

	called := false
	handler := WithContext(context.Background(), logger.NewNop(), time.Minute, func(ctx context.Context, c telebot.Context) error {
		called = true
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return nil
	})

	assert.NoError(t, handler(c))
	assert.True(t, called)
}
