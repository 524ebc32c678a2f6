package middleware

import (
	"context"
	"time"

	"stock-forecast/pkg/logger"

	"gopkg.in/telebot.v3"
)

// WithContext gives each bot update its own deadline and a logger tagged
// with the chat it came from.
func WithContext(rootCtx context.Context, log *logger.Logger, timeout time.Duration, handler func(ctx context.Context, c telebot.Context) error) func(c telebot.Context) error {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(rootCtx, timeout)
		defer cancel()

		if chat := c.Chat(); chat != nil {
			ctx = logger.NewContext(ctx, log.With(logger.Int64Field("chat_id", chat.ID)))
		}
		return handler(ctx, c)
	}
}
