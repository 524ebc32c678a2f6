package telegram

import (
	"context"
	"sync/atomic"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gopkg.in/telebot.v3"
)

type TelegramBotHandler struct {
	ctx       context.Context
	cfg       *config.Config
	bot       *telebot.Bot
	log       *logger.Logger
	telegram  *telegram.TelegramRateLimiter
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	polling   atomic.Bool
}

func NewTelegramBotHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	bot *telebot.Bot,
	telegram *telegram.TelegramRateLimiter,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service) *TelegramBotHandler {
	return &TelegramBotHandler{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		bot:       bot,
		telegram:  telegram,
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

// Start publishes the command list and begins receiving updates. With a
// webhook URL configured updates arrive through the echo route, otherwise
// Start blocks in long polling until Stop is called.
func (t *TelegramBotHandler) Start() {
	t.log.Info("Starting Telegram bot...")

	if err := t.bot.SetCommands(botCommands); err != nil {
		t.log.Warn("Failed to set bot commands", logger.ErrorField(err))
	}

	if t.cfg.Telegram.WebhookURL == "" {
		t.log.Info("Telegram webhook is disabled, using long polling")
		if err := t.bot.RemoveWebhook(); err != nil {
			t.log.Warn("Failed to remove webhook", logger.ErrorField(err))
		}
		t.polling.Store(true)
		t.bot.Start()
		return
	}

	t.log.Info("Setting webhook URL", logger.StringField("webhook_url", t.cfg.Telegram.WebhookURL))
	err := t.bot.SetWebhook(&telebot.Webhook{
		SecretToken:    t.cfg.Telegram.WebhookSecret,
		AllowedUpdates: []string{"message", "callback_query", "pre_checkout_query"},
		Endpoint: &telebot.WebhookEndpoint{
			PublicURL: t.cfg.Telegram.WebhookURL,
		},
	})
	if err != nil {
		t.log.ErrorContextWithAlert(t.ctx, "Failed to set Telegram webhook", logger.ErrorField(err))
	}
}

func (t *TelegramBotHandler) Stop() {
	t.log.Info("Stopping Telegram bot...")

	if !t.polling.Load() {
		t.log.Info("Telegram bot shutdown completed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopDone := make(chan struct{})
	go func() {
		t.bot.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.log.Info("Telegram bot stopped successfully")
	case <-ctx.Done():
		t.log.Warn("Timeout while stopping bot, forcing shutdown")
	}

	t.log.Info("Telegram bot shutdown completed")
}
