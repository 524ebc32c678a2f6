package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/middleware"

	"github.com/labstack/echo/v4"
	"gopkg.in/telebot.v3"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	webhookPath       = "/api/v1/telegram/webhook"
)

func (t *TelegramBotHandler) WithContext(handler func(ctx context.Context, c telebot.Context) error) func(c telebot.Context) error {
	return middleware.WithContext(t.ctx, t.log, t.cfg.Telegram.TimeoutDuration, handler)
}

// RegisterHandlers wires every bot command, and the webhook route when the
// bot runs in webhook mode. It must run before the HTTP server starts.
func (t *TelegramBotHandler) RegisterHandlers() {
	if t.cfg.Telegram.WebhookURL != "" {
		t.echo.POST(webhookPath, t.Webhook)
	}

	t.bot.Handle("/start", t.WithContext(t.handleStart))
	t.bot.Handle("/help", t.WithContext(t.handleHelp))
	t.bot.Handle("/predict", t.WithContext(t.handlePredict))
	t.bot.Handle("/latest", t.WithContext(t.handleLatest))
	t.bot.Handle("/history", t.WithContext(t.handleHistory))
	t.bot.Handle("/quota", t.WithContext(t.handleQuota))
	t.bot.Handle("/subscribe", t.WithContext(t.handleSubscribe))
	t.bot.Handle(&btnSubscribe, t.WithContext(t.handleSubscribe))
	t.bot.Handle(&btnQuota, t.WithContext(t.handleQuota))
	t.bot.Handle(telebot.OnCheckout, t.WithContext(t.handleCheckout))
	t.bot.Handle(telebot.OnPayment, t.WithContext(t.handlePayment))
	t.bot.Handle(telebot.OnText, t.WithContext(t.handleTextMessage))
}

// Webhook accepts updates pushed by Telegram. Without a configured secret no
// request can be authenticated, so every update is refused.
func (t *TelegramBotHandler) Webhook(c echo.Context) error {
	expected := t.cfg.Telegram.WebhookSecret
	secret := c.Request().Header.Get(secretTokenHeader)
	if expected == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(expected)) != 1 {
		t.log.WarnContext(t.ctx, "Rejected telegram webhook request", logger.StringField("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "invalid secret token"))
	}

	var update telebot.Update
	if err := c.Bind(&update); err != nil {
		t.log.ErrorContext(t.ctx, "Cannot bind JSON", logger.ErrorField(err))
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	t.bot.ProcessUpdate(update)
	return c.JSON(http.StatusOK, dto.NewBaseResponse(http.StatusOK, "ok", nil))
}

// displayName is the name a chat user is known by when an account is
// created for them.
func displayName(u *telebot.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// resolveUser returns the account linked to the chat, replying with a hint
// when there is none.
func (t *TelegramBotHandler) resolveUser(ctx context.Context, c telebot.Context) (*model.User, bool) {
	user, err := t.service.IdentityService.ResolveUserByChat(ctx, c.Chat().ID)
	if err != nil {
		_ = t.replyError(ctx, c, err, "")
		return nil, false
	}
	return user, true
}

func (t *TelegramBotHandler) reply(ctx context.Context, c telebot.Context, message string, opts ...interface{}) error {
	opts = append(opts, telebot.ModeHTML)
	return t.telegram.SendWithoutMsg(ctx, c, message, opts...)
}

// replyError maps a service error to the chat reply for that kind.
func (t *TelegramBotHandler) replyError(ctx context.Context, c telebot.Context, err error, input string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return t.reply(ctx, c, formatValidation(service.Message(err), input))
	case errors.Is(err, service.ErrQuotaExceeded):
		return t.reply(ctx, c, formatQuotaExceeded(service.Message(err)), subscribeMenu())
	case errors.Is(err, service.ErrNotLinked):
		return t.reply(ctx, c, messageNotLinked)
	case errors.Is(err, service.ErrNotFound):
		return t.reply(ctx, c, "No predictions yet.")
	case errors.Is(err, service.ErrUpstream):
		return t.reply(ctx, c, formatUpstream(service.Message(err)))
	case errors.Is(err, service.ErrLinkConfirmationRequired), errors.Is(err, service.ErrInvalidLinkToken):
		return t.reply(ctx, c, formatLinkHelp(service.Message(err)))
	default:
		return t.reply(ctx, c, commonErrorInternal)
	}
}

func (t *TelegramBotHandler) handleTextMessage(ctx context.Context, c telebot.Context) error {
	if strings.HasPrefix(c.Text(), "/") {
		return t.reply(ctx, c, "I don't know that command. Use /help to see what I can do.")
	}
	return t.reply(ctx, c, "Send /predict &lt;TICKER&gt; to get a prediction, or /help for everything else.")
}
