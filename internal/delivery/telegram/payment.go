package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"stock-forecast/internal/dto"
	"stock-forecast/pkg/common"
	"stock-forecast/pkg/logger"

	"gopkg.in/telebot.v3"
)

const invoicePayloadPrefix = "subscription:"

func invoicePayload(userID uint) string {
	return fmt.Sprintf("%s%d", invoicePayloadPrefix, userID)
}

func parseInvoicePayload(payload string) (uint, error) {
	raw, ok := strings.CutPrefix(payload, invoicePayloadPrefix)
	if !ok {
		return 0, fmt.Errorf("unknown invoice payload %q", payload)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id in invoice payload %q", payload)
	}
	return uint(id), nil
}

func (t *TelegramBotHandler) invoice(userID uint) *telebot.Invoice {
	return &telebot.Invoice{
		Title:       t.cfg.Payment.Title,
		Description: t.cfg.Payment.Description,
		Payload:     invoicePayload(userID),
		Currency:    t.cfg.Payment.Currency,
		Token:       t.cfg.Telegram.PaymentProviderToken,
		Start:       "subscribe",
		Prices: []telebot.Price{
			{Label: t.cfg.Payment.Title, Amount: t.cfg.Payment.PriceAmount},
		},
	}
}

func (t *TelegramBotHandler) handleSubscribe(ctx context.Context, c telebot.Context) error {
	user, ok := t.resolveUser(ctx, c)
	if !ok {
		return nil
	}

	paid, err := t.service.SubscriptionService.IsPaid(ctx, user.ID)
	if err != nil {
		return t.replyError(ctx, c, err, "")
	}
	if paid {
		return t.reply(ctx, c, "⭐ You already have unlimited predictions.")
	}

	if t.cfg.Telegram.PaymentProviderToken == "" {
		return t.reply(ctx, c, "Payments in chat are not available right now. You can subscribe from the web dashboard.")
	}

	_, err = t.telegram.Send(ctx, c, t.invoice(user.ID))
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to send invoice", logger.UintField("user_id", user.ID), logger.ErrorField(err))
		return t.reply(ctx, c, commonErrorInternal)
	}
	return nil
}

// checkoutError returns the reason a pre-checkout query must be declined,
// or "" when it matches the invoice we issue.
func (t *TelegramBotHandler) checkoutError(query *telebot.PreCheckoutQuery) string {
	if query == nil {
		return "unknown order"
	}
	if _, err := parseInvoicePayload(query.Payload); err != nil {
		return "unknown order"
	}
	if query.Currency != t.cfg.Payment.Currency || query.Total != t.cfg.Payment.PriceAmount {
		return "the price has changed, please use /subscribe again"
	}
	return ""
}

func (t *TelegramBotHandler) handleCheckout(ctx context.Context, c telebot.Context) error {
	query := c.PreCheckoutQuery()
	if reason := t.checkoutError(query); reason != "" {
		t.log.WarnContext(ctx, "Declining checkout", logger.StringField("reason", reason))
		return c.Accept(reason)
	}
	return c.Accept()
}

func (t *TelegramBotHandler) handlePayment(ctx context.Context, c telebot.Context) error {
	payment := c.Message().Payment
	if payment == nil {
		return nil
	}

	userID, err := parseInvoicePayload(payment.Payload)
	if err != nil {
		t.log.ErrorContextWithAlert(ctx, "Payment with unknown payload",
			logger.StringField("charge_id", payment.TelegramChargeID),
			logger.ErrorField(err))
		return t.reply(ctx, c, commonErrorInternal)
	}

	err = t.service.SubscriptionService.ConfirmPayment(ctx, dto.PaymentConfirmation{
		EventID:  payment.TelegramChargeID,
		UserID:   userID,
		Source:   common.PAYMENT_SOURCE_TELEGRAM,
		Amount:   int64(payment.Total),
		Currency: payment.Currency,
	})
	if err != nil {
		return t.replyError(ctx, c, err, "")
	}

	return t.reply(ctx, c, "✅ Payment received. You now have unlimited predictions!")
}
