package telegram

import (
	"context"
	"fmt"
	"path/filepath"

	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/telegram"

	"gopkg.in/telebot.v3"
)

func (t *TelegramBotHandler) handlePredict(ctx context.Context, c telebot.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return t.reply(ctx, c, messageUsagePredict)
	}
	ticker := args[0]

	user, ok := t.resolveUser(ctx, c)
	if !ok {
		return nil
	}

	if err := t.reply(ctx, c, fmt.Sprintf("⏳ Predicting %s, this can take a moment...", telegram.Code(ticker))); err != nil {
		return err
	}

	result, err := t.service.PredictionService.RequestPrediction(ctx, user.ID, ticker)
	if err != nil {
		t.log.InfoContext(ctx, "Prediction rejected",
			logger.UintField("user_id", user.ID),
			logger.StringField("ticker", ticker),
			logger.ErrorField(err))
		return t.replyError(ctx, c, err, ticker)
	}

	if err := t.reply(ctx, c, formatPrediction(result, t.cfg.QuotaLocation())); err != nil {
		return err
	}

	charts := []struct {
		name    string
		caption string
	}{
		{name: result.HistoryChart, caption: result.Ticker + " price history"},
		{name: result.ForecastChart, caption: result.Ticker + " actual vs predicted"},
	}
	for _, chart := range charts {
		photo := &telebot.Photo{
			File:    telebot.FromDisk(filepath.Join(t.cfg.Chart.OutputDir, chart.name)),
			Caption: chart.caption,
		}
		if _, err := t.telegram.Send(ctx, c, photo); err != nil {
			t.log.ErrorContext(ctx, "Failed to send chart", logger.StringField("chart", chart.name), logger.ErrorField(err))
		}
	}
	return nil
}

func (t *TelegramBotHandler) handleLatest(ctx context.Context, c telebot.Context) error {
	user, ok := t.resolveUser(ctx, c)
	if !ok {
		return nil
	}

	prediction, err := t.service.PredictionService.LatestPrediction(ctx, user.ID)
	if err != nil {
		return t.replyError(ctx, c, err, "")
	}
	return t.reply(ctx, c, formatLatest(prediction, t.cfg.QuotaLocation()))
}

func (t *TelegramBotHandler) handleHistory(ctx context.Context, c telebot.Context) error {
	user, ok := t.resolveUser(ctx, c)
	if !ok {
		return nil
	}

	var ticker string
	if args := c.Args(); len(args) > 0 {
		ticker = args[0]
	}

	predictions, err := t.service.PredictionService.ListPredictions(ctx, user.ID, ticker, t.cfg.Telegram.MaxShowHistory)
	if err != nil {
		return t.replyError(ctx, c, err, ticker)
	}
	if len(predictions) == 0 {
		return t.reply(ctx, c, "No predictions yet.")
	}
	return t.reply(ctx, c, formatHistory(predictions, t.cfg.QuotaLocation()))
}

func (t *TelegramBotHandler) handleQuota(ctx context.Context, c telebot.Context) error {
	user, ok := t.resolveUser(ctx, c)
	if !ok {
		return nil
	}

	usage, err := t.service.PredictionService.Usage(ctx, user.ID)
	if err != nil {
		return t.replyError(ctx, c, err, "")
	}
	if usage.IsPaid {
		return t.reply(ctx, c, formatUsage(usage))
	}
	return t.reply(ctx, c, formatUsage(usage), subscribeMenu())
}
