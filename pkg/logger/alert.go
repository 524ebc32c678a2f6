package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stock-forecast/config"
	"stock-forecast/pkg/common"
	"stock-forecast/pkg/httpclient"

	"go.uber.org/zap/zapcore"
)

// AlertCore tees entries flagged with common.KEY_LOG_HOOK_SEND_ALERT to the
// operator Telegram chat.
type AlertCore struct {
	chatID   string
	client   httpclient.HTTPClient
	core     zapcore.Core
	minLevel zapcore.Level
}

func NewAlertCore(cfg *config.Config, core zapcore.Core, minLevel zapcore.Level) *AlertCore {
	baseURL := fmt.Sprintf("https://api.telegram.org/bot%s", cfg.Telegram.BotToken)
	return &AlertCore{
		chatID:   cfg.Telegram.AlertChatID,
		client:   httpclient.New(baseURL, 10*time.Second),
		core:     core,
		minLevel: minLevel,
	}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		chatID:   a.chatID,
		client:   a.client,
		core:     a.core.With(fields),
		minLevel: a.minLevel,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && shouldAlert(fields) {
		go a.sendTelegramAlert(entry, fields)
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func shouldAlert(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

func formatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	var sb strings.Builder
	for k, v := range enc.Fields {
		sb.WriteString(fmt.Sprintf("• %s: %v\n", k, v))
	}

	return fmt.Sprintf(
		"🚨 %s Alert\n\nMessage: %s\n\nFields:\n%s\nTime: %s",
		entry.Level.CapitalString(),
		entry.Message,
		sb.String(),
		entry.Time.Format("2006-01-02 15:04:05"),
	)
}

func (a *AlertCore) sendTelegramAlert(entry zapcore.Entry, fields []zapcore.Field) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload := map[string]interface{}{
		"chat_id": a.chatID,
		"text":    formatAlert(entry, fields),
	}
	_, _ = a.client.Post(ctx, "/sendMessage", payload, nil, nil)
}
