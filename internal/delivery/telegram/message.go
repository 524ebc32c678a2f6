package telegram

import (
	"fmt"
	"strings"
	"time"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/telegram"
)

func formatValidation(message, input string) string {
	sb := &strings.Builder{}
	sb.WriteString("❌ ")
	sb.WriteString(telegram.Escape(message))
	if input != "" {
		sb.WriteString(fmt.Sprintf("\nYou sent: %s", telegram.Code(input)))
	}
	sb.WriteString("\n")
	sb.WriteString(messageUsagePredict)
	return sb.String()
}

func formatQuotaExceeded(message string) string {
	return fmt.Sprintf("🚫 %s\n\nUse /subscribe to unlock unlimited predictions.", telegram.Escape(message))
}

func formatUpstream(message string) string {
	return "⚠️ " + telegram.Escape(message)
}

func formatLinkHelp(message string) string {
	return fmt.Sprintf("🔗 %s\n\nLog in on the web dashboard, press \"Link my Telegram chat\" and send the %s command you receive here.",
		telegram.Escape(message), telegram.Code("/start <token>"))
}

func formatWelcome(user *model.User) string {
	return fmt.Sprintf(`👋 <b>Welcome, %s!</b>
This chat is linked to your account. I predict the next closing price of a stock from its price history.

📈 /predict &lt;TICKER&gt; - predict the next close
🕘 /latest - your latest prediction
📋 /history [TICKER] - your past predictions
📊 /quota - today's usage
⭐ /subscribe - unlimited predictions
🆘 /help - show help`, telegram.Escape(user.Username))
}

const messageHelp = `❓ <b>How to use this bot</b>

/start - link this chat to an account. Send /start &lt;token&gt; with a token from the web dashboard to use your existing account.
/predict &lt;TICKER&gt; - predict the next close, e.g. /predict AAPL
/latest - show your latest prediction
/history [TICKER] - list your predictions
/quota - free predictions left today
/subscribe - unlimited predictions

Predictions come from a model trained on past prices. They are not financial advice.`

func formatPrediction(result *dto.PredictionResult, loc *time.Location) string {
	return fmt.Sprintf("📈 %s\nPredicted next close: %s\nRequested: %s",
		telegram.Bold(result.Ticker),
		telegram.Code(telegram.FormatPrice(result.PredictedPrice)),
		telegram.FormatDate(result.CreatedAt, loc))
}

func formatLatest(p *model.Prediction, loc *time.Location) string {
	return fmt.Sprintf("🕘 Latest prediction\n%s: %s\nRequested: %s",
		telegram.Bold(p.Ticker),
		telegram.Code(telegram.FormatPrice(p.PredictedPrice)),
		telegram.FormatDate(p.CreatedAt, loc))
}

func formatHistory(predictions []model.Prediction, loc *time.Location) string {
	items := make([]string, 0, len(predictions))
	for _, p := range predictions {
		items = append(items, fmt.Sprintf("%s %s (%s)",
			telegram.Bold(p.Ticker),
			telegram.Code(telegram.FormatPrice(p.PredictedPrice)),
			telegram.FormatDate(p.CreatedAt, loc)))
	}
	return "📋 <b>Your predictions</b>\n" + telegram.FormatList(items)
}

func formatUsage(usage *dto.QuotaUsage) string {
	if usage.IsPaid {
		return fmt.Sprintf("⭐ Premium: unlimited predictions.\nUsed today: %d", usage.UsedToday)
	}
	return fmt.Sprintf("📊 Free plan: %d of %d predictions used today, %d remaining.\nUse /subscribe for unlimited predictions.",
		usage.UsedToday, usage.Limit, usage.Remaining)
}
