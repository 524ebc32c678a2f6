package telegram

import "gopkg.in/telebot.v3"

var (
	btnSubscribe telebot.Btn = telebot.Btn{Text: "⭐ Subscribe", Unique: "btn_subscribe"}
	btnQuota     telebot.Btn = telebot.Btn{Text: "📊 My quota", Unique: "btn_quota"}
)

var botCommands = []telebot.Command{
	{Text: "start", Description: "Link this chat (optionally with a token from the web)"},
	{Text: "predict", Description: "Predict the next close, e.g. /predict AAPL"},
	{Text: "latest", Description: "Show your latest prediction"},
	{Text: "history", Description: "List your predictions, optionally for one ticker"},
	{Text: "quota", Description: "Show today's usage"},
	{Text: "subscribe", Description: "Unlock unlimited predictions"},
	{Text: "help", Description: "Show help"},
}

const (
	commonErrorInternal = "Something went wrong, please try again later."
	messageNotLinked    = "This chat is not linked yet. Send /start first."
	messageUsagePredict = "Usage: /predict &lt;TICKER&gt;, for example /predict AAPL"
)

func subscribeMenu() *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data(btnSubscribe.Text, btnSubscribe.Unique), menu.Data(btnQuota.Text, btnQuota.Unique)))
	return menu
}
