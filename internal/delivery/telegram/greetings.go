package telegram

import (
	"context"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/logger"

	"gopkg.in/telebot.v3"
)

// handleStart links the chat. "/start <token>" attaches it to the web
// account that issued the token; plain "/start" reuses or creates a chat
// account.
func (t *TelegramBotHandler) handleStart(ctx context.Context, c telebot.Context) error {
	chatID := c.Chat().ID
	name := displayName(c.Sender())

	var (
		user *model.User
		err  error
	)
	if args := c.Args(); len(args) > 0 {
		user, err = t.service.IdentityService.ConfirmChatLink(ctx, chatID, name, args[0])
	} else {
		user, err = t.service.IdentityService.LinkChatIdentity(ctx, chatID, name)
	}
	if err != nil {
		t.log.InfoContext(ctx, "Chat link rejected", logger.ErrorField(err))
		return t.replyError(ctx, c, err, "")
	}

	return t.reply(ctx, c, formatWelcome(user))
}

func (t *TelegramBotHandler) handleHelp(ctx context.Context, c telebot.Context) error {
	return t.reply(ctx, c, messageHelp)
}
