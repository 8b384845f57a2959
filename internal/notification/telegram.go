// Package notification holds the booking-notice dispatchers.  Every type
// here satisfies service.Notifier.
package notification

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botSender is the part of *tgbotapi.BotAPI the dispatcher uses.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts notices to one operator chat.  The recipient address of
// a notice is only shown in the text; the chat is fixed.
type Telegram struct {
	bot    botSender
	chatID int64
}

// NewTelegram connects a bot with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Send implements service.Notifier.
func (t *Telegram) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n(to %s)\n\n%s", subject, to, body))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
