package services

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier mirrors notifications into an operator chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramNotifier connects to the Bot API (one getMe round trip).
func NewTelegramNotifier(botToken string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, to, subject, _ string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeUnresponsive, err
	}
	text := fmt.Sprintf("<b>%s</b>\nto: %s", html.EscapeString(subject), html.EscapeString(to))
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return OutcomeRejected, fmt.Errorf("telegram sendMessage: %w", err)
		}
		return OutcomeUnresponsive, fmt.Errorf("telegram sendMessage: %w", err)
	}
	return OutcomeAccepted, nil
}
