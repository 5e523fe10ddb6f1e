package hostbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramNotifier пересылает события в служебный чат бота.
type TelegramNotifier struct {
	sender messageSender
	chat   *telebot.Chat
}

// NewTelegramNotifier создаёт уведомитель на базе Bot API. Бот создаётся
// без опроса обновлений: он только отправляет сообщения.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramNotifier{
		sender: b,
		chat:   &telebot.Chat{ID: chatID},
	}, nil
}

// Notify отправляет событие JSON-сообщением.
func (n *TelegramNotifier) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := n.sender.Send(n.chat, string(payload)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
