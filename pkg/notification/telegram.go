package notification

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Telegram adapts the shared bot client to the notify service
// interface so alerts ride the same connection as everything else.
type Telegram struct {
	client    *tgbotapi.BotAPI
	receivers []int64
}

func (t *Telegram) SetClient(client *tgbotapi.BotAPI) {
	t.client = client
}

func (t *Telegram) AddReceivers(chatIDs ...int64) {
	t.receivers = append(t.receivers, chatIDs...)
}

// Send delivers subject+message to every receiver chat.
func (t Telegram) Send(ctx context.Context, subject, message string) error {
	text := fmt.Sprintf("%s\n%s", subject, message)
	for _, chatID := range t.receivers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.client.Send(msg); err != nil {
			return errors.Wrapf(err, "sending alert to chat %d", chatID)
		}
	}
	return nil
}
