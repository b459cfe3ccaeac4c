package notification

import (
	"context"
	"fmt"
	"net/http"

	"gopkg.in/telebot.v3"
)

// TelegramSender posts messages to chats through a bot. It never polls for
// updates.
type TelegramSender struct {
	bot *telebot.Bot
}

// NewTelegramSender builds a sender for token. apiURL overrides the Bot API
// endpoint and may be empty.
func NewTelegramSender(token, apiURL string, client *http.Client) (*TelegramSender, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		URL:     apiURL,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b}, nil
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(&telebot.Chat{ID: chatID}, text)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
		return nil
	}
}
