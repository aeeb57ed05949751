package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/adminlove520/daily-stock-analysis/internal/render"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
)

// Telegram caps messages at 4096 characters.
const telegramMessageLimit = 4000

// TelegramChannel pushes reports to a Telegram chat via the bot API
type TelegramChannel struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramChannel creates a Telegram channel
func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	return &TelegramChannel{
		api:    api,
		chatID: chatID,
	}, nil
}

// Name identifies the channel in logs and metrics
func (c *TelegramChannel) Name() string {
	return "telegram"
}

// Push delivers the report, chunked under the message cap, in order
func (c *TelegramChannel) Push(ctx context.Context, report *Report) error {
	text := report.Body
	if report.Title != "" {
		text = report.Title + "\n\n" + text
	}

	for _, chunk := range render.Paginate(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(c.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdown

		if _, err := c.api.Send(msg); err != nil {
			return errors.Wrap(err, "failed to send telegram message")
		}
	}

	return nil
}

var _ Channel = (*TelegramChannel)(nil)
