package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	httpclient "github.com/Alias1177/FixPredict/internal/platform/http"
	"github.com/Alias1177/FixPredict/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// DedupWindow is how long a delivered event id is remembered.
const DedupWindow = 24 * time.Hour

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts events to an operator chat.
type Telegram struct {
	sender Sender
	chatID int64
	seen   *cache.Cache
	logger zerolog.Logger
}

// NewTelegram authorizes the bot behind token and returns a notifier posting
// to chatID through client.
func NewTelegram(token string, chatID int64, client *httpclient.Client, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	t := NewTelegramWithSender(bot, chatID, logger)
	t.logger.Debug().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")
	return t, nil
}

// NewTelegramWithSender returns a notifier posting through sender.
func NewTelegramWithSender(sender Sender, chatID int64, logger zerolog.Logger) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		seen:   cache.New(DedupWindow, time.Hour),
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

// Notify sends one message per event not delivered within DedupWindow.
// It keeps going after a failed send and returns every failure joined.
func (t *Telegram) Notify(ctx context.Context, events []models.Event) error {
	var errs []error
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := ev.ID.String()
		if _, found := t.seen.Get(key); found {
			continue
		}

		msg := tgbotapi.NewMessage(t.chatID, format(ev))
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.sender.Send(msg); err != nil {
			t.logger.Error().Err(err).Str("event_id", key).Msg("telegram send failed")
			errs = append(errs, fmt.Errorf("event %s: %w", key, err))
			continue
		}
		t.seen.SetDefault(key, struct{}{})
	}
	return errors.Join(errs...)
}

func format(ev models.Event) string {
	return fmt.Sprintf("*%s* `#%d`\n%s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, string(ev.Kind)),
		ev.Height,
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, Describe(ev)))
}
