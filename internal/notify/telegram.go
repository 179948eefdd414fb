package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"daily-tracker/internal/model"
)

// TelegramAPI is satisfied by *tgbotapi.BotAPI.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramChannel struct {
	api     TelegramAPI
	limiter *rate.Limiter
}

func NewTelegramChannel(api TelegramAPI, limiter *rate.Limiter) *TelegramChannel {
	return &TelegramChannel{api: api, limiter: limiter}
}

func (c *TelegramChannel) Name() string { return ChannelTelegram }

func (c *TelegramChannel) Enabled(p model.UserPreferences) bool { return p.EnableTelegram }

func (c *TelegramChannel) Configured() bool { return c.api != nil }

func (c *TelegramChannel) Send(ctx context.Context, r Reminder) error {
	if c.api == nil {
		return ErrUnconfigured
	}
	if r.Prefs.TelegramChatID == 0 {
		return ErrBadRecipient
	}
	if err := wait(ctx, c.limiter); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	msg := tgbotapi.NewMessage(r.Prefs.TelegramChatID, TelegramText(r.Task, r.Type))
	msg.ParseMode = tgbotapi.ModeHTML
	err := callWithContext(ctx, func() error {
		_, err := c.api.Send(msg)
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}
