// Package alert fans admin notifications out to the configured
// channels. Delivery is best-effort: a failing channel is logged and
// never fails the caller.
package alert

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Notifier delivers one admin-facing message.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// TelegramSender is the bot API slice the Telegram notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends alerts to every configured admin chat.
type Telegram struct {
	bot      TelegramSender
	adminIDs []int64
	log      *zap.Logger
}

func NewTelegram(bot TelegramSender, adminIDs []int64, log *zap.Logger) *Telegram {
	return &Telegram{bot: bot, adminIDs: adminIDs, log: log}
}

func (t *Telegram) Notify(ctx context.Context, text string) {
	for _, id := range t.adminIDs {
		msg := tgbotapi.NewMessage(id, text)
		if _, err := t.bot.Send(msg); err != nil {
			t.log.Warn("telegram alert failed", zap.Int64("admin_id", id), zap.Error(err))
		}
	}
}

// SlackPoster is the Slack API slice the Slack notifier uses.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts alerts to a single ops channel.
type Slack struct {
	client  SlackPoster
	channel string
	log     *zap.Logger
}

func NewSlack(client SlackPoster, channel string, log *zap.Logger) *Slack {
	return &Slack{client: client, channel: channel, log: log}
}

func (s *Slack) Notify(ctx context.Context, text string) {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		s.log.Warn("slack alert failed", zap.String("channel", s.channel), zap.Error(err))
	}
}

// Multi notifies every channel in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) {
	for _, n := range m {
		n.Notify(ctx, text)
	}
}
