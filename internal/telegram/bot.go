// Package telegram is the chat transport for Ornabot.
//
// Uses long polling -- no public URL or webhook needed. Free text goes
// through the router; commands and inline-keyboard callbacks resolve to
// deterministic store-backed views.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ornabd/ornabot/internal/policy"
	"github.com/ornabd/ornabot/internal/router"
	"github.com/ornabd/ornabot/internal/session"
	"github.com/ornabd/ornabot/internal/store"
)

// API is the slice of the bot client the transport uses. Satisfied by
// *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler routes free-form text to a reply.
type Handler interface {
	Handle(ctx context.Context, userID int64, text string) (router.Reply, error)
}

// Refresher invalidates the assembled model context.
type Refresher interface {
	Refresh()
}

// Bot is the Telegram transport.
type Bot struct {
	api      API
	sessions *session.Store
	store    *store.Store
	routes   Handler
	ctxCache Refresher
	log      *zap.Logger
}

// NewBot authorizes against the Telegram API and returns the transport.
func NewBot(token string, sessions *session.Store, st *store.Store, routes Handler, ctxCache Refresher, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating Telegram bot: %w", err)
	}

	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return newBot(api, sessions, st, routes, ctxCache, log), nil
}

func newBot(api API, sessions *session.Store, st *store.Store, routes Handler, ctxCache Refresher, log *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		sessions: sessions,
		store:    st,
		routes:   routes,
		ctxCache: ctxCache,
		log:      log,
	}
}

// API exposes the underlying client so the alert fan-out can reuse the
// same authorized connection.
func (b *Bot) API() API {
	return b.api
}

// Run starts the long-polling loop. Blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	b.log.Info("telegram bot listening")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.Message != nil:
				go b.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				go b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// handleMessage processes an incoming message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, userID, text)
		return
	}

	b.handleFreeText(ctx, chatID, userID, text)
}

// handleCallback treats inline-button data as canonical command text.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("answering callback failed", zap.Error(err))
	}
	if cb.Message == nil {
		return
	}
	b.handleCommand(ctx, cb.Message.Chat.ID, cb.From.ID, cb.Data)
}

// handleFreeText runs the router pipeline and maps its errors to short
// user-safe replies.
func (b *Bot) handleFreeText(ctx context.Context, chatID, userID int64, text string) {
	reply, err := b.routes.Handle(ctx, userID, text)
	switch {
	case err == nil:
		b.send(chatID, reply.Text)
	case errors.Is(err, router.ErrRateLimited):
		b.send(chatID, "Easy there! Give me a few seconds before the next message.")
	case errors.Is(err, router.ErrUnauthorized):
		b.send(chatID, "Sorry, that information is only available to the "+policy.BrandName+" team.")
	default:
		b.log.Error("routing failed", zap.Int64("user_id", userID), zap.Error(err))
		b.send(chatID, "Something went wrong on my end. Please try again in a minute, or call "+policy.ContactPhone+".")
	}
}

// send delivers a Markdown message, retrying as plain text when
// Telegram rejects the formatting.
func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("markdown send failed, retrying plain", zap.Error(err))
		msg.ParseMode = ""
		msg.Text = stripMarkdown(text)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("sending message failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

// sendWithKeyboard delivers a message with an inline keyboard attached.
func (b *Bot) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb

	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("keyboard send failed, retrying plain", zap.Error(err))
		msg.ParseMode = ""
		msg.Text = stripMarkdown(text)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("sending message failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

// stripMarkdown removes formatting for the plain-text retry.
func stripMarkdown(s string) string {
	r := strings.NewReplacer("*", "", "_", "", "`", "")
	return r.Replace(s)
}

// truncate shortens a string to maxLen.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
