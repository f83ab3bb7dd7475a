// Package telegram is the messaging-platform transport: it delivers the
// purchase deep link and runs payment checks on request, rendering the
// verification core's answer as one of exactly three outcomes (paid, not
// paid, unavailable).
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/tonbound/sbtid-verifier/internal/ton"
	"github.com/tonbound/sbtid-verifier/internal/verification/domain"
)

const checkPaymentCallback = "check_payment"

// DefaultVerifyTimeout bounds one user-triggered payment check.
const DefaultVerifyTimeout = 30 * time.Second

// Verifier is the slice of the verification service the bot needs.
type Verifier interface {
	Verify(ctx context.Context, identity *big.Int) (*domain.Result, error)
}

// Config holds the bot transport settings.
type Config struct {
	Token         string
	Collection    ton.Address
	PaymentAppURL string
	VerifyTimeout time.Duration
}

// Bot runs the Telegram long-polling transport.
type Bot struct {
	cfg      Config
	api      *bot.Bot
	verifier Verifier
	logger   *slog.Logger
}

// New creates the bot transport. It does not start polling; call Run.
func New(cfg Config, verifier Verifier, logger *slog.Logger) (*Bot, error) {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = DefaultVerifyTimeout
	}

	b := &Bot{
		cfg:      cfg,
		verifier: verifier,
		logger:   logger,
	}

	api, err := bot.New(cfg.Token, bot.WithDefaultHandler(b.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	api.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	api.RegisterHandler(bot.HandlerTypeCallbackQueryData, checkPaymentCallback, bot.MatchTypeExact, b.handleCheckPayment)
	b.api = api

	return b, nil
}

// Run starts long polling and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot polling started")
	b.api.Start(ctx)
	b.logger.Info("telegram bot polling stopped")
}

func (b *Bot) handleStart(ctx context.Context, api *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🛒 Buy identity token", WebApp: &models.WebAppInfo{URL: b.paymentURL(update.Message.From.ID)}}},
			{{Text: "🔍 Check payment", CallbackData: checkPaymentCallback}},
		},
	}

	_, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: "Welcome! This bot sells identity-bound tokens on the TON blockchain.\n\n" +
			"Buy yours with the button below, then use Check Payment to confirm the mint.",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		b.logger.Error("sending start message", "error", err)
	}
}

// paymentURL deep-links the payment web app to this collection and user.
func (b *Bot) paymentURL(userID int64) string {
	q := url.Values{
		"contract": {b.cfg.Collection.String()},
		"socialId": {strconv.FormatInt(userID, 10)},
	}
	return b.cfg.PaymentAppURL + "?" + q.Encode()
}

func (b *Bot) handleCheckPayment(ctx context.Context, api *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	if _, err := api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		b.logger.Warn("answering callback query", "error", err)
	}
	msg := cq.Message.Message
	if msg == nil {
		return
	}
	b.runCheck(ctx, api, msg.Chat.ID, cq.From.ID)
}

// handleDefault picks up web-app data messages; everything else is
// ignored.
func (b *Bot) handleDefault(ctx context.Context, api *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.WebAppData == nil {
		return
	}

	var payload struct {
		InitData string `json:"initData"`
	}
	if err := json.Unmarshal([]byte(msg.WebAppData.Data), &payload); err != nil || payload.InitData == "" {
		b.reply(ctx, api, msg.Chat.ID, "Invalid web app data.")
		return
	}

	userID, err := ValidateInitData(payload.InitData, b.cfg.Token)
	if err != nil {
		b.logger.Warn("web app init data rejected", "error", err)
		b.reply(ctx, api, msg.Chat.ID, "Authentication failed: the web app data could not be verified.")
		return
	}

	b.runCheck(ctx, api, msg.Chat.ID, userID)
}

// runCheck posts a progress message, runs the verification, and edits
// the message in place with the outcome.
func (b *Bot) runCheck(ctx context.Context, api *bot.Bot, chatID, userID int64) {
	progress, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Checking payment status, please wait...",
	})
	if err != nil {
		b.logger.Error("sending progress message", "error", err)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, b.cfg.VerifyTimeout)
	defer cancel()

	result, err := b.verifier.Verify(checkCtx, big.NewInt(userID))
	if err != nil {
		b.logger.Warn("payment check failed", "user_id", userID, "error", err)
	}

	if _, err := api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: progress.ID,
		Text:      OutcomeText(result, err),
	}); err != nil {
		b.logger.Error("editing result message", "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, api *bot.Bot, chatID int64, text string) {
	if _, err := api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		b.logger.Error("sending reply", "error", err)
	}
}
