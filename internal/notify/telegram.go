package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Dev72112/xlamaexchange/internal/orders"
)

// TelegramNotifier pushes order events to a Telegram chat. Constructed with
// an empty token it degrades to logging only, so a missing bot config never
// blocks the watcher.
type TelegramNotifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	logger   *slog.Logger
	disabled bool
}

func NewTelegramNotifier(token, chatID string, logger *slog.Logger) (*TelegramNotifier, error) {
	if token == "" {
		logger.Info("telegram token not set, notifications log-only")
		return &TelegramNotifier{logger: logger, disabled: true}, nil
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("telegram notifier authorized", "username", api.Self.UserName)

	return &TelegramNotifier{api: api, chatID: parsedChatID, logger: logger}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, ev Event) {
	text := formatEvent(ev)
	if n.disabled {
		n.logger.Info("telegram disabled, event dropped", "order_id", ev.OrderID)
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		// Delivery failure must not affect order state.
		n.logger.Warn("telegram send failed", "order_id", ev.OrderID, "error", err)
	}
}

func formatEvent(ev Event) string {
	switch ev.Status {
	case orders.StatusExpired:
		return fmt.Sprintf("*Order Expired*\n\nOrder: `%s`\nPair: `%s`", ev.OrderID, ev.Pair)
	case orders.StatusTriggered:
		return fmt.Sprintf("*Order Triggered*\n\nOrder: `%s`\nPair: `%s`\nReason: `%s`\nPrice: `%g`",
			ev.OrderID, ev.Pair, ev.Reason, ev.Price)
	default:
		return fmt.Sprintf("*Order Update*\n\nOrder: `%s`\nPair: `%s`\nStatus: `%s`", ev.OrderID, ev.Pair, ev.Status)
	}
}
