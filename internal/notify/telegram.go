// Package notify отправляет уведомления об итогах торговых операций
// в Telegram. Нотификатор опционален: при пустом токене создаётся
// no-op вариант, и вызывающие об этом не знают.
package notify

import (
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier доставляет короткие сообщения оператору
type Notifier interface {
	Notify(text string)
}

// Noop - заглушка, когда Telegram не сконфигурирован
type Noop struct{}

func (Noop) Notify(string) {}

// Telegram шлёт сообщения в один чат
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// New создаёт нотификатор. Пустой токен или chat id дают Noop.
func New(token, chatID string, logger *slog.Logger) Notifier {
	if token == "" || chatID == "" {
		return Noop{}
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		logger.Warn("⚠️  Invalid TELEGRAM_CHAT_ID, notifications disabled", slog.String("value", chatID))
		return Noop{}
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Warn("⚠️  Telegram bot init failed, notifications disabled", slog.Any("error", err))
		return Noop{}
	}

	logger.Info("✅ Telegram notifications enabled", slog.String("bot", bot.Self.UserName))

	return &Telegram{bot: bot, chatID: id, logger: logger}
}

func (t *Telegram) Notify(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("❌ Telegram send failed", slog.Any("error", err))
	}
}

// FanoutSummary форматирует итог fanout для уведомления
func FanoutSummary(user, batchID string, total, failed int) string {
	return fmt.Sprintf("📊 Order fanout %s by %s: %d targets, %d failed", batchID, user, total, failed)
}
