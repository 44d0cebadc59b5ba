// Package share sends headache reports into a chat.
package share

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/i474232898/headache-forecast/internal/weather"
)

// ErrInvalidChat is returned for a zero chat id.
var ErrInvalidChat = errors.New("invalid chat id")

// MessageSender is the subset of *tgbotapi.BotAPI used for sharing.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSharer posts reports to Telegram chats.
type TelegramSharer struct {
	bot MessageSender
}

// NewTelegramSharer wraps an authenticated bot.
func NewTelegramSharer(bot MessageSender) *TelegramSharer {
	return &TelegramSharer{bot: bot}
}

// NewTelegramSharerFromToken authenticates with the Bot API using token.
func NewTelegramSharerFromToken(token string) (*TelegramSharer, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return NewTelegramSharer(bot), nil
}

// Share sends a plain-text summary of report to chatID and returns the message id.
func (s *TelegramSharer) Share(ctx context.Context, chatID int64, report weather.Report) (int, error) {
	if chatID == 0 {
		return 0, ErrInvalidChat
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, FormatReport(report))
	sent, err := s.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send telegram message: %w", err)
	}
	return sent.MessageID, nil
}

// FormatReport renders report as plain text.
func FormatReport(report weather.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%sの頭痛予報\n", report.Location.City)
	fmt.Fprintf(&b, "頭痛リスク: %s %s\n\n", report.Risk.Label, report.Risk.Icon)
	fmt.Fprintf(&b, "天気: %s\n", report.Current.Condition)
	fmt.Fprintf(&b, "気温: %.1f℃\n", report.Current.TemperatureC)
	fmt.Fprintf(&b, "気圧: %.0fhPa\n\n", report.Current.PressureHpa)
	b.WriteString(report.Risk.Forecast)
	b.WriteString("\n")
	b.WriteString(report.Risk.Advice)

	return b.String()
}
