package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-credit-ledger/internal/config"
	"telegram-credit-ledger/internal/domain/ports/adapter"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var (
	_ adapter.Notifier = (*BotNotifier)(nil)
	_ adapter.Notifier = (*LogNotifier)(nil)
)

// BotNotifier delivers messages to an account's private chat, whose id equals the account id.
type BotNotifier struct {
	bot sender
	log *zerolog.Logger
}

func NewBotNotifier(cfg *config.BotConfig, logger *zerolog.Logger) (*BotNotifier, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	l := logger.With().Str("component", "telegram").Str("bot", bot.Self.UserName).Logger()
	return &BotNotifier{bot: bot, log: &l}, nil
}

func (n *BotNotifier) Notify(ctx context.Context, accountID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(accountID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", accountID, err)
	}
	n.log.Debug().Int64("account_id", accountID).Msg("notification sent")
	return nil
}

// LogNotifier stands in for the bot when no token is configured.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, accountID int64, text string) error {
	n.log.Info().Int64("account_id", accountID).Str("text", text).Msg("notification")
	return nil
}
