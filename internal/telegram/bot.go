// Package telegram delivers the digest as chat messages.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"performance-meal-planner/internal/config"
)

// MaxMessageLength is the Telegram limit for one message, in characters.
const MaxMessageLength = 4096

// api is the part of tgbotapi.BotAPI the sender needs.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot sends the digest to a single chat.
type Bot struct {
	api    api
	chatID int64
	log    logrus.FieldLogger
}

// NewBot authorizes against the Bot API.
func NewBot(cfg config.TelegramConfig, log logrus.FieldLogger) (*Bot, error) {
	return NewBotWithEndpoint(cfg, tgbotapi.APIEndpoint, log)
}

// NewBotWithEndpoint is NewBot against a custom API endpoint of the form
// "https://host/bot%s/%s".
func NewBotWithEndpoint(cfg config.TelegramConfig, endpoint string, log logrus.FieldLogger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("account", botAPI.Self.UserName).Info("authorized on telegram")
	return &Bot{api: botAPI, chatID: cfg.ChatID, log: log}, nil
}

// Send posts the subject followed by the body, split across as many
// messages as needed. It stops at the first failed message.
func (b *Bot) Send(ctx context.Context, subject, body string) bool {
	chunks := Split(subject+"\n\n"+body, MaxMessageLength)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			b.log.WithError(err).Error("telegram delivery cancelled")
			return false
		}
		msg := tgbotapi.NewMessage(b.chatID, chunk)
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithError(err).WithField("part", i+1).Error("telegram delivery failed")
			return false
		}
	}
	b.log.WithField("parts", len(chunks)).Info("digest sent to telegram")
	return true
}

// Split breaks text into chunks of at most limit characters, preferring
// line boundaries. Lines longer than limit are cut.
func Split(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}
