package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"performance-meal-planner/internal/config"
)

type fakeAPI struct {
	sent   []tgbotapi.MessageConfig
	failAt int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.failAt > 0 && len(f.sent) == f.failAt {
		return tgbotapi.Message{}, errors.New("flood wait")
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"short"}, Split("short", 10))

	text := "aaaa\nbbbb\ncccc\n"
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, Split(text, 10))

	long := strings.Repeat("é", 25)
	parts := Split(long, 10)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 10)
	}
	assert.Equal(t, long, strings.Join(parts, ""))
}

func TestSend_ChunksLongDigest(t *testing.T) {
	fake := &fakeAPI{}
	b := &Bot{api: fake, chatID: 42, log: quiet()}

	var body strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&body, "- line %03d of the meal plan\n", i)
	}
	require.True(t, b.Send(context.Background(), "Week W10 — Peak load week", body.String()))
	require.Greater(t, len(fake.sent), 1)
	assert.True(t, strings.HasPrefix(fake.sent[0].Text, "Week W10"))
	for _, m := range fake.sent {
		assert.Equal(t, int64(42), m.ChatID)
		assert.LessOrEqual(t, utf8.RuneCountInString(m.Text), MaxMessageLength)
	}
}

func TestSend_StopsOnFailure(t *testing.T) {
	fake := &fakeAPI{failAt: 1}
	b := &Bot{api: fake, chatID: 1, log: quiet()}
	assert.False(t, b.Send(context.Background(), "s", strings.Repeat("x\n", 5000)))
	assert.Len(t, fake.sent, 1)
}

func TestNewBotWithEndpoint(t *testing.T) {
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Planner","username":"planner_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			texts = append(texts, r.FormValue("text"))
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	b, err := NewBotWithEndpoint(config.TelegramConfig{BotToken: "tok", ChatID: 42}, server.URL+"/bot%s/%s", quiet())
	require.NoError(t, err)
	assert.True(t, b.Send(context.Background(), "subject", "body"))
	assert.Equal(t, []string{"subject\n\nbody"}, texts)
}
