package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func TestNotifyWithUserBlock(t *testing.T) {
	s := &fakeSender{}
	r := New(s, 99)

	r.Notify(context.Background(), "🚀 *DOWNLOAD ATTEMPT DETECTED*", &UserContext{ID: 5, Username: "neo", Name: "Thomas", Downloads: 2})

	require.Len(t, s.sent, 1)
	m := s.sent[0]
	assert.Equal(t, int64(99), m.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, m.ParseMode)
	assert.Contains(t, m.Text, "DOWNLOAD ATTEMPT DETECTED*\n\n👤 *User Details:*")
	assert.Contains(t, m.Text, "• ID: `5`")
	assert.Contains(t, m.Text, "• Username: @neo")
	assert.Contains(t, m.Text, "• Language: N/A")
	assert.Contains(t, m.Text, "• Downloads: 2")
	assert.Zero(t, r.Failures())
}

func TestUserBlockEscapesMarkdown(t *testing.T) {
	got := Format("body", &UserContext{ID: 1, Username: "john_doe", Name: "A*B", Language: "en"})

	assert.Contains(t, got, "• Username: @john\\_doe\n")
	assert.Contains(t, got, "• Name: A\\*B\n")
	assert.Contains(t, got, "• Language: en\n")
}

func TestNotifyWithoutUser(t *testing.T) {
	assert.Equal(t, "plain", Format("plain", nil))
}

func TestNotifySwallowsFailures(t *testing.T) {
	s := &fakeSender{err: errors.New("chat not found")}
	r := New(s, 99)

	r.Notify(context.Background(), "one", nil)
	r.Notify(context.Background(), "two", nil)
	assert.Equal(t, int64(2), r.Failures())
}

func TestNotifyDisabledWithoutOperator(t *testing.T) {
	s := &fakeSender{}
	r := New(s, 0)
	r.Notify(context.Background(), "x", nil)
	assert.False(t, r.Enabled())
	assert.Empty(t, s.sent)
}
