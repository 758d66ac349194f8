// Package notify relays events to the operator's Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/store"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserContext is appended to a notification as a details block.
type UserContext struct {
	ID        int64
	Username  string
	Name      string
	Language  string
	Downloads int
}

func FromRecord(u store.UserRecord) *UserContext {
	return &UserContext{ID: u.ID, Username: u.Username, Name: u.Name, Language: u.Language, Downloads: u.Downloads}
}

// field renders a user-controlled value for a legacy Markdown message.
func field(s string) string {
	if s == "" {
		return "N/A"
	}
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (u *UserContext) block() string {
	var b strings.Builder
	b.WriteString("👤 *User Details:*\n")
	fmt.Fprintf(&b, "• ID: `%d`\n", u.ID)
	fmt.Fprintf(&b, "• Username: @%s\n", field(u.Username))
	fmt.Fprintf(&b, "• Name: %s\n", field(u.Name))
	fmt.Fprintf(&b, "• Language: %s\n", field(u.Language))
	fmt.Fprintf(&b, "• Downloads: %d", u.Downloads)
	return b.String()
}

// Relay sends to a single operator chat. Delivery problems are logged and
// counted, never returned.
type Relay struct {
	sender   Sender
	operator int64
	failures atomic.Int64
}

// New returns a Relay; operator 0 disables delivery.
func New(s Sender, operator int64) *Relay {
	return &Relay{sender: s, operator: operator}
}

func (r *Relay) Enabled() bool { return r != nil && r.operator != 0 }

// Failures counts notifications that could not be delivered.
func (r *Relay) Failures() int64 { return r.failures.Load() }

// Format renders the message the operator receives.
func Format(body string, u *UserContext) string {
	if u == nil {
		return body
	}
	return body + "\n\n" + u.block()
}

func (r *Relay) Notify(ctx context.Context, body string, u *UserContext) {
	if !r.Enabled() {
		return
	}
	lg := logx.FromCtx(ctx)
	msg := tgbotapi.NewMessage(r.operator, Format(body, u))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.sender.Send(msg); err != nil {
		r.failures.Add(1)
		lg.Error().Err(err).Msg("operator notification failed")
		return
	}
	preview := body
	if utf8.RuneCountInString(preview) > 50 {
		preview = string([]rune(preview)[:50])
	}
	lg.Info().Str("preview", preview).Msg("operator notified")
}
