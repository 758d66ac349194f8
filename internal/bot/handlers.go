package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/notify"
	"github.com/wapuda/rei-assistant/internal/store"
)

func (b *Bot) isAdmin(id int64) bool { return b.cfg.AdminID != 0 && id == b.cfg.AdminID }

func (b *Bot) start(ctx context.Context, m *tgbotapi.Message) {
	rec := b.touch(ctx, m.From)
	b.activity.Record(rec.ID, rec.Username, logx.ActionStart, "Telegram", "")

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📥 Download Video", b.cfg.ShareURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ℹ️ How to use", dataHelp)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("⭐ Rate Bot", b.cfg.RateURL)),
	)
	b.sendMarkdown(m.Chat.ID, b.cfg.WelcomeMessage, &kb)

	b.relay.Notify(ctx, "🚀 *NEW USER STARTED BOT*\n*Rei Assistant* got a new user!", notify.FromRecord(rec))
}

func (b *Bot) help(chatID int64) {
	b.sendMarkdown(chatID, b.cfg.HelpMessage, nil)
}

func (b *Bot) stats(ctx context.Context, m *tgbotapi.Message) {
	rec := b.touch(ctx, m.From)
	all, err := b.store.All(ctx)
	if err != nil {
		lg := logx.FromCtx(ctx)
		lg.Error().Err(err).Msg("load users")
		b.reply(m, "❌ Statistics are unavailable right now.")
		return
	}
	if b.isAdmin(m.From.ID) {
		b.sendMarkdown(m.Chat.ID, adminStats(store.Summarize(all, b.now()), b.now().Format("2006-01-02 15:04:05")), nil)
		return
	}
	b.sendMarkdown(m.Chat.ID, personalStats(rec, store.Rank(all, rec.ID), b.now()), nil)
}

func adminStats(s store.Summary, updated string) string {
	var top strings.Builder
	for i, u := range s.Top {
		fmt.Fprintf(&top, "%d. %s: %d downloads\n", i+1, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, u.Handle()), u.Downloads)
	}
	if top.Len() == 0 {
		top.WriteString("No downloads yet\n")
	}
	return fmt.Sprintf("📊 *REI ASSISTANT - Admin Statistics*\n\n"+
		"👥 *Users:*\n• Total: %d\n• Active Today: %d\n• New Today: %d\n\n"+
		"📥 *Downloads:*\n• Total: %d\n• Avg per User: %.1f\n\n"+
		"🏆 *Top 5 Users:*\n%s\n"+
		"⏰ *Last Updated:* %s",
		s.TotalUsers, s.ActiveToday, s.NewToday, s.TotalDownloads, s.AvgPerUser, top.String(), updated)
}

func personalStats(u store.UserRecord, r store.Ranking, now time.Time) string {
	days := int(now.Sub(u.FirstSeen).Hours() / 24)
	return fmt.Sprintf("📊 *Your Statistics*\n\n"+
		"👤 *Info:*\n• Username: %s\n• User ID: `%d`\n\n"+
		"📥 *Download Stats:*\n• Total Downloads: %d\n• First Joined: %s\n• Days Active: %d days\n\n"+
		"🏆 *Ranking:* %s\n\n"+
		"*Thank you for using Rei Assistant!* 🤖",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, u.Handle()), u.ID, u.Downloads, u.FirstSeen.Format("2006-01-02"), days, r)
}

func (b *Bot) broadcast(ctx context.Context, m *tgbotapi.Message, text string) {
	if !b.isAdmin(m.From.ID) {
		b.reply(m, "❌ This command is for the admin only!")
		return
	}
	if text == "" {
		b.reply(m, "Usage: /broadcast <message>\nExample: /broadcast Hello everyone!")
		return
	}
	all, err := b.store.All(ctx)
	if err != nil {
		lg := logx.FromCtx(ctx)
		lg.Error().Err(err).Msg("load users")
		b.reply(m, "❌ Could not load the user list.")
		return
	}
	req := b.registry.Open(m.From.ID, text)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Yes, broadcast", confirmData(req.ID)),
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cancelData(req.ID)),
	))
	body := fmt.Sprintf("📢 *Broadcast confirmation*\n\nMessage: %s\n\n*Will be sent to:* %d users\n*Are you sure?*",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text), len(all))
	b.sendMarkdown(m.Chat.ID, body, &kb)
}

func (b *Bot) confirmBroadcast(ctx context.Context, cq *tgbotapi.CallbackQuery, id string) {
	if !b.isAdmin(cq.From.ID) {
		return
	}
	req, ok := b.registry.Take(id, cq.From.ID)
	if !ok {
		b.edit(cq.Message, "⌛ This broadcast has expired or was already handled.", nil)
		return
	}
	b.edit(cq.Message, "⏳ Broadcasting message...", nil)

	all, err := b.store.All(ctx)
	if err != nil {
		lg := logx.FromCtx(ctx)
		lg.Error().Err(err).Msg("load users")
		b.edit(cq.Message, "❌ Could not load the user list.", nil)
		return
	}
	ids := make([]int64, 0, len(all))
	for _, u := range all {
		ids = append(ids, u.ID)
	}
	sum := b.fanout.Send(ctx, ids, req.Text)
	b.activity.Record(cq.From.ID, cq.From.UserName, logx.ActionBroadcast, "Telegram",
		fmt.Sprintf("sent=%d failed=%d", sum.Sent, sum.Failed))
	b.edit(cq.Message, fmt.Sprintf("✅ *Broadcast complete!*\n\n✅ Sent: %d users\n❌ Failed: %d users", sum.Sent, sum.Failed), nil)
}

func (b *Bot) cancelBroadcast(ctx context.Context, cq *tgbotapi.CallbackQuery, id string) {
	if !b.isAdmin(cq.From.ID) {
		return
	}
	if id == "" {
		b.registry.CancelAll(cq.From.ID)
	} else {
		b.registry.Cancel(id, cq.From.ID)
	}
	lg := logx.FromCtx(ctx)
	lg.Info().Str("broadcast", id).Msg("broadcast cancelled")
	b.edit(cq.Message, "❌ Broadcast cancelled.", nil)
}
