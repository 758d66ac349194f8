// Package bot is the Telegram front-end: it reads updates, parses commands
// and callbacks once, and routes them to the right flow.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/wapuda/rei-assistant/internal/broadcast"
	"github.com/wapuda/rei-assistant/internal/config"
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/notify"
	"github.com/wapuda/rei-assistant/internal/orchestrator"
	"github.com/wapuda/rei-assistant/internal/store"
)

// API is satisfied by *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Notifier interface {
	Notify(ctx context.Context, body string, u *notify.UserContext)
}

type ActivityLog interface {
	Record(userID int64, username, action, platform, details string)
}

type Deps struct {
	API       API
	Store     store.Store
	Relay     Notifier
	Activity  ActivityLog
	Submitter Submitter
	Registry  *broadcast.Registry
	Fanout    *broadcast.Fanout
}

type Bot struct {
	cfg      config.Config
	api      API
	store    store.Store
	relay    Notifier
	activity ActivityLog
	submit   Submitter
	registry *broadcast.Registry
	fanout   *broadcast.Fanout
	sem      *semaphore.Weighted
	now      func() time.Time
}

func New(cfg config.Config, d Deps) *Bot {
	n := cfg.MaxConcurrentUpdates
	if n <= 0 {
		n = 1
	}
	return &Bot{
		cfg:      cfg,
		api:      d.API,
		store:    d.Store,
		relay:    d.Relay,
		activity: d.Activity,
		submit:   d.Submitter,
		registry: d.Registry,
		fanout:   d.Fanout,
		sem:      semaphore.NewWeighted(int64(n)),
		now:      time.Now,
	}
}

// Run handles updates until the channel closes or ctx ends. Every update
// gets its own goroutine; at most MaxConcurrentUpdates run at once.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if err := b.sem.Acquire(ctx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer b.sem.Release(1)
				b.Handle(ctx, upd)
			}()
		}
	}
}

// Handle processes one update. A panic is logged and reported, never
// propagated.
func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.recovered(ctx, upd, r)
		}
	}()
	switch {
	case upd.Message != nil:
		b.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.onCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) recovered(ctx context.Context, upd tgbotapi.Update, r any) {
	log.Error().
		Interface("panic", r).
		Int("update_id", upd.UpdateID).
		Bytes("stack", debug.Stack()).
		Msg("update handler panicked")

	note := fmt.Sprintf("🚨 *BOT ERROR*\n*Error:* ```\n%s\n```\n*Update:* `%d`", logx.Scrub(fmt.Sprint(r), b.cfg.BotToken), upd.UpdateID)
	b.relay.Notify(ctx, note, nil)

	if chatID, ok := chatOf(upd); ok {
		b.send(tgbotapi.NewMessage(chatID, "❌ A system error occurred. Please try again later."))
	}
}

func chatOf(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

func (b *Bot) onMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	ctx = logx.WithUser(ctx, m.From.ID)
	lg := logx.FromCtx(ctx)
	lg.Info().Int64("chat_id", m.Chat.ID).Msg("message received")

	if m.IsCommand() {
		cmd := ParseCommand(m)
		switch cmd.Kind {
		case CmdStart:
			b.start(ctx, m)
		case CmdHelp:
			b.touch(ctx, m.From)
			b.help(m.Chat.ID)
		case CmdStats:
			b.stats(ctx, m)
		case CmdBroadcast:
			b.broadcast(ctx, m, cmd.Args)
		default:
			b.reply(m, "Unknown command. Send a video link or /help.")
		}
		return
	}

	if m.Text == "" {
		return
	}
	req := orchestrator.Request{
		JobID:     jobs.NewID(),
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Profile:   profileOf(m.From),
		Text:      m.Text,
	}
	if err := b.submit.Submit(ctx, req); err != nil {
		lg := logx.FromCtx(ctx)
		lg.Error().Err(err).Str("job", req.JobID).Msg("submit download")
		b.reply(m, "❌ Could not start your download right now. Please try again in a moment.")
	}
}

func (b *Bot) onCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	ctx = logx.WithUser(ctx, cq.From.ID)
	b.answerCB(cq.ID, "")
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}

	cb := ParseCallback(cq.Data)
	switch cb.Kind {
	case CbHelp:
		b.help(cq.Message.Chat.ID)
	case CbDownloadAnother:
		b.edit(cq.Message, "📥 *Download another video*\n\nSend me the new link you want to download!", nil)
	case CbConfirmBroadcast:
		b.confirmBroadcast(ctx, cq, cb.Token)
	case CbCancelBroadcast:
		b.cancelBroadcast(ctx, cq, cb.Token)
	default:
		lg := logx.FromCtx(ctx)
		lg.Debug().Str("data", cq.Data).Msg("unknown callback")
	}
}

// Announce registers the command menu and tells the operator the bot is up.
func (b *Bot) Announce(ctx context.Context, username string) {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the bot"},
		tgbotapi.BotCommand{Command: "help", Description: "How to use"},
		tgbotapi.BotCommand{Command: "stats", Description: "Your download statistics"},
	)
	if _, err := b.api.Request(cmds); err != nil {
		log.Warn().Err(err).Msg("set bot commands")
	}
	note := fmt.Sprintf("🤖 *REI ASSISTANT STARTED*\n*Bot:* @%s\n*Mode:* %s\n*Time:* %s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, username), b.cfg.Mode, b.now().Format("2006-01-02 15:04:05"))
	b.relay.Notify(ctx, note, nil)
}

func profileOf(u *tgbotapi.User) store.Profile {
	return store.Profile{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Language:  u.LanguageCode,
	}
}

func (b *Bot) touch(ctx context.Context, u *tgbotapi.User) store.UserRecord {
	rec, err := b.store.Touch(ctx, profileOf(u))
	if err != nil {
		lg := logx.FromCtx(ctx)
		lg.Error().Err(err).Msg("touch user")
		p := profileOf(u)
		return store.UserRecord{ID: p.ID, Username: p.Username, Name: p.FullName(), Language: p.Language}
	}
	return rec
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Warn().Err(err).Msg("telegram send")
	}
}

func (b *Bot) reply(m *tgbotapi.Message, text string) {
	b.send(tgbotapi.NewMessage(m.Chat.ID, text))
}

func (b *Bot) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	b.send(msg)
}

func (b *Bot) edit(m *tgbotapi.Message, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	e := tgbotapi.NewEditMessageText(m.Chat.ID, m.MessageID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	e.ReplyMarkup = kb
	if _, err := b.api.Request(e); err != nil {
		log.Warn().Err(err).Msg("telegram edit")
	}
}

func (b *Bot) answerCB(id, text string) {
	_, _ = b.api.Request(tgbotapi.NewCallback(id, text))
}
