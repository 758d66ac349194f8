package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/wapuda/rei-assistant/internal/broadcast"
	"github.com/wapuda/rei-assistant/internal/config"
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/notify"
	"github.com/wapuda/rei-assistant/internal/orchestrator"
	"github.com/wapuda/rei-assistant/internal/store"
)

const adminID = 1000

type fakeAPI struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	edits    []tgbotapi.EditMessageTextConfig
	other    []tgbotapi.Chattable
	failTo   map[int64]bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, m)
		if f.failTo[m.ChatID] {
			return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
		}
		return tgbotapi.Message{MessageID: len(f.messages)}, nil
	}
	f.other = append(f.other, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
		f.edits = append(f.edits, e)
	} else {
		f.other = append(f.other, c)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) to(chatID int64) []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type fakeRelay struct {
	mu    sync.Mutex
	notes []string
	users []*notify.UserContext
}

func (f *fakeRelay) Notify(ctx context.Context, body string, u *notify.UserContext) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, body)
	f.users = append(f.users, u)
}

type fakeActivity struct{ actions []string }

func (f *fakeActivity) Record(userID int64, username, action, platform, details string) {
	f.actions = append(f.actions, action)
}

type fakeSubmitter struct {
	mu   sync.Mutex
	reqs []orchestrator.Request
	err  error
	hook func()
}

func (f *fakeSubmitter) Submit(ctx context.Context, req orchestrator.Request) error {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

type harness struct {
	api   *fakeAPI
	st    *store.Memory
	relay *fakeRelay
	act   *fakeActivity
	sub   *fakeSubmitter
	reg   *broadcast.Registry
	b     *Bot
}

func newHarness() *harness {
	h := &harness{
		api:   &fakeAPI{failTo: map[int64]bool{}},
		st:    store.NewMemory(),
		relay: &fakeRelay{},
		act:   &fakeActivity{},
		sub:   &fakeSubmitter{},
		reg:   broadcast.NewRegistry(time.Hour),
	}
	cfg := config.Config{
		AdminID:              adminID,
		WelcomeMessage:       config.DefaultWelcome,
		HelpMessage:          config.DefaultHelp,
		ShareURL:             "https://t.me/share/url?url=https://youtube.com",
		RateURL:              "https://t.me/bots",
		MaxConcurrentUpdates: 4,
		Mode:                 config.ModePolling,
	}
	h.b = New(cfg, Deps{
		API:       h.api,
		Store:     h.st,
		Relay:     h.relay,
		Activity:  h.act,
		Submitter: h.sub,
		Registry:  h.reg,
		Fanout:    broadcast.NewFanout(h.api, time.Millisecond),
	})
	return h
}

func user(id int64, name string) *tgbotapi.User {
	return &tgbotapi.User{ID: id, UserName: name, FirstName: strings.ToUpper(name[:1]) + name[1:], LanguageCode: "en"}
}

func textMsg(from *tgbotapi.User, text string) tgbotapi.Update {
	m := &tgbotapi.Message{MessageID: 9, From: from, Chat: &tgbotapi.Chat{ID: from.ID}, Text: text}
	if strings.HasPrefix(text, "/") {
		n := len(text)
		if i := strings.IndexByte(text, ' '); i >= 0 {
			n = i
		}
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: m}
}

func callback(from *tgbotapi.User, data string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    from,
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: from.ID}},
	}}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want Callback
	}{
		{"help_callback", Callback{Kind: CbHelp}},
		{"download_another", Callback{Kind: CbDownloadAnother}},
		{"confirm_broadcast_01ABC", Callback{Kind: CbConfirmBroadcast, Token: "01ABC"}},
		{"confirm_broadcast_", Callback{Kind: CbUnknown}},
		{"cancel_broadcast", Callback{Kind: CbCancelBroadcast}},
		{"cancel_broadcast_01ABC", Callback{Kind: CbCancelBroadcast, Token: "01ABC"}},
		{"something_else", Callback{Kind: CbUnknown}},
		{"", Callback{Kind: CbUnknown}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCallback(tt.data), tt.data)
	}
}

func TestParseCommand(t *testing.T) {
	c := ParseCommand(textMsg(user(1, "a"), "/broadcast  hello all ").Message)
	assert.Equal(t, CmdBroadcast, c.Kind)
	assert.Equal(t, "hello all", c.Args)
	assert.Equal(t, CmdStart, ParseCommand(textMsg(user(1, "a"), "/start").Message).Kind)
	assert.Equal(t, CmdUnknown, ParseCommand(textMsg(user(1, "a"), "/nope").Message).Kind)
}

func TestStartSendsWelcomeAndNotifies(t *testing.T) {
	h := newHarness()
	h.b.Handle(context.Background(), textMsg(user(5, "neo"), "/start"))

	msgs := h.api.to(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, config.DefaultWelcome, msgs[0].Text)
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 3)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "help_callback", *kb.InlineKeyboard[1][0].CallbackData)

	require.Len(t, h.relay.notes, 1)
	assert.Contains(t, h.relay.notes[0], "NEW USER STARTED BOT")
	text := notify.Format(h.relay.notes[0], h.relay.users[0])
	assert.Contains(t, text, "`5`")
	assert.Contains(t, text, "@neo")
	assert.Equal(t, []string{"START_COMMAND"}, h.act.actions)

	_, ok, _ = h.st.Get(context.Background(), 5)
	assert.True(t, ok)
}

func TestHelpCommandAndCallback(t *testing.T) {
	h := newHarness()
	h.b.Handle(context.Background(), textMsg(user(5, "neo"), "/help"))
	h.b.Handle(context.Background(), callback(user(5, "neo"), "help_callback"))

	msgs := h.api.to(5)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, config.DefaultHelp, m.Text)
	}
}

func TestDownloadAnotherEditsMessage(t *testing.T) {
	h := newHarness()
	h.b.Handle(context.Background(), callback(user(5, "neo"), "download_another"))
	require.Len(t, h.api.edits, 1)
	assert.Equal(t, 77, h.api.edits[0].MessageID)
	assert.Contains(t, h.api.edits[0].Text, "Download another video")
}

func TestPlainTextIsSubmitted(t *testing.T) {
	h := newHarness()
	h.b.Handle(context.Background(), textMsg(user(5, "neo"), "https://youtu.be/x"))

	require.Len(t, h.sub.reqs, 1)
	r := h.sub.reqs[0]
	assert.Equal(t, int64(5), r.ChatID)
	assert.Equal(t, 9, r.MessageID)
	assert.Equal(t, "https://youtu.be/x", r.Text)
	assert.Equal(t, "neo", r.Profile.Username)
	assert.Len(t, r.JobID, 26)
}

func TestSubmitFailureTellsUser(t *testing.T) {
	h := newHarness()
	h.sub.err = errors.New("redis down")
	h.b.Handle(context.Background(), textMsg(user(5, "neo"), "https://youtu.be/x"))
	msgs := h.api.to(5)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Could not start your download")
}

func TestStatsPersonalAndAdmin(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, _ = h.st.RecordDownload(ctx, 5)
	_, _ = h.st.RecordDownload(ctx, 5)
	_, _ = h.st.RecordDownload(ctx, 6)

	h.b.Handle(ctx, textMsg(user(6, "trin"), "/stats"))
	msgs := h.api.to(6)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Your Statistics")
	assert.Contains(t, msgs[0].Text, "Total Downloads: 1")
	assert.Contains(t, msgs[0].Text, "#2/2 (Regular User)")

	h.b.Handle(ctx, textMsg(user(adminID, "boss"), "/stats"))
	msgs = h.api.to(adminID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Admin Statistics")
	assert.Contains(t, msgs[0].Text, "• Total: 3")
	assert.Contains(t, msgs[0].Text, "• Total: 3\n• Avg per User: 1.0")
}

func TestBroadcastDeniedForNonAdmin(t *testing.T) {
	h := newHarness()
	h.b.Handle(context.Background(), textMsg(user(5, "neo"), "/broadcast hello"))

	msgs := h.api.to(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, "❌ This command is for the admin only!", msgs[0].Text)
	assert.Zero(t, h.reg.Len())
	assert.Empty(t, h.relay.notes)
	all, _ := h.st.All(context.Background())
	assert.Empty(t, all)
}

func TestBroadcastUsage(t *testing.T) {
	h := newHarness()
	h.b.Handle(context.Background(), textMsg(user(adminID, "boss"), "/broadcast"))
	msgs := h.api.to(adminID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Usage: /broadcast")
	assert.Zero(t, h.reg.Len())
}

func TestBroadcastConfirmFansOut(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	for _, id := range []int64{11, 12, 13} {
		_, _ = h.st.Touch(ctx, store.Profile{ID: id})
	}
	h.api.failTo[12] = true

	h.b.Handle(ctx, textMsg(user(adminID, "boss"), "/broadcast hello"))
	confirm := h.api.to(adminID)
	require.Len(t, confirm, 1)
	assert.Contains(t, confirm[0].Text, "Will be sent to:* 3 users")
	kb := confirm[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	data := *kb.InlineKeyboard[0][0].CallbackData
	require.True(t, strings.HasPrefix(data, "confirm_broadcast_"))
	assert.Equal(t, 1, h.reg.Len())

	// Somebody else pressing the button does nothing.
	h.b.Handle(ctx, callback(user(5, "neo"), data))
	assert.Equal(t, 1, h.reg.Len())

	h.b.Handle(ctx, callback(user(adminID, "boss"), data))
	for _, id := range []int64{11, 12, 13} {
		got := h.api.to(id)
		require.Len(t, got, 1, "user %d", id)
		assert.Equal(t, broadcast.Body("hello"), got[0].Text)
	}
	last := h.api.edits[len(h.api.edits)-1]
	assert.Contains(t, last.Text, "Sent: 2 users")
	assert.Contains(t, last.Text, "Failed: 1 users")
	assert.Zero(t, h.reg.Len())

	// A second confirm finds nothing pending.
	h.b.Handle(ctx, callback(user(adminID, "boss"), data))
	assert.Contains(t, h.api.edits[len(h.api.edits)-1].Text, "expired")
}

func TestBroadcastCancel(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.b.Handle(ctx, textMsg(user(adminID, "boss"), "/broadcast one"))
	h.b.Handle(ctx, textMsg(user(adminID, "boss"), "/broadcast two"))
	require.Equal(t, 2, h.reg.Len())

	kb := h.api.to(adminID)[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	h.b.Handle(ctx, callback(user(adminID, "boss"), *kb.InlineKeyboard[0][1].CallbackData))
	assert.Equal(t, 1, h.reg.Len())
	assert.Equal(t, "❌ Broadcast cancelled.", h.api.edits[0].Text)

	h.b.Handle(ctx, callback(user(adminID, "boss"), "cancel_broadcast"))
	assert.Zero(t, h.reg.Len())
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness()
	h.sub.hook = func() { panic("kaboom") }

	assert.NotPanics(t, func() {
		h.b.Handle(context.Background(), textMsg(user(5, "neo"), "https://youtu.be/x"))
	})
	require.Len(t, h.relay.notes, 1)
	assert.Contains(t, h.relay.notes[0], "BOT ERROR")
	assert.Contains(t, h.relay.notes[0], "kaboom")
	msgs := h.api.to(5)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "system error")
}

func TestRunHandlesAllUpdates(t *testing.T) {
	h := newHarness()
	updates := make(chan tgbotapi.Update)
	done := make(chan struct{})
	go func() {
		h.b.Run(context.Background(), updates)
		close(done)
	}()
	for i := 0; i < 10; i++ {
		updates <- textMsg(user(int64(100+i), fmt.Sprintf("u%d", i)), "https://youtu.be/x")
	}
	close(updates)
	<-done
	assert.Len(t, h.sub.reqs, 10)
}

type blockingRunner struct {
	started chan string
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, req orchestrator.Request) orchestrator.Result {
	r.started <- req.JobID
	<-r.release
	return orchestrator.Result{}
}

func TestInlineDownloadsDoNotHoldUpdateSlots(t *testing.T) {
	h := newHarness()
	runner := &blockingRunner{started: make(chan string, 4), release: make(chan struct{})}
	inline := NewInline(runner, 1)
	h.b.submit = inline
	h.b.sem = semaphore.NewWeighted(1)

	updates := make(chan tgbotapi.Update)
	done := make(chan struct{})
	go func() {
		h.b.Run(context.Background(), updates)
		close(done)
	}()

	updates <- textMsg(user(101, "alice"), "https://youtu.be/a")
	updates <- textMsg(user(102, "bob"), "https://youtu.be/b")
	<-runner.started

	// both downloads are submitted, one is running, and other users still get answers
	updates <- textMsg(user(103, "carol"), "/help")
	close(updates)
	<-done
	require.Len(t, h.api.to(103), 1)
	assert.Equal(t, config.DefaultHelp, h.api.to(103)[0].Text)

	select {
	case <-runner.started:
		t.Fatal("second download started past the limit")
	case <-time.After(20 * time.Millisecond):
	}

	close(runner.release)
	<-runner.started
	inline.Wait()
}

func TestAnnounce(t *testing.T) {
	h := newHarness()
	h.b.Announce(context.Background(), "rei_bot")
	require.Len(t, h.relay.notes, 1)
	assert.Contains(t, h.relay.notes[0], "REI ASSISTANT STARTED")
	assert.Contains(t, h.relay.notes[0], "rei\\_bot")
	require.Len(t, h.api.other, 1)
	_, ok := h.api.other[0].(tgbotapi.SetMyCommandsConfig)
	assert.True(t, ok)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "x"}, nil
}

func TestQueueSubmit(t *testing.T) {
	e := &fakeEnqueuer{}
	q := Queue{Client: e, Timeout: time.Minute}
	req := orchestrator.Request{JobID: jobs.NewID(), ChatID: 5, MessageID: 3, Profile: store.Profile{ID: 5, Username: "neo"}, Text: "https://youtu.be/x"}
	require.NoError(t, q.Submit(context.Background(), req))

	require.Len(t, e.tasks, 1)
	p, err := jobs.ParseDownloadTask(e.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, req, orchestrator.RequestFromPayload(p))
}
