// Package orchestrator runs one download job: it validates the link, fetches
// metadata, downloads, uploads the video to the user and keeps the operator
// informed along the way.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/wapuda/rei-assistant/internal/extractor"
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/notify"
	"github.com/wapuda/rei-assistant/internal/platform"
	"github.com/wapuda/rei-assistant/internal/store"
)

// Messenger is satisfied by *tgbotapi.BotAPI.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Extractor interface {
	FetchInfo(ctx context.Context, url string) (extractor.Metadata, error)
	Download(ctx context.Context, url, dir string, meta extractor.Metadata) (extractor.Artifact, error)
}

type Notifier interface {
	Notify(ctx context.Context, body string, u *notify.UserContext)
}

type ActivityLog interface {
	Record(userID int64, username, action, platform, details string)
}

type FailureKind int

const (
	None FailureKind = iota
	InvalidInput
	ExtractionFailure
	DownloadFailure
	ArtifactMissing
	Unhandled
)

func (k FailureKind) String() string {
	switch k {
	case None:
		return "none"
	case InvalidInput:
		return "invalid_input"
	case ExtractionFailure:
		return "extraction_failure"
	case DownloadFailure:
		return "download_failure"
	case ArtifactMissing:
		return "artifact_missing"
	default:
		return "unhandled"
	}
}

type Request struct {
	JobID     string // generated when empty
	ChatID    int64
	MessageID int
	Profile   store.Profile
	Text      string
}

type Result struct {
	Job  jobs.Job
	Kind FailureKind
}

func (r Result) OK() bool { return r.Job.Stage == jobs.Completed }

type Options struct {
	WorkDir string
	Ads     string
	Menu    Menu
	// Secrets never appear in error text shown to the user or the operator.
	Secrets []string
}

type Orchestrator struct {
	bot      Messenger
	ext      Extractor
	store    store.Store
	relay    Notifier
	activity ActivityLog
	opts     Options
}

func New(bot Messenger, ext Extractor, st store.Store, relay Notifier, activity ActivityLog, opts Options) *Orchestrator {
	if opts.WorkDir == "" {
		opts.WorkDir = "downloads"
	}
	return &Orchestrator{bot: bot, ext: ext, store: st, relay: relay, activity: activity, opts: opts}
}

// JobDir is the private working directory of a job.
func (o *Orchestrator) JobDir(jobID string) string {
	return filepath.Join(o.opts.WorkDir, "jobs", jobID)
}

// attempt carries the state of one Run.
type attempt struct {
	o        *Orchestrator
	ctx      context.Context
	lg       zerolog.Logger
	req      Request
	job      *jobs.Job
	user     store.UserRecord
	progress int // id of the progress message, 0 until sent
}

// Run drives a job to a terminal stage. It never returns an error: every
// failure is reported to the user and, past validation, to the operator.
func (o *Orchestrator) Run(ctx context.Context, req Request) (res Result) {
	job := jobs.New(req.JobID)
	ctx = logx.WithUser(logx.WithJob(ctx, job.ID), req.Profile.ID)
	a := &attempt{o: o, ctx: ctx, lg: logx.FromCtx(ctx), req: req, job: job}
	dir := o.JobDir(job.ID)

	var kind FailureKind
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			a.lg.Error().Err(err).Str("dir", dir).Msg("cleanup failed")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			a.lg.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("download job panicked")
			kind = a.unhandled(fmt.Errorf("%v", r))
		}
		res = Result{Job: *a.job, Kind: kind}
		a.lg.Info().
			Str("stage", a.job.Stage.String()).
			Str("kind", kind.String()).
			Str("reason", a.job.Reason).
			Dur("took", a.job.Elapsed()).
			Msg("job finished")
	}()

	kind = a.run(dir)
	return res
}

func (a *attempt) run(dir string) FailureKind {
	o := a.o
	a.touch()
	o.activity.Record(a.user.ID, a.user.Username, logx.ActionSendLink, "Telegram", "Link: "+truncate(a.req.Text, 50))

	url := platform.ExtractURL(a.req.Text)
	if url == "" {
		a.reply(invalidFormatText())
		a.job.Fail("invalid format")
		return InvalidInput
	}
	a.job.URL = url
	a.job.Platform = platform.Classify(url)
	a.advance(jobs.Classified)

	o.relay.Notify(a.ctx, attemptNote(a.user, url), a.userContext())

	msg := tgbotapi.NewMessage(a.req.ChatID, processingText)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := o.bot.Send(msg)
	if err != nil {
		return a.unhandled(fmt.Errorf("send progress message: %w", err))
	}
	a.progress = sent.MessageID

	meta, err := o.ext.FetchInfo(a.ctx, url)
	if err != nil {
		a.lg.Warn().Err(err).Msg("no video info")
		a.edit(noInfoText)
		return a.fail(ExtractionFailure, "no info")
	}
	a.job.Title = meta.Title
	a.job.Duration = meta.Duration
	a.advance(jobs.InfoFetched)

	a.edit(detectedText(meta))
	o.relay.Notify(a.ctx, detectedNote(a.user, meta), a.userContext())

	a.advance(jobs.Downloading)
	art, err := o.ext.Download(a.ctx, url, dir, meta)
	if err != nil {
		reason := a.reason(err)
		a.lg.Warn().Err(err).Msg("download failed")
		a.edit(downloadFailedText(reason))
		o.relay.Notify(a.ctx, downloadFailedNote(a.user, a.job, reason), a.userContext())
		return a.fail(DownloadFailure, reason)
	}

	art, err = extractor.Resolve(dir, art)
	if errors.Is(err, extractor.ErrArtifactMissing) {
		a.lg.Error().Str("dir", dir).Msg("artifact missing after download")
		a.edit(missingText)
		o.relay.Notify(a.ctx, missingNote(a.user, a.job), a.userContext())
		return a.fail(ArtifactMissing, extractor.ErrArtifactMissing.Error())
	}
	if err != nil {
		return a.unhandled(err)
	}
	if art.Recovered {
		a.lg.Warn().Str("path", art.Path).Msg("artifact recovered by directory scan")
	}
	a.job.Path = art.Path
	a.job.Size = art.Size
	a.advance(jobs.Downloaded)

	a.edit(uploadingText(art.Size))
	a.advance(jobs.Uploading)
	v := tgbotapi.NewVideo(a.req.ChatID, tgbotapi.FilePath(art.Path))
	v.Caption = caption(a.job, o.opts.Ads)
	v.ParseMode = tgbotapi.ModeMarkdown
	v.SupportsStreaming = true
	v.Duration = int(meta.Duration.Seconds())
	if art.Thumbnail != "" {
		v.Thumb = tgbotapi.FilePath(art.Thumbnail)
	}
	if _, err := o.bot.Send(v); err != nil {
		return a.unhandled(fmt.Errorf("upload video: %w", err))
	}
	a.advance(jobs.Uploaded)

	if u, err := o.store.RecordDownload(a.ctx, a.user.ID); err != nil {
		a.lg.Error().Err(err).Msg("record download")
		a.user.Downloads++
	} else {
		a.user = u
	}
	if _, err := o.bot.Request(tgbotapi.NewDeleteMessage(a.req.ChatID, a.progress)); err != nil {
		a.lg.Debug().Err(err).Msg("delete progress message")
	}
	o.relay.Notify(a.ctx, successNote(a.user, a.job, art.Recovered), a.userContext())
	o.activity.Record(a.user.ID, a.user.Username, logx.ActionDownloadSuccess, a.job.Platform.Title(), truncate(a.job.Title, titleOperatorLen))

	done := tgbotapi.NewMessage(a.req.ChatID, menuText)
	done.ParseMode = tgbotapi.ModeMarkdown
	done.ReplyMarkup = o.opts.Menu.keyboard()
	if _, err := o.bot.Send(done); err != nil {
		a.lg.Warn().Err(err).Msg("send menu")
	}
	a.advance(jobs.Completed)
	return None
}

func (a *attempt) touch() {
	u, err := a.o.store.Touch(a.ctx, a.req.Profile)
	if err != nil {
		a.lg.Error().Err(err).Msg("touch user")
		p := a.req.Profile
		u = store.UserRecord{ID: p.ID, Username: p.Username, Name: p.FullName(), Language: p.Language}
	}
	a.user = u
}

func (a *attempt) userContext() *notify.UserContext { return notify.FromRecord(a.user) }

func (a *attempt) advance(to jobs.Stage) {
	if err := a.job.Advance(to); err != nil {
		a.lg.Error().Err(err).Msg("stage transition")
		return
	}
	a.lg.Debug().Str("stage", to.String()).Msg("stage")
}

func (a *attempt) fail(kind FailureKind, reason string) FailureKind {
	a.job.Fail(reason)
	a.o.activity.Record(a.user.ID, a.user.Username, logx.ActionDownloadFailed, a.job.Platform.Title(), reason)
	return kind
}

// unhandled reports an unexpected error to both the user and the operator.
func (a *attempt) unhandled(err error) FailureKind {
	if a.job.Stage.Terminal() {
		return Unhandled
	}
	a.lg.Error().Err(err).Str("stage", a.job.Stage.String()).Msg("download job error")
	reason := a.reason(err)
	a.edit(unhandledText(reason))
	a.o.relay.Notify(a.ctx, unhandledNote(a.user, a.req.Text, reason), a.userContext())
	return a.fail(Unhandled, truncate(reason, errOperatorLen))
}

// reason is the error text safe to put in a chat.
func (a *attempt) reason(err error) string {
	return logx.Scrub(err.Error(), a.o.opts.Secrets...)
}

func (a *attempt) reply(text string) {
	m := tgbotapi.NewMessage(a.req.ChatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	if a.req.MessageID != 0 {
		m.ReplyToMessageID = a.req.MessageID
	}
	if _, err := a.o.bot.Send(m); err != nil {
		a.lg.Warn().Err(err).Msg("send reply")
	}
}

// edit updates the progress message, or replies when there is none yet.
func (a *attempt) edit(text string) {
	if a.progress == 0 {
		a.reply(text)
		return
	}
	e := tgbotapi.NewEditMessageText(a.req.ChatID, a.progress, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	if _, err := a.o.bot.Request(e); err != nil {
		a.lg.Warn().Err(err).Msg("edit progress message")
	}
}
