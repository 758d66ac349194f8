package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/rei-assistant/internal/app"
	"github.com/wapuda/rei-assistant/internal/bot"
	"github.com/wapuda/rei-assistant/internal/broadcast"
	"github.com/wapuda/rei-assistant/internal/config"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, cfgErr := config.Load()
	lc := logx.FromEnv("bot")
	lc.Secrets = []string{cfg.BotToken}
	logger := logx.Setup(lc)
	if cfgErr != nil {
		log.Fatal().Err(cfgErr).Msg("bad configuration")
	}
	log.Info().Str("mode", cfg.Mode).Msg("bot starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth")
	}
	api.Debug = false
	log.Info().Str("username", api.Self.UserName).Msg("bot authorized")

	st, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer closeStore()

	p := app.NewPipeline(ctx, cfg, lc, api, st)

	inline := bot.NewInline(p.Orchestrator, cfg.MaxConcurrentDownloads)
	var sub bot.Submitter = inline
	if cfg.QueueDownloads {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer client.Close()
		sub = bot.Queue{Client: client, Timeout: cfg.DownloadTimeout}
		log.Info().Msg("downloads are queued for the worker")
	}

	b := bot.New(cfg, bot.Deps{
		API:       api,
		Store:     st,
		Relay:     p.Relay,
		Activity:  p.Activity,
		Submitter: sub,
		Registry:  broadcast.NewRegistry(cfg.BroadcastTTL),
		Fanout:    broadcast.NewFanout(api, cfg.BroadcastInterval),
	})

	opts := server.Options{Logger: logger, Token: cfg.BotToken, Decoder: api}
	var webhookUpdates chan tgbotapi.Update
	if cfg.Mode == config.ModeWebhook {
		webhookUpdates = make(chan tgbotapi.Update, cfg.MaxConcurrentUpdates)
		opts.Updates = webhookUpdates
	}
	srv := server.New(cfg.HTTPAddr, server.NewRouter(opts))
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
		}
	}()

	b.Announce(ctx, api.Self.UserName)

	if cfg.Mode == config.ModeWebhook {
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL + "/" + cfg.BotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("webhook url")
		}
		if _, err := api.Request(wh); err != nil {
			log.Fatal().Err(err).Msg("set webhook")
		}
		log.Info().Str("url", cfg.WebhookURL).Msg("webhook registered")
		b.Run(ctx, webhookUpdates)
	} else {
		// Polling and a webhook cannot coexist on one token.
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn().Err(err).Msg("delete webhook")
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updates := api.GetUpdatesChan(u)
		go func() {
			<-ctx.Done()
			api.StopReceivingUpdates()
		}()
		b.Run(ctx, updates)
	}

	log.Info().Msg("shutting down")
	inline.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
