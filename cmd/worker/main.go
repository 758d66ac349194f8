package main

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/rei-assistant/internal/app"
	"github.com/wapuda/rei-assistant/internal/config"
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/orchestrator"
)

func main() {
	_ = godotenv.Load()

	cfg, cfgErr := config.Load()
	lc := logx.FromEnv("worker")
	lc.Secrets = []string{cfg.BotToken}
	logx.Setup(lc)
	if cfgErr != nil {
		log.Fatal().Err(cfgErr).Msg("bad configuration")
	}
	if cfg.RedisAddr == "" {
		log.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth")
	}

	ctx := context.Background()
	st, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer closeStore()

	p := app.NewPipeline(ctx, cfg, lc, api, st)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskDownload, func(ctx context.Context, t *asynq.Task) error {
		payload, err := jobs.ParseDownloadTask(t)
		if err != nil {
			// nothing to retry: the payload will never decode
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		res := p.Orchestrator.Run(ctx, orchestrator.RequestFromPayload(payload))
		log.Info().
			Str("job", res.Job.ID).
			Str("stage", res.Job.Stage.String()).
			Str("kind", res.Kind.String()).
			Msg("task done")
		return nil
	})

	log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
