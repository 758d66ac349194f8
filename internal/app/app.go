// Package app wires the pieces shared by cmd/bot and cmd/worker.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/rei-assistant/internal/config"
	"github.com/wapuda/rei-assistant/internal/extractor"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/notify"
	"github.com/wapuda/rei-assistant/internal/orchestrator"
	"github.com/wapuda/rei-assistant/internal/store"
)

// OpenStore returns the Redis store when REDIS_ADDR is set, memory otherwise.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("using in-memory user store")
		return store.NewMemory(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis user store")
	return store.NewRedis(rdb, "rei"), func() { _ = rdb.Close() }, nil
}

type Pipeline struct {
	Relay        *notify.Relay
	Activity     *logx.Activity
	Orchestrator *orchestrator.Orchestrator
}

// NewPipeline builds the download path on top of an authorized bot.
func NewPipeline(ctx context.Context, cfg config.Config, lc logx.Config, api *tgbotapi.BotAPI, st store.Store) Pipeline {
	if cfg.YtdlpInstall {
		if err := extractor.Install(ctx); err != nil {
			log.Error().Err(err).Msg("yt-dlp install failed")
		}
	}
	relay := notify.New(api, cfg.AdminID)
	if !relay.Enabled() {
		log.Warn().Msg("ADMIN_ID not set; operator notifications disabled")
	}
	activity := logx.NewActivityFromConfig(lc)
	ext := extractor.New(extractor.YtdlpRunner{}, cfg.MaxFileSize, cfg.DownloadTimeout)
	orch := orchestrator.New(api, ext, st, relay, activity, orchestrator.Options{
		WorkDir: cfg.WorkDir,
		Ads:     cfg.AdsMessage,
		Menu: orchestrator.Menu{
			RateURL:    cfg.RateURL,
			ChannelURL: cfg.ChannelURL,
			SupportURL: cfg.SupportURL,
		},
		Secrets: []string{cfg.BotToken},
	})
	return Pipeline{Relay: relay, Activity: activity, Orchestrator: orch}
}
