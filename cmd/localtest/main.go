package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/rei-assistant/internal/config"
	"github.com/wapuda/rei-assistant/internal/extractor"
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/orchestrator"
	"github.com/wapuda/rei-assistant/internal/platform"
)

// Runs the extractor against one link without Telegram.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/localtest <video-url> [out-dir]")
		return
	}
	_ = godotenv.Load()
	lc := logx.FromEnv("localtest")
	lc.Dir = ""
	lc.Format = "console"
	logx.Setup(lc)

	text := os.Args[1]
	out := "./out"
	if len(os.Args) > 2 {
		out = os.Args[2]
	}

	url := platform.ExtractURL(text)
	if url == "" {
		log.Fatal().Str("text", text).Msg("not a link")
	}

	maxSize := int64(config.DefaultMaxFileSize)
	timeout := 5 * time.Minute
	if cfg, err := config.Load(); err == nil {
		maxSize, timeout = cfg.MaxFileSize, cfg.DownloadTimeout
	}
	if os.Getenv("YTDLP_INSTALL") != "" {
		if err := extractor.Install(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("install yt-dlp")
		}
	}

	ext := extractor.New(extractor.YtdlpRunner{}, maxSize, timeout)
	ctx := context.Background()

	meta, err := ext.FetchInfo(ctx, url)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch info")
	}
	fmt.Printf("Platform: %s\nTitle:    %s\nDuration: %s\nSize:     %s\n",
		meta.Platform.Title(), meta.Title, meta.Duration, orchestrator.FileSize(meta.ExpectedSize()))

	dir := filepath.Join(out, jobs.NewID())
	art, err := ext.Download(ctx, url, dir, meta)
	if err != nil {
		log.Fatal().Err(err).Msg("download")
	}
	art, err = extractor.Resolve(dir, art)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve")
	}
	fmt.Printf("Saved:    %s (%s, recovered=%v)\n", art.Path, orchestrator.FileSize(art.Size), art.Recovered)
	if art.Thumbnail != "" {
		fmt.Printf("Thumb:    %s\n", art.Thumbnail)
	}
}
