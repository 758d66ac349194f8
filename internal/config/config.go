package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

const DefaultMaxFileSize = 50 * 1024 * 1024

type Config struct {
	BotToken string
	AdminID  int64

	MaxFileSize     int64
	DownloadTimeout time.Duration

	WelcomeMessage string
	HelpMessage    string
	AdsMessage     string

	ShareURL   string
	RateURL    string
	ChannelURL string
	SupportURL string

	WorkDir string

	Mode       string
	HTTPAddr   string
	WebhookURL string

	RedisAddr         string
	QueueDownloads    bool
	WorkerConcurrency int

	MaxConcurrentUpdates   int
	MaxConcurrentDownloads int
	BroadcastInterval      time.Duration
	BroadcastTTL           time.Duration

	YtdlpInstall bool
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return def
}

// Load reads the environment. Call godotenv.Load() first to pick up a .env file.
func Load() (Config, error) {
	adminID, err := parseAdminID(os.Getenv("ADMIN_ID"))
	if err != nil {
		return Config{}, err
	}
	c := Config{
		BotToken: strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		AdminID:  adminID,

		MaxFileSize:     int64(envInt("MAX_FILE_SIZE_MB", 50)) * 1024 * 1024,
		DownloadTimeout: time.Duration(envInt("DOWNLOAD_TIMEOUT", 300)) * time.Second,

		WelcomeMessage: env("WELCOME_MESSAGE", DefaultWelcome),
		HelpMessage:    env("HELP_MESSAGE", DefaultHelp),
		AdsMessage:     env("ADS_MESSAGE", DefaultAds),

		ShareURL:   env("SHARE_URL", "https://t.me/share/url?url=https://youtube.com"),
		RateURL:    env("RATE_URL", "https://t.me/bots"),
		ChannelURL: env("CHANNEL_URL", "https://t.me/your_channel"),
		SupportURL: env("SUPPORT_URL", "https://t.me/your_support"),

		WorkDir: env("WORK_DIR", "downloads"),

		Mode:       strings.ToLower(env("MODE", ModePolling)),
		HTTPAddr:   env("HTTP_ADDR", ":8080"),
		WebhookURL: strings.TrimRight(os.Getenv("WEBHOOK_URL"), "/"),

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		QueueDownloads:    envBool("QUEUE_DOWNLOADS", false),
		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 2),

		MaxConcurrentUpdates:   envInt("MAX_CONCURRENT_UPDATES", 16),
		MaxConcurrentDownloads: envInt("MAX_CONCURRENT_DOWNLOADS", 4),
		BroadcastInterval:      time.Duration(envInt("BROADCAST_INTERVAL_MS", 100)) * time.Millisecond,
		BroadcastTTL:           time.Duration(envInt("BROADCAST_TTL_MIN", 60)) * time.Minute,

		YtdlpInstall: envBool("YTDLP_INSTALL", false),
	}
	return c, c.Validate()
}

func parseAdminID(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New("ADMIN_ID must be a numeric Telegram user id")
	}
	return id, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.AdminID == 0 {
		errs = append(errs, errors.New("ADMIN_ID is required"))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE_MB must be positive"))
	}
	if c.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("DOWNLOAD_TIMEOUT must be positive"))
	}
	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("WEBHOOK_URL is required in webhook mode"))
		}
	default:
		errs = append(errs, errors.New("MODE must be polling or webhook"))
	}
	if c.QueueDownloads && c.RedisAddr == "" {
		errs = append(errs, errors.New("QUEUE_DOWNLOADS needs REDIS_ADDR"))
	}
	if c.MaxConcurrentUpdates < 1 {
		errs = append(errs, errors.New("MAX_CONCURRENT_UPDATES must be at least 1"))
	}
	if c.MaxConcurrentDownloads < 1 {
		errs = append(errs, errors.New("MAX_CONCURRENT_DOWNLOADS must be at least 1"))
	}
	return errors.Join(errs...)
}

// MaxFileSizeMB is the ceiling as shown to users.
func (c Config) MaxFileSizeMB() int64 { return c.MaxFileSize / (1024 * 1024) }
