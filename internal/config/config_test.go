package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:ABC")
	t.Setenv("ADMIN_ID", "7291292815")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(7291292815), c.AdminID)
	assert.Equal(t, int64(DefaultMaxFileSize), c.MaxFileSize)
	assert.Equal(t, int64(50), c.MaxFileSizeMB())
	assert.Equal(t, 300*time.Second, c.DownloadTimeout)
	assert.Equal(t, ModePolling, c.Mode)
	assert.Equal(t, 100*time.Millisecond, c.BroadcastInterval)
	assert.Equal(t, DefaultWelcome, c.WelcomeMessage)
	assert.False(t, c.QueueDownloads)
	assert.Equal(t, 16, c.MaxConcurrentUpdates)
	assert.Equal(t, 4, c.MaxConcurrentDownloads)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:ABC")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("MAX_FILE_SIZE_MB", "20")
	t.Setenv("DOWNLOAD_TIMEOUT", "60")
	t.Setenv("MODE", "WEBHOOK")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com/")
	t.Setenv("ADS_MESSAGE", "buy stuff")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(20*1024*1024), c.MaxFileSize)
	assert.Equal(t, time.Minute, c.DownloadTimeout)
	assert.Equal(t, ModeWebhook, c.Mode)
	assert.Equal(t, "https://bot.example.com", c.WebhookURL)
	assert.Equal(t, "buy stuff", c.AdsMessage)
}

func TestLoadRejectsBadAdminID(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:ABC")
	t.Setenv("ADMIN_ID", "@admin")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Config{
		Mode:           ModeWebhook,
		QueueDownloads: true,
	}
	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"BOT_TOKEN", "ADMIN_ID", "MAX_FILE_SIZE_MB", "DOWNLOAD_TIMEOUT", "WEBHOOK_URL", "REDIS_ADDR", "MAX_CONCURRENT_UPDATES", "MAX_CONCURRENT_DOWNLOADS"} {
		assert.Contains(t, err.Error(), want)
	}
}
