package orchestrator

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wapuda/rei-assistant/internal/extractor"
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/platform"
	"github.com/wapuda/rei-assistant/internal/store"
)

// CallbackDownloadAnother is the post-completion menu button.
const CallbackDownloadAnother = "download_another"

func invalidFormatText() string {
	var b strings.Builder
	b.WriteString("❌ *Invalid format!*\n\nPlease send a valid video link from:\n")
	for _, p := range platform.Known() {
		b.WriteString("• " + p.Title() + "\n")
	}
	b.WriteString("\nExample: `https://youtube.com/watch?v=...`")
	return b.String()
}

const (
	processingText = "⏳ *Rei Assistant is processing...*\n🔍 Detecting video platform..."
	noInfoText     = "❌ *Could not get video info!*\nMake sure the link is valid and the video is available."
	missingText    = "❌ *Video file not found after download!*"
	menuText       = "🎉 *Download successful!*\n\nWant another video?\nJust send a new link!"
)

func attemptNote(u store.UserRecord, url string) string {
	return fmt.Sprintf("📥 *DOWNLOAD ATTEMPT DETECTED*\n*User:* %s\n*Link:* `%s`\n*Previous Downloads:* %d",
		md(u.Handle()), code(truncate(url, linkLen)), u.Downloads)
}

func detectedText(m extractor.Metadata) string {
	return fmt.Sprintf("✅ *Platform detected:* %s\n📹 *Title:* %s\n⏱️ *Duration:* %d seconds\n⬇️ *Downloading video...*",
		m.Platform.Title(), md(truncate(m.Title, titleProgressLen)), int(m.Duration.Seconds()))
}

func detectedNote(u store.UserRecord, m extractor.Metadata) string {
	return fmt.Sprintf("🌐 *PLATFORM DETECTED*\n*Platform:* %s\n*User:* %s\n*Video:* %s",
		m.Platform.Title(), md(u.Handle()), md(truncate(m.Title, titleOperatorLen)))
}

func downloadFailedText(reason string) string {
	return "❌ *Download failed!*\n\nError: " + md(truncate(reason, errUserLen))
}

func downloadFailedNote(u store.UserRecord, j *jobs.Job, reason string) string {
	return fmt.Sprintf("❌ *DOWNLOAD FAILED*\n*User:* %s\n*Platform:* %s\n*Error:* %s\n*Link:* `%s`",
		md(u.Handle()), j.Platform.Title(), md(truncate(reason, errOperatorLen)), code(truncate(j.URL, linkLen)))
}

func missingNote(u store.UserRecord, j *jobs.Job) string {
	return fmt.Sprintf("⚠️ *FILE NOT FOUND POST-DOWNLOAD*\n*User:* %s\n*Platform:* %s\n*Video:* %s\n*Link:* `%s`",
		md(u.Handle()), j.Platform.Title(), md(truncate(j.Title, titleOperatorLen)), code(truncate(j.URL, linkLen)))
}

func uploadingText(size int64) string {
	return fmt.Sprintf("✅ *Download complete!*\n📁 *File size:* %s\n📤 *Uploading to Telegram...*", FileSize(size))
}

func caption(j *jobs.Job, ads string) string {
	s := fmt.Sprintf("✅ *REI ASSISTANT - DOWNLOAD COMPLETE*\n\n📹 *%s*\n🌐 *Platform:* %s\n💾 *Size:* %s",
		md(truncate(j.Title, titleCaptionLen)), j.Platform.Title(), FileSize(j.Size))
	if ads != "" {
		s += "\n\n" + ads
	}
	return s
}

func successNote(u store.UserRecord, j *jobs.Job, recovered bool) string {
	s := fmt.Sprintf("✅ *DOWNLOAD SUCCESS*\n*User:* %s\n*Platform:* %s\n*Video:* %s\n*Size:* %s\n*Total User Downloads:* %d\n*Link:* `%s`",
		md(u.Handle()), j.Platform.Title(), md(truncate(j.Title, titleOperatorLen)), FileSize(j.Size), u.Downloads, code(truncate(j.URL, linkLen)))
	if recovered {
		s += "\n*Note:* file recovered from job directory"
	}
	return s
}

func unhandledText(reason string) string {
	return "❌ *An error occurred!*\n\n" +
		"Rei Assistant ran into a problem while processing the video.\n" +
		"Please try again later or use a different link.\n\n" +
		"Error: `" + code(truncate(reason, errUserLen)) + "`"
}

func unhandledNote(u store.UserRecord, text, reason string) string {
	return fmt.Sprintf("🚨 *CRITICAL ERROR*\n*User:* %s\n*Error:* ```\n%s\n```\n*Link:* `%s`",
		md(u.Handle()), code(truncate(reason, errOperatorLen)), code(truncate(text, linkLen)))
}

// Menu holds the links shown after a successful download.
type Menu struct {
	RateURL    string
	ChannelURL string
	SupportURL string
}

func (m Menu) keyboard() tgbotapi.InlineKeyboardMarkup {
	first := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📥 Download another", CallbackDownloadAnother),
	)
	if m.RateURL != "" {
		first = append(first, tgbotapi.NewInlineKeyboardButtonURL("⭐ Rate Bot", m.RateURL))
	}
	rows := [][]tgbotapi.InlineKeyboardButton{first}
	var second []tgbotapi.InlineKeyboardButton
	if m.ChannelURL != "" {
		second = append(second, tgbotapi.NewInlineKeyboardButtonURL("👥 Join Channel", m.ChannelURL))
	}
	if m.SupportURL != "" {
		second = append(second, tgbotapi.NewInlineKeyboardButtonURL("💬 Support", m.SupportURL))
	}
	if len(second) > 0 {
		rows = append(rows, second)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
