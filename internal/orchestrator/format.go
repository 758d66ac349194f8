package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	titleProgressLen = 60
	titleOperatorLen = 50
	titleCaptionLen  = 200
	linkLen          = 30
	errUserLen       = 100
	errOperatorLen   = 200
)

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// md escapes user-controlled text for legacy Markdown.
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// code makes s safe inside a `code` or ``` span.
func code(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

// FileSize renders bytes the way users read them, e.g. "12.34 MB".
func FileSize(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024 {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.2f TB", v)
}
