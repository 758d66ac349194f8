package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactReplacesSecrets(t *testing.T) {
	var buf bytes.Buffer
	w := Redact(&buf, "123:ABC", "")

	n, err := w.Write([]byte(`{"msg":"calling https://api.telegram.org/bot123:ABC/getMe"}`))
	require.NoError(t, err)
	assert.Equal(t, len(`{"msg":"calling https://api.telegram.org/bot123:ABC/getMe"}`), n)
	assert.NotContains(t, buf.String(), "123:ABC")
	assert.Contains(t, buf.String(), "bot[REDACTED]/getMe")
}

func TestScrubString(t *testing.T) {
	got := Scrub(`Post "https://api.telegram.org/bot123:ABC/sendVideo": EOF`, "", "123:ABC")
	assert.Equal(t, `Post "https://api.telegram.org/bot[REDACTED]/sendVideo": EOF`, got)
	assert.Equal(t, "untouched", Scrub("untouched"))
}

func TestDailyWriterSwitchesFileOnDateChange(t *testing.T) {
	dir := t.TempDir()
	w := NewDailyWriter(dir, "activity", Config{FileMaxSizeMB: 1})
	defer w.Close()

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local)
	day2 := day1.Add(2 * time.Minute)

	w.now = func() time.Time { return day1 }
	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)

	w.now = func() time.Time { return day2 }
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	b1, err := os.ReadFile(filepath.Join(dir, "activity_20260301.log"))
	require.NoError(t, err)
	b2, err := os.ReadFile(filepath.Join(dir, "activity_20260302.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(b1))
	assert.Equal(t, "second\n", string(b2))
}

func TestActivityRecordTruncatesDetails(t *testing.T) {
	var buf bytes.Buffer
	a := NewActivity(&buf)

	a.Record(42, "", ActionSendLink, "", strings.Repeat("x", 250))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.EqualValues(t, 42, rec["user_id"])
	assert.Equal(t, "no_username", rec["username"])
	assert.Equal(t, ActionSendLink, rec["action"])
	assert.Equal(t, "N/A", rec["platform"])
	assert.Len(t, rec["details"], maxActivityDetails)
}

func TestActivityRecordKeepsRunesWhole(t *testing.T) {
	var buf bytes.Buffer
	a := NewActivity(&buf)

	a.Record(1, "u", ActionSendLink, "YouTube", "x"+strings.Repeat("🎬", 150))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	details := rec["details"].(string)
	assert.True(t, utf8.ValidString(details))
	assert.Equal(t, maxActivityDetails, utf8.RuneCountInString(details))
}

func TestFromCtxAddsJobAndUser(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	ctx := WithUser(WithJob(context.Background(), "01JOB"), 7)
	l := FromCtx(ctx)
	l.Info().Msg("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "01JOB", rec["job"])
	assert.EqualValues(t, 7, rec["uid"])
}

func TestLineWriterSkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	lw := NewLineWriter(map[string]string{"src": "yt-dlp"}, zerolog.WarnLevel)
	lw.PipeString("WARNING: one\n\n  \nWARNING: two\n")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"src":"yt-dlp"`)
	assert.Contains(t, lines[1], "WARNING: two")
}
