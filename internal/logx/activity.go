package logx

import (
	"io"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// User actions written to the activity log.
const (
	ActionStart           = "START_COMMAND"
	ActionSendLink        = "SEND_LINK"
	ActionDownloadSuccess = "DOWNLOAD_SUCCESS"
	ActionDownloadFailed  = "DOWNLOAD_FAILED"
	ActionBroadcast       = "BROADCAST"
)

const maxActivityDetails = 100

// Activity records one line per user action. It mirrors every record to the
// global logger at info level.
type Activity struct {
	logger zerolog.Logger
}

// NewActivity writes to w; pass a DailyWriter for the usual activity_YYYYMMDD.log.
func NewActivity(w io.Writer) *Activity {
	return &Activity{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// NewActivityFromConfig opens <c.Dir>/activity_YYYYMMDD.log, or discards when c.Dir is empty.
func NewActivityFromConfig(c Config) *Activity {
	if c.Dir == "" {
		return NewActivity(io.Discard)
	}
	var w io.Writer = NewDailyWriter(c.Dir, "activity", c)
	if len(c.Secrets) > 0 {
		w = Redact(w, c.Secrets...)
	}
	return NewActivity(w)
}

func (a *Activity) Record(userID int64, username, action, platform, details string) {
	if username == "" {
		username = "no_username"
	}
	if platform == "" {
		platform = "N/A"
	}
	if utf8.RuneCountInString(details) > maxActivityDetails {
		details = string([]rune(details)[:maxActivityDetails])
	}
	a.logger.Log().
		Int64("user_id", userID).
		Str("username", username).
		Str("action", action).
		Str("platform", platform).
		Str("details", details).
		Send()
	log.Info().
		Int64("user_id", userID).
		Str("action", action).
		Str("platform", platform).
		Msg("activity")
}
