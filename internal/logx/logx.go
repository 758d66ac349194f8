package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config via env or code
type Config struct {
	Service        string   // "bot" or "worker"
	Level          string   // debug|info|warn|error
	Format         string   // json|console
	Dir            string   // daily files go to <Dir>/<Service>_YYYYMMDD.log ("" = disabled)
	FileMaxSizeMB  int      // rotate at ~MB within a day (default 50)
	FileMaxBackups int      // keep N old logs (default 7)
	FileMaxAgeDays int      // keep #days (default 14)
	FileCompress   bool     // gzip old logs (default true)
	SampleEveryN   int      // >0 enables BasicSampler (e.g., 10 = keep 1/10 logs)
	Secrets        []string // replaced with [REDACTED] before reaching any sink
}

type ctxKey string

const (
	CtxKeyJobID  ctxKey = "job_id"
	CtxKeyUserID ctxKey = "user_id"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
func getenvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

// Build config from environment with sane defaults.
func FromEnv(service string) Config {
	return Config{
		Service:        service,
		Level:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		Format:         strings.ToLower(getenv("LOG_FORMAT", "json")), // json|console
		Dir:            getenv("LOG_DIR", "logs"),
		FileMaxSizeMB:  getenvInt("LOG_FILE_MAX_SIZE", 50),
		FileMaxBackups: getenvInt("LOG_FILE_MAX_BACKUPS", 7),
		FileMaxAgeDays: getenvInt("LOG_FILE_MAX_AGE", 14),
		FileCompress:   getenvBool("LOG_FILE_COMPRESS", true),
		SampleEveryN:   getenvInt("LOG_SAMPLE_EVERY", 0),
	}
}

// Setup configures zerolog global `log` and returns the logger instance.
func Setup(c Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	// Writers: stdout (+ optional console formatting) and optional daily file
	var writers []io.Writer
	if c.Format == "console" {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		writers = append(writers, os.Stdout)
	}
	if c.Dir != "" {
		writers = append(writers, NewDailyWriter(c.Dir, c.Service, c))
	}
	var out io.Writer = io.MultiWriter(writers...)
	if len(c.Secrets) > 0 {
		out = Redact(out, c.Secrets...)
	}

	logger := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("svc", c.Service).
		Logger()

	// Optional global sampling
	if c.SampleEveryN > 0 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(c.SampleEveryN)})
	}

	log.Logger = logger
	return logger
}

// WithJob returns a context whose FromCtx logger carries the job id.
func WithJob(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, CtxKeyJobID, jobID)
}

// WithUser returns a context whose FromCtx logger carries the user id.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}

// FromCtx attaches standard fields (if present) to the global logger.
func FromCtx(ctx context.Context) zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return l
	}
	if v := ctx.Value(CtxKeyJobID); v != nil {
		l = l.With().Str("job", fmt.Sprint(v)).Logger()
	}
	if v := ctx.Value(CtxKeyUserID); v != nil {
		switch t := v.(type) {
		case int64:
			l = l.With().Int64("uid", t).Logger()
		case int:
			l = l.With().Int("uid", t).Logger()
		case string:
			l = l.With().Str("uid", t).Logger()
		default:
			l = l.With().Str("uid", fmt.Sprint(t)).Logger()
		}
	}
	return l
}
