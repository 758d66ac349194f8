package logx

import (
	"bytes"
	"io"
	"strings"
)

var redacted = []byte("[REDACTED]")

type redactWriter struct {
	w       io.Writer
	secrets [][]byte
}

// Redact wraps w so that every occurrence of a secret is replaced before the
// bytes reach w. Empty secrets are ignored.
func Redact(w io.Writer, secrets ...string) io.Writer {
	rw := &redactWriter{w: w}
	for _, s := range secrets {
		if s != "" {
			rw.secrets = append(rw.secrets, []byte(s))
		}
	}
	return rw
}

func (r *redactWriter) Write(p []byte) (int, error) {
	out := p
	for _, s := range r.secrets {
		if bytes.Contains(out, s) {
			out = bytes.ReplaceAll(out, s, redacted)
		}
	}
	if _, err := r.w.Write(out); err != nil {
		return 0, err
	}
	// callers (zerolog) treat n != len(p) as a short write
	return len(p), nil
}

// Scrub replaces every secret in s, for text that leaves through a channel
// other than a log writer.
func Scrub(s string, secrets ...string) string {
	for _, sec := range secrets {
		if sec != "" {
			s = strings.ReplaceAll(s, sec, string(redacted))
		}
	}
	return s
}
