package logx

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DailyWriter appends to <dir>/<prefix>_YYYYMMDD.log and moves to a new file
// when the local date changes. Within a day lumberjack rotates by size.
type DailyWriter struct {
	dir    string
	prefix string
	c      Config
	now    func() time.Time

	mu  sync.Mutex
	day string
	lj  *lumberjack.Logger
}

func NewDailyWriter(dir, prefix string, c Config) *DailyWriter {
	return &DailyWriter{dir: dir, prefix: prefix, c: c, now: time.Now}
}

// Filename is the file that receives writes made at t.
func (w *DailyWriter) Filename(t time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.log", w.prefix, t.Format("20060102")))
}

func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := w.now()
	day := t.Format("20060102")
	if w.lj == nil || day != w.day {
		if w.lj != nil {
			_ = w.lj.Close()
		}
		w.lj = &lumberjack.Logger{
			Filename:   w.Filename(t),
			MaxSize:    w.c.FileMaxSizeMB,
			MaxBackups: w.c.FileMaxBackups,
			MaxAge:     w.c.FileMaxAgeDays,
			Compress:   w.c.FileCompress,
		}
		w.day = day
	}
	return w.lj.Write(p)
}

func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lj == nil {
		return nil
	}
	err := w.lj.Close()
	w.lj = nil
	return err
}
