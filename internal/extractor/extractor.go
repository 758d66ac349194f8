// Package extractor wraps the external media extractor (yt-dlp). It fetches
// metadata without downloading, performs size-capped downloads into a
// per-job directory and recovers the produced file when the extractor's
// final filename could not be predicted.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wapuda/rei-assistant/internal/platform"
)

var (
	ErrTooLarge        = errors.New("file too large")
	ErrNoInfo          = errors.New("no video info")
	ErrArtifactMissing = errors.New("file not found post-download")
)

// Metadata describes a video before it is downloaded.
type Metadata struct {
	Title      string
	Duration   time.Duration
	Platform   platform.Tag
	Thumbnail  string // remote URL, informational
	Size       int64  // exact size reported by the extractor, 0 = unknown
	SizeApprox int64  // estimate, 0 = unknown
}

// ExpectedSize is the best known size, exact before approximate.
func (m Metadata) ExpectedSize() int64 {
	if m.Size > 0 {
		return m.Size
	}
	return m.SizeApprox
}

// Artifact is a downloaded file on local storage.
type Artifact struct {
	Path      string
	Size      int64
	Thumbnail string // local .jpg next to the video, "" if none
	// Recovered is set when Path came from the directory scan rather than
	// from the extractor's report.
	Recovered bool
}

// Info is what a Runner learns from a metadata probe.
type Info struct {
	Title          string
	Duration       float64
	Thumbnail      string
	Filesize       int64
	FilesizeApprox int64
	Filename       string
}

// FetchRequest is one download performed by a Runner.
type FetchRequest struct {
	URL     string
	Dir     string
	MaxSize int64
}

// Runner drives the extractor binary.
type Runner interface {
	Probe(ctx context.Context, url string) (Info, error)
	// Fetch downloads into req.Dir and returns the path the extractor
	// reported for the final file, or "" when it did not report one.
	Fetch(ctx context.Context, req FetchRequest) (string, error)
}

type Adapter struct {
	runner  Runner
	maxSize int64
	timeout time.Duration
}

func New(r Runner, maxSize int64, timeout time.Duration) *Adapter {
	return &Adapter{runner: r, maxSize: maxSize, timeout: timeout}
}

// FetchInfo never downloads. Every failure mode is reported as one error
// wrapping ErrNoInfo with a readable reason.
func (a *Adapter) FetchInfo(ctx context.Context, url string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	info, err := a.runner.Probe(ctx, url)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrNoInfo, err)
	}
	title := info.Title
	if title == "" {
		title = "Unknown"
	}
	return Metadata{
		Title:      title,
		Duration:   time.Duration(info.Duration * float64(time.Second)),
		Platform:   platform.Classify(url),
		Thumbnail:  info.Thumbnail,
		Size:       info.Filesize,
		SizeApprox: info.FilesizeApprox,
	}, nil
}

// Download rejects media whose known size exceeds the ceiling before any
// transfer starts. The returned artifact path is the extractor's report, or
// the name derived from the title; callers pass it through Resolve.
func (a *Adapter) Download(ctx context.Context, url, dir string, meta Metadata) (Artifact, error) {
	if meta.Size > a.maxSize {
		return Artifact{}, fmt.Errorf("%w (>%dMB)", ErrTooLarge, a.maxSize/(1024*1024))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("prepare work dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	path, err := a.runner.Fetch(ctx, FetchRequest{URL: url, Dir: dir, MaxSize: a.maxSize})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Artifact{}, fmt.Errorf("download timed out after %s", a.timeout)
		}
		return Artifact{}, err
	}
	if path == "" {
		path = filepath.Join(dir, SanitizeFilename(meta.Title)+".mp4")
	}
	return Artifact{Path: path}, nil
}
