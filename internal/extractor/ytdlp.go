package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wapuda/rei-assistant/internal/logx"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var (
	ytdlpErrorRe   = regexp.MustCompile(`(?m)^ERROR:\s*(.+)$`)
	maxFilesizeMsg = "larger than max-filesize"
)

// YtdlpRunner runs yt-dlp through go-ytdlp.
type YtdlpRunner struct{}

// Install fetches a yt-dlp binary into the go-ytdlp cache when none is on PATH.
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

func (YtdlpRunner) Probe(ctx context.Context, url string) (Info, error) {
	res, err := ytdlp.New().
		SkipDownload().
		DumpJSON().
		NoPlaylist().
		NoWarnings().
		AddHeaders("User-Agent:"+userAgent).
		Run(ctx, url)
	if err != nil {
		return Info{}, describe(res, err)
	}
	return parseInfoJSON(res.Stdout)
}

func (YtdlpRunner) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	mb := req.MaxSize / (1024 * 1024)
	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		ForceOverwrites().
		RestrictFilenames().
		AddHeaders("User-Agent:"+userAgent).
		Format(fmt.Sprintf("best[filesize<%dM]/best[filesize_approx<%dM]/best", mb, mb)).
		MaxFileSize(strconv.FormatInt(req.MaxSize, 10)).
		DumpJSON().
		NoSimulate().
		WriteThumbnail().
		Output(filepath.Join(req.Dir, "%(title).80s.%(ext)s"))
	if f := thumbnailFormat(exec.LookPath); f != "" {
		dl.ConvertThumbnails(f)
	}

	lg := log.With().Str("comp", "ytdlp").Str("dir", req.Dir).Logger()
	dl.ProgressFunc(2*time.Second, func(u ytdlp.ProgressUpdate) {
		if u.TotalBytes > 0 {
			pct := float64(u.DownloadedBytes) / float64(u.TotalBytes) * 100
			lg.Debug().Float64("pct", pct).Msg("progress")
		}
	})

	res, err := dl.Run(ctx, req.URL)
	if res != nil {
		logx.NewLineWriter(map[string]string{"comp": "ytdlp", "dir": req.Dir}, zerolog.DebugLevel).PipeString(res.Stderr)
	}
	if err != nil {
		return "", describe(res, err)
	}
	if strings.Contains(res.Stdout, maxFilesizeMsg) || strings.Contains(res.Stderr, maxFilesizeMsg) {
		return "", fmt.Errorf("%w (>%dMB)", ErrTooLarge, mb)
	}

	info, err := parseInfoJSON(res.Stdout)
	if err != nil {
		lg.Warn().Err(err).Msg("no info json after download")
		return "", nil
	}
	// -j keeps yt-dlp quiet, so an aborted oversized transfer only shows as
	// a missing file next to a size above the ceiling.
	if abortedTooLarge(info, req.MaxSize) {
		return "", fmt.Errorf("%w (>%dMB)", ErrTooLarge, mb)
	}
	return info.Filename, nil
}

func abortedTooLarge(info Info, maxSize int64) bool {
	size := info.Filesize
	if size == 0 {
		size = info.FilesizeApprox
	}
	if maxSize <= 0 || size <= maxSize {
		return false
	}
	if info.Filename == "" {
		return true
	}
	_, err := os.Stat(info.Filename)
	return err != nil
}

// thumbnailFormat is the format thumbnails are converted to, or "" to keep
// yt-dlp's own (usually webp). Telegram only takes JPEG and converting
// needs ffmpeg.
func thumbnailFormat(lookPath func(string) (string, error)) string {
	if _, err := lookPath("ffmpeg"); err != nil {
		return ""
	}
	return "jpg"
}

// describe turns a failed run into the extractor's own error line when it
// printed one.
func describe(res *ytdlp.Result, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if res != nil {
		if m := ytdlpErrorRe.FindStringSubmatch(res.Stderr); len(m) > 1 {
			return errors.New(strings.TrimSpace(m[1]))
		}
	}
	return err
}

type infoJSON struct {
	Title          string   `json:"title"`
	Duration       float64  `json:"duration"`
	Thumbnail      string   `json:"thumbnail"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	Filename       string   `json:"_filename"`

	// set once a download has finished
	Filepath           string `json:"filepath"`
	RequestedDownloads []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

// committedPath prefers the path yt-dlp wrote over the one it planned.
func (j infoJSON) committedPath() string {
	if j.Filepath != "" {
		return j.Filepath
	}
	for _, d := range j.RequestedDownloads {
		if d.Filepath != "" {
			return d.Filepath
		}
	}
	return j.Filename
}

// parseInfoJSON reads the last JSON object line of a --dump-json run, with
// or without --no-simulate.
func parseInfoJSON(out string) (Info, error) {
	var last string
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "{") {
			last = line
		}
	}
	if last == "" {
		return Info{}, errors.New("extractor returned no metadata")
	}
	var j infoJSON
	if err := json.Unmarshal([]byte(last), &j); err != nil {
		return Info{}, fmt.Errorf("decode metadata: %w", err)
	}
	info := Info{
		Title:     j.Title,
		Duration:  j.Duration,
		Thumbnail: j.Thumbnail,
		Filename:  j.committedPath(),
	}
	if j.Filesize != nil {
		info.Filesize = *j.Filesize
	}
	if j.FilesizeApprox != nil {
		info.FilesizeApprox = int64(*j.FilesizeApprox)
	}
	return info, nil
}
