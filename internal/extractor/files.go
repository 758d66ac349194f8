package extractor

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".avi":  true,
}

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename replaces characters that are invalid in file names and
// caps the length at 100 bytes.
func SanitizeFilename(name string) string {
	s := unsafeFilenameRe.ReplaceAllString(name, "_")
	s = strings.TrimSpace(s)
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "video"
	}
	return s
}

// Resolve checks that the artifact exists. When it does not, the job
// directory is scanned for the most recent file with a video extension and
// the result is flagged Recovered.
func Resolve(dir string, a Artifact) (Artifact, error) {
	if a.Path != "" {
		if st, err := os.Stat(a.Path); err == nil && !st.IsDir() {
			a.Size = st.Size()
			a.Thumbnail = FindThumbnail(dir)
			return a, nil
		}
	}
	p, size := newestVideo(dir)
	if p == "" {
		return Artifact{}, ErrArtifactMissing
	}
	return Artifact{Path: p, Size: size, Thumbnail: FindThumbnail(dir), Recovered: true}, nil
}

func newestVideo(dir string) (string, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0
	}
	type cand struct {
		path string
		size int64
		mod  int64
	}
	var cands []cand
	for _, e := range entries {
		if e.IsDir() || !videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		cands = append(cands, cand{filepath.Join(dir, e.Name()), info.Size(), info.ModTime().UnixNano()})
	}
	if len(cands) == 0 {
		return "", 0
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].mod > cands[j].mod })
	return cands[0].path, cands[0].size
}

// FindThumbnail returns a .jpg/.jpeg file in dir, or "".
func FindThumbnail(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			if !e.IsDir() {
				return filepath.Join(dir, e.Name())
			}
		}
	}
	return ""
}
