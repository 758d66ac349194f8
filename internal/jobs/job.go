package jobs

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wapuda/rei-assistant/internal/platform"
)

type Stage int

const (
	Validating Stage = iota
	Classified
	InfoFetched
	Downloading
	Downloaded
	Uploading
	Uploaded
	Completed
	Failed
)

var stageNames = [...]string{
	"validating", "classified", "info-fetched", "downloading", "downloaded",
	"uploading", "uploaded", "completed", "failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage) Terminal() bool { return s == Completed || s == Failed }

// Job is one download, from the moment a link arrives until the video is
// delivered or the attempt fails.
type Job struct {
	ID       string
	URL      string
	Platform platform.Tag
	Title    string
	Duration time.Duration
	Path     string
	Size     int64
	Stage    Stage
	Reason   string // set when Stage is Failed
	Started  time.Time
}

func NewID() string { return ulid.Make().String() }

func New(id string) *Job {
	if id == "" {
		id = NewID()
	}
	return &Job{ID: id, Stage: Validating, Started: time.Now()}
}

// Advance moves the job forward. Moving backwards, staying put or leaving a
// terminal stage is an error.
func (j *Job) Advance(to Stage) error {
	if j.Stage.Terminal() {
		return fmt.Errorf("job %s already %s", j.ID, j.Stage)
	}
	if to == Failed {
		return fmt.Errorf("job %s: use Fail", j.ID)
	}
	if to <= j.Stage {
		return fmt.Errorf("job %s: cannot move from %s to %s", j.ID, j.Stage, to)
	}
	j.Stage = to
	return nil
}

// Fail ends the job from any non-terminal stage. It returns false when the
// job was already terminal.
func (j *Job) Fail(reason string) bool {
	if j.Stage.Terminal() {
		return false
	}
	j.Stage = Failed
	j.Reason = reason
	return true
}

func (j *Job) Elapsed() time.Duration { return time.Since(j.Started) }
