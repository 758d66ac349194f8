package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskDownload = "download:run"
)

type Sender struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Language  string `json:"language,omitempty"`
}

type DownloadPayload struct {
	JobID     string `json:"job_id"`
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"` // message the link arrived in
	From      Sender `json:"from"`
	Text      string `json:"text"`
}

// NewDownloadTask builds a download task. Failed downloads are reported to
// the user, never retried.
func NewDownloadTask(p DownloadPayload, timeout time.Duration) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.TaskID(p.JobID)}
	if timeout > 0 {
		// headroom for info fetch and upload around the extractor timeout
		opts = append(opts, asynq.Timeout(2*timeout+time.Minute))
	}
	return asynq.NewTask(TaskDownload, b, opts...), nil
}

func ParseDownloadTask(t *asynq.Task) (DownloadPayload, error) {
	var p DownloadPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", TaskDownload, err)
	}
	if p.ChatID == 0 || p.Text == "" {
		return p, fmt.Errorf("%s payload missing chat or text", TaskDownload)
	}
	return p, nil
}
