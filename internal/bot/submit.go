package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/semaphore"

	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/logx"
	"github.com/wapuda/rei-assistant/internal/orchestrator"
)

// Submitter hands a link to whatever runs downloads.
type Submitter interface {
	Submit(ctx context.Context, req orchestrator.Request) error
}

// JobRunner is satisfied by *orchestrator.Orchestrator.
type JobRunner interface {
	Run(ctx context.Context, req orchestrator.Request) orchestrator.Result
}

// Inline runs downloads in this process, in the background, at most n at
// once. Submit never waits for a download, so the update slot that carried
// the link is free for other users right away.
type Inline struct {
	runner JobRunner
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

func NewInline(r JobRunner, n int) *Inline {
	if n <= 0 {
		n = 1
	}
	return &Inline{runner: r, sem: semaphore.NewWeighted(int64(n))}
}

func (s *Inline) Submit(ctx context.Context, req orchestrator.Request) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			lg := logx.FromCtx(ctx)
			lg.Warn().Str("job", req.JobID).Msg("download dropped on shutdown")
			return
		}
		defer s.sem.Release(1)
		s.runner.Run(ctx, req)
	}()
	return nil
}

// Wait blocks until every submitted download has returned.
func (s *Inline) Wait() { s.wg.Wait() }

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue enqueues download tasks for cmd/worker.
type Queue struct {
	Client  Enqueuer
	Timeout time.Duration
}

func (q Queue) Submit(ctx context.Context, req orchestrator.Request) error {
	task, err := jobs.NewDownloadTask(req.Payload(), q.Timeout)
	if err != nil {
		return err
	}
	if _, err := q.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobs.TaskDownload, err)
	}
	return nil
}
