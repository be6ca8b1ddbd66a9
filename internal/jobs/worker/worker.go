package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	"github.com/yungbote/kpi-visual-backend/internal/jobs/runtime"
	"github.com/yungbote/kpi-visual-backend/internal/observability"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
}

type Worker struct {
	log      *logger.Logger
	repo     repos.UploadTaskRepo
	registry *runtime.Registry
	cfg      Config
	wake     chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo repos.UploadTaskRepo, registry *runtime.Registry, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		log:      baseLog.With("component", "TaskWorker"),
		repo:     repo,
		registry: registry,
		cfg:      cfg,
		wake:     make(chan struct{}, 1),
	}
}

// Notify wakes one idle worker instead of waiting for the next poll tick.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting task worker pool", "concurrency", w.cfg.Concurrency, "poll", w.cfg.PollInterval.String())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has returned after ctx is canceled.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
		case <-w.wake:
		}
		// drain the queue before going back to sleep
		for w.RunOnce(ctx, workerID) {
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// RunOnce claims and executes at most one task. It reports whether a task was claimed.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	task, err := w.repo.ClaimNextQueued(dbctx.Context{Ctx: ctx})
	if err != nil {
		w.log.Warn("ClaimNextQueued failed", "worker_id", workerID, "error", err)
		return false
	}
	if task == nil {
		return false
	}

	spanCtx, span := observability.StartSpan(ctx, "task.run",
		attribute.String("task_id", task.TaskID),
		attribute.String("job_type", task.JobType),
	)
	defer span.End()

	jc := runtime.NewContext(spanCtx, task, w.repo, w.log.With("worker_id", workerID))
	h, ok := w.registry.Get(task.JobType)
	if !ok {
		jc.Log.Warn("No handler registered for job_type", "job_type", task.JobType)
		jc.Fail(&missingHandlerError{JobType: task.JobType})
		return true
	}

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				jc.Log.Error("Task handler panic", "job_type", task.JobType, "panic", r)
				jc.Fail(errFromRecover(r))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			// handlers usually fail the task themselves; this is the safety net
			if !task.Terminal() {
				jc.Fail(runErr)
			}
			jc.Log.Warn("Task failed", "error", runErr, "duration_ms", time.Since(start).Milliseconds())
			return
		}
		jc.Log.Info("Task finished", "status", task.Status, "duration_ms", time.Since(start).Milliseconds())
	}()
	return true
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
