package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/platform/ctxutil"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

/*
Context is the execution handle for one claimed upload task.
Handlers never write upload_task directly; every status, progress and per-file
transition goes through these methods, and each one commits on its own so a
poller sees it immediately.
*/
type Context struct {
	Ctx  context.Context
	Task *types.UploadTask
	Repo repos.UploadTaskRepo
	Log  *logger.Logger
}

// NewContext restores the trace ids recorded at enqueue time so worker logs
// correlate with the upload request.
func NewContext(ctx context.Context, task *types.UploadTask, repo repos.UploadTaskRepo, baseLog *logger.Logger) *Context {
	c := &Context{Ctx: ctx, Task: task, Repo: repo}
	if task != nil && len(task.Payload) > 0 {
		var p domaintasks.Payload
		if err := json.Unmarshal(task.Payload, &p); err == nil && (p.TraceID != "" || p.RequestID != "") {
			c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: p.TraceID, RequestID: p.RequestID})
		}
	}
	kv := []interface{}{"task_id", c.taskID()}
	kv = append(kv, ctxutil.LogFields(c.Ctx)...)
	c.Log = baseLog.With(kv...)
	return c
}

func (c *Context) taskID() string {
	if c.Task == nil {
		return ""
	}
	return c.Task.TaskID
}

// update writes on a context detached from cancellation: a worker stopping
// mid-task must still record where the task ended up.
func (c *Context) update(updates map[string]interface{}) error {
	if c.Repo == nil || c.Task == nil {
		return nil
	}
	writeCtx := context.WithoutCancel(c.Ctx)
	err := c.Repo.UpdateFields(dbctx.Context{Ctx: writeCtx}, c.Task.TaskID, updates)
	if err != nil {
		c.Log.Error("Task update failed", "error", err)
	}
	return err
}

// Progress records overall completion in percent.
func (c *Context) Progress(pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if err := c.update(map[string]interface{}{"progress": pct}); err != nil {
		return err
	}
	if c.Task != nil {
		c.Task.Progress = pct
	}
	return nil
}

// FileStatus moves one file slot to a sub-status. rows is recorded when non-nil.
func (c *Context) FileStatus(ft domaintasks.FileType, status string, rows *int) error {
	updates := map[string]interface{}{domaintasks.StatusColumn(ft): status}
	if rows != nil {
		updates[domaintasks.RowsColumn(ft)] = *rows
	}
	if err := c.update(updates); err != nil {
		return err
	}
	if c.Task != nil {
		slot := c.Task.Slot(ft)
		if slot.Status != nil {
			*slot.Status = status
		}
		if rows != nil && slot.Rows != nil {
			*slot.Rows = *rows
		}
	}
	return nil
}

// Fail marks the task terminally failed with err's message.
func (c *Context) Fail(err error) {
	now := time.Now().UTC()
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	_ = c.update(map[string]interface{}{
		"status":        domaintasks.StatusFailed,
		"error_message": msg,
		"completed_at":  now,
	})
	if c.Task != nil {
		c.Task.Status = domaintasks.StatusFailed
		c.Task.ErrorMessage = &msg
		c.Task.CompletedAt = &now
	}
}

// Succeed marks the task completed at 100%.
func (c *Context) Succeed() error {
	now := time.Now().UTC()
	if err := c.update(map[string]interface{}{
		"status":       domaintasks.StatusCompleted,
		"progress":     100,
		"completed_at": now,
	}); err != nil {
		return err
	}
	if c.Task != nil {
		c.Task.Status = domaintasks.StatusCompleted
		c.Task.Progress = 100
		c.Task.CompletedAt = &now
	}
	return nil
}
