package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/testutil"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/jobs/runtime"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

type panicHandler struct{}

func (panicHandler) Type() string              { return domaintasks.JobTypeETL }
func (panicHandler) Run(*runtime.Context) error { panic("boom") }

type okHandler struct{ ran chan string }

func (okHandler) Type() string { return domaintasks.JobTypeETL }
func (h okHandler) Run(jc *runtime.Context) error {
	h.ran <- jc.Task.TaskID
	return jc.Succeed()
}

func setup(t *testing.T, h runtime.Handler, taskIDs ...string) (*Worker, repos.UploadTaskRepo) {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	repo := repos.NewUploadTaskRepo(db, log)
	reg := runtime.NewRegistry()
	if h != nil {
		require.NoError(t, reg.Register(h))
	}
	for _, id := range taskIDs {
		_, err := repo.Create(dbctx.Context{Ctx: context.Background()}, &types.UploadTask{TaskID: id})
		require.NoError(t, err)
	}
	return NewWorker(log, repo, reg, Config{Concurrency: 2, PollInterval: time.Hour}), repo
}

func TestPanickingHandlerFailsTaskWithoutCrashing(t *testing.T) {
	w, repo := setup(t, panicHandler{}, "t1")
	require.True(t, w.RunOnce(context.Background(), 1))

	task, err := repo.GetByTaskID(dbctx.Context{Ctx: context.Background()}, "t1")
	require.NoError(t, err)
	assert.Equal(t, domaintasks.StatusFailed, task.Status)
	assert.Equal(t, "panic: boom", *task.ErrorMessage)
}

func TestMissingHandlerFailsTask(t *testing.T) {
	w, repo := setup(t, nil, "t1")
	require.True(t, w.RunOnce(context.Background(), 1))

	task, err := repo.GetByTaskID(dbctx.Context{Ctx: context.Background()}, "t1")
	require.NoError(t, err)
	assert.Equal(t, domaintasks.StatusFailed, task.Status)
	assert.Contains(t, *task.ErrorMessage, "no handler registered")
}

func TestNotifyWakesPool(t *testing.T) {
	ran := make(chan string, 2)
	w, repo := setup(t, okHandler{ran: ran}, "t1", "t2")
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	w.Notify()

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case id := <-ran:
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatal("tasks were not picked up after Notify")
		}
	}
	cancel()
	w.Wait()

	for _, id := range []string{"t1", "t2"} {
		task, err := repo.GetByTaskID(dbctx.Context{Ctx: context.Background()}, id)
		require.NoError(t, err)
		assert.Equal(t, domaintasks.StatusCompleted, task.Status)
	}
}
