package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos/testutil"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

func TestUploadTaskLifecycle(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewUploadTaskRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	task := &types.UploadTask{TaskID: "t-1"}
	task.SetFile(domaintasks.FileIfirRow, "uploads/t-1_ifir_row_a.xlsx")
	_, err := repo.Create(dbc, task)
	require.NoError(t, err)
	assert.Equal(t, domaintasks.StatusQueued, task.Status)

	got, err := repo.GetByTaskID(dbc, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []domaintasks.FileType{domaintasks.FileIfirRow}, got.PresentFiles())
	assert.Equal(t, domaintasks.FileStatusPending, *got.IfirRowStatus)

	missing, err := repo.GetByTaskID(dbc, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	claimed, err := repo.ClaimNextQueued(dbc)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "t-1", claimed.TaskID)
	assert.Equal(t, domaintasks.StatusProcessing, claimed.Status)
	assert.NotNil(t, claimed.StartedAt)

	again, err := repo.ClaimNextQueued(dbc)
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, repo.UpdateFields(dbc, "t-1", map[string]interface{}{"progress": 50}))
	got, err = repo.GetByTaskID(dbc, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress)
}

func TestClaimNextQueuedIsSingleWinner(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewUploadTaskRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.Create(dbc, &types.UploadTask{TaskID: id})
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := repo.ClaimNextQueued(dbc)
			if err != nil || task == nil {
				return
			}
			mu.Lock()
			seen[task.TaskID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 3)
	for id, n := range seen {
		assert.Equal(t, 1, n, "task %s claimed more than once", id)
	}
}

func TestFailStale(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewUploadTaskRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	_, err := repo.Create(dbc, &types.UploadTask{TaskID: "running", Status: domaintasks.StatusProcessing})
	require.NoError(t, err)
	_, err = repo.Create(dbc, &types.UploadTask{TaskID: "waiting"})
	require.NoError(t, err)

	n, err := repo.FailStale(dbc, "interrupted by restart")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetByTaskID(dbc, "running")
	require.NoError(t, err)
	assert.Equal(t, domaintasks.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "interrupted by restart", *got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)

	got, err = repo.GetByTaskID(dbc, "waiting")
	require.NoError(t, err)
	assert.Equal(t, domaintasks.StatusQueued, got.Status)
}
