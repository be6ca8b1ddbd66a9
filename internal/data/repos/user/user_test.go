package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/testutil"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

func strPtr(s string) *string { return &s }

func TestUserRepo(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	created, err := repo.Create(dbc, []*types.User{
		{Username: "alice", DisplayName: "Alice Admin", Email: strPtr("alice@example.com"), HashedPassword: "x", Role: "admin", IsActive: true},
		{Username: "bob", DisplayName: "Bob", HashedPassword: "x", Role: "viewer", IsActive: true},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotZero(t, created[0].ID)

	got, err := repo.GetByUsername(dbc, " alice ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created[0].ID, got.ID)

	missing, err := repo.GetByUsername(dbc, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := repo.GetByID(dbc, created[1].ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "bob", byID.Username)

	taken, err := repo.EmailTaken(dbc, "alice@example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(dbc, "alice@example.com", created[0].ID)
	require.NoError(t, err)
	assert.False(t, taken)

	list, total, err := repo.List(dbc, ListFilter{Query: "ALI", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)

	list, total, err = repo.List(dbc, ListFilter{Role: "viewer", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "bob", list[0].Username)

	require.NoError(t, repo.UpdateFields(dbc, created[1].ID, map[string]interface{}{"is_active": false}))
	byID, err = repo.GetByID(dbc, created[1].ID)
	require.NoError(t, err)
	assert.False(t, byID.IsActive)
}

func TestUserRepoPostgres(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*types.User{{Username: "pg-user", HashedPassword: "x", Role: "viewer", IsActive: true}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByUsername(dbc, "pg-user")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got == nil || got.ID != created[0].ID {
		t.Fatalf("GetByUsername: unexpected result: %+v", got)
	}
}
