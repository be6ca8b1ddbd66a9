package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos/testutil"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

func TestOdmPlantRepoIsAdditive(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewOdmPlantRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	require.NoError(t, repo.Upsert(dbc, []*types.OdmPlantMapping{
		{KpiType: "IFIR", SupplierNew: "A", Plant: "P1"},
		{KpiType: "IFIR", SupplierNew: "A", Plant: "P2"},
		{KpiType: "RA", SupplierNew: "A", Plant: "P9"},
	}))
	// re-upserting an existing pair is a no-op, new pairs are added
	require.NoError(t, repo.Upsert(dbc, []*types.OdmPlantMapping{
		{KpiType: "IFIR", SupplierNew: "A", Plant: "P1"},
		{KpiType: "IFIR", SupplierNew: "B", Plant: "P1"},
	}))

	var n int64
	require.NoError(t, db.Model(&types.OdmPlantMapping{}).Count(&n).Error)
	assert.EqualValues(t, 4, n)

	plants, err := repo.PlantsForOdms(dbc, domainfacts.FamilyIFIR, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, plants)

	byOdm, err := repo.PlantsByOdm(dbc, domainfacts.FamilyIFIR, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"A": {"P1", "P2"}, "B": {"P1"}}, byOdm)

	plants, err = repo.PlantsForOdms(dbc, domainfacts.FamilyRA, nil)
	require.NoError(t, err)
	assert.Empty(t, plants)
}
