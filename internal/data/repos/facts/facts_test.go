package facts

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos/testutil"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

func month(t *testing.T, ym string) time.Time {
	return time.Time(testutil.Month(t, ym))
}

func str(s string) *string { return &s }

func TestUpsertIfirRowsSQLShape(t *testing.T) {
	db, mock := testutil.Mock(t)
	repo := NewRowFactRepo(db, testutil.Logger(t))

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "fact_ifir_row"`) + ".*" +
		regexp.QuoteMeta(`ON CONFLICT ("content_hash") DO UPDATE SET "delivery_month"="excluded"."delivery_month"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.UpsertIfirRows(dbctx.Context{Ctx: context.Background()}, []*types.IfirRowFact{{
		ContentHash:   "0123456789abcdef0123456789abcdef",
		DeliveryMonth: testutil.Month(t, "2024-01"),
		SupplierNew:   str("None"),
		BoxClaim:      3,
		BoxMM:         100,
	}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRowsIsIdempotent(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewRowFactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	build := func(claim int64) []*types.RaRowFact {
		return []*types.RaRowFact{
			{ContentHash: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ClaimMonth: testutil.Month(t, "2024-01"), SupplierNew: str("ODM1"), RaClaim: claim, RaMM: 10},
			{ContentHash: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", ClaimMonth: testutil.Month(t, "2024-02"), SupplierNew: str("ODM1"), RaClaim: 1, RaMM: 10},
		}
	}
	require.NoError(t, repo.UpsertRaRows(dbc, build(2)))
	require.NoError(t, repo.UpsertRaRows(dbc, build(5)))

	n, err := repo.Count(dbc, domainfacts.FamilyRA)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	aggs, err := repo.Aggregate(dbc, domainfacts.FamilyRA, RowFilter{}, domainfacts.DimOdm, false)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, "ODM1", aggs[0].Key)
	assert.EqualValues(t, 6, aggs[0].Claim)
	assert.EqualValues(t, 20, aggs[0].MM)
}

func TestAggregateFiltersAndBuckets(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	testutil.SeedRows(t, ctx, db,
		testutil.RowSeed{Month: "2024-01", Segment: "Consumer", Odm: "A", Model: "M1", Plant: "P1", Claim: 2, MM: 100},
		testutil.RowSeed{Month: "2024-01", Segment: "Consumer", Odm: "A", Model: "M2", Plant: "P1", Claim: 1, MM: 50},
		testutil.RowSeed{Month: "2024-02", Segment: "Commercial", Odm: "A", Model: "M1", Plant: "P2", Claim: 4, MM: 100},
		testutil.RowSeed{Month: "2024-02", Segment: "Consumer", Odm: "B", Model: "M3", Plant: "P3", Claim: 7, MM: 70},
		testutil.RowSeed{Month: "2024-04", Segment: "Consumer", Odm: "A", Model: "M1", Plant: "P1", Claim: 9, MM: 9},
	)
	repo := NewRowFactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	filter := RowFilter{Start: month(t, "2024-01"), End: month(t, "2024-02"), Odms: []string{"A"}}
	trend, err := repo.Aggregate(dbc, domainfacts.FamilyIFIR, filter, domainfacts.DimNone, true)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, "2024-01", trend[0].Month.Format("2006-01"))
	assert.EqualValues(t, 3, trend[0].Claim)
	assert.EqualValues(t, 150, trend[0].MM)
	assert.Equal(t, "2024-02", trend[1].Month.Format("2006-01"))
	assert.EqualValues(t, 4, trend[1].Claim)

	byModel, err := repo.Aggregate(dbc, domainfacts.FamilyIFIR, filter, domainfacts.DimModel, false)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "M1", byModel[0].Key)
	assert.EqualValues(t, 6, byModel[0].Claim)

	filter.Segments = []string{"Commercial"}
	bySegment, err := repo.Aggregate(dbc, domainfacts.FamilyIFIR, filter, domainfacts.DimSegment, true)
	require.NoError(t, err)
	require.Len(t, bySegment, 1)
	assert.Equal(t, "Commercial", bySegment[0].Key)

	_, err = repo.Aggregate(dbc, domainfacts.FamilyIFIR, filter, domainfacts.Dimension("brand; DROP TABLE x"), false)
	assert.Error(t, err)
}

func TestDistinctValuesAndBounds(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	testutil.SeedRows(t, ctx, db,
		testutil.RowSeed{Month: "2023-11", Segment: "Consumer", Odm: "A", Model: "M1", Plant: "P1"},
		testutil.RowSeed{Month: "2024-03", Segment: "Commercial", Odm: "B", Model: "M2", Plant: "P2"},
		testutil.RowSeed{Month: "2024-01", Segment: "Consumer", Odm: "B", Model: "M3", Plant: "P2"},
		testutil.RowSeed{Month: "2024-01", Odm: "C"},
	)
	repo := NewRowFactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	segs, err := repo.DistinctValues(dbc, domainfacts.FamilyIFIR, domainfacts.DimSegment, RowFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Commercial", "Consumer"}, segs)

	models, err := repo.DistinctValues(dbc, domainfacts.FamilyIFIR, domainfacts.DimModel, RowFilter{Odms: []string{"B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"M2", "M3"}, models)

	minMonth, maxMonth, err := repo.MonthBounds(dbc, domainfacts.FamilyIFIR)
	require.NoError(t, err)
	require.NotNil(t, minMonth)
	require.NotNil(t, maxMonth)
	assert.Equal(t, "2023-11", minMonth.Format("2006-01"))
	assert.Equal(t, "2024-03", maxMonth.Format("2006-01"))

	minMonth, maxMonth, err = repo.MonthBounds(dbc, domainfacts.FamilyRA)
	require.NoError(t, err)
	assert.Nil(t, minMonth)
	assert.Nil(t, maxMonth)

	pairs, err := repo.DistinctOdmPlantPairs(dbc, domainfacts.FamilyIFIR)
	require.NoError(t, err)
	assert.ElementsMatch(t, []OdmPlantPair{{Odm: "A", Plant: "P1"}, {Odm: "B", Plant: "P2"}}, pairs)
}

func TestDetailUpsertReplacesAllColumns(t *testing.T) {
	db := testutil.SQLite(t)
	repo := NewDetailFactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	jan := testutil.Month(t, "2024-01")
	first := &types.IfirDetailFact{ClaimNbr: "C1", DeliveryMonth: &jan, DetailCommon: types.DetailCommon{
		Model: str("M1"), FaultCategory: str("Display"), Commodity: str("LCD"),
	}}
	require.NoError(t, repo.UpsertIfirDetails(dbc, []*types.IfirDetailFact{first}))

	second := &types.IfirDetailFact{ClaimNbr: "C1", DeliveryMonth: &jan, DetailCommon: types.DetailCommon{
		Model: str("M1"), FaultCategory: str("Keyboard"),
	}}
	require.NoError(t, repo.UpsertIfirDetails(dbc, []*types.IfirDetailFact{second}))

	var stored types.IfirDetailFact
	require.NoError(t, db.First(&stored, "claim_nbr = ?", "C1").Error)
	assert.Equal(t, "Keyboard", *stored.FaultCategory)
	assert.Nil(t, stored.Commodity)

	n, err := repo.Count(dbc, domainfacts.FamilyIFIR)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestIssueCountsAndDetails(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	testutil.SeedDetails(t, ctx, db,
		testutil.DetailSeed{ClaimNbr: "1", Month: "2024-01", Model: "M1", Plant: "P1", Fault: "Display", Descr: "flicker"},
		testutil.DetailSeed{ClaimNbr: "2", Month: "2024-01", Model: "M1", Plant: "P1", Fault: "Display"},
		testutil.DetailSeed{ClaimNbr: "3", Month: "2024-02", Model: "M1", Plant: "P2", Fault: "Battery"},
		testutil.DetailSeed{ClaimNbr: "4", Month: "2024-02", Model: "M1", Plant: "P1"},
		testutil.DetailSeed{ClaimNbr: "5", Month: "2024-02", Model: "M2", Plant: "P1", Fault: "Hinge"},
	)
	repo := NewDetailFactRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	filter := IssueFilter{Start: month(t, "2024-01"), End: month(t, "2024-02"), Models: []string{"M1"}}
	counts, err := repo.IssueCounts(dbc, domainfacts.FamilyIFIR, filter, false)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, IssueCount{Model: "M1", Issue: "Display", Count: 2}, counts[0])
	assert.Equal(t, IssueCount{Model: "M1", Issue: "Battery", Count: 1}, counts[1])

	filter.Plants = []string{"P2"}
	counts, err = repo.IssueCounts(dbc, domainfacts.FamilyIFIR, filter, true)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "2024-02", counts[0].Month.Format("2006-01"))

	items, total, err := repo.ListIssueDetails(dbc, domainfacts.FamilyIFIR, IssueFilter{
		Start: month(t, "2024-01"), End: month(t, "2024-02"), Models: []string{"M1"}, Issue: "Display",
	}, 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ClaimNbr)
}
