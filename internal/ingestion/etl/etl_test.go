package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/testutil"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/sheet"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

var jan2024 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T, batch int) (*Pipeline, *gorm.DB) {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	return New(log, repos.NewRowFactRepo(db, log), repos.NewDetailFactRepo(db, log), repos.NewOdmPlantRepo(db, log), batch), db
}

func ifirRow(date interface{}, odm string, claim, mm interface{}) []interface{} {
	return []interface{}{date, "Lenovo", "AP", "NB", "Consumer", "S1", "M1", "P1", "T14", odm, claim, mm, 2024, 1}
}

func TestIngestRowsIsIdempotent(t *testing.T) {
	p, db := newPipeline(t, 2)
	ctx := context.Background()
	book := testutil.Workbook(t,
		testutil.IfirRowHeader,
		ifirRow(jan2024, "OdmA", 3, 100),
		ifirRow("2024-02-01", "OdmB", "2.0", "abc"),
		ifirRow(jan2024, "OdmA", 3, 100),
		ifirRow("2024-03-15", "", 1, 10),
		[]interface{}{"Total", "", "", "", "", "", "", "", "", "", 6, 210},
	)
	src := Source{Location: "uploads/t1_ifir_row_a.xlsx", TaskID: "t1"}

	n, err := p.IngestRows(ctx, domainfacts.FamilyIFIR, bytes.NewReader(book), src)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var stored []types.IfirRowFact
	require.NoError(t, db.Order("delivery_month ASC").Find(&stored).Error)
	require.Len(t, stored, 3)
	assert.Equal(t, int64(0), stored[1].BoxMM)
	assert.Equal(t, int64(2), stored[1].BoxClaim)
	require.NotNil(t, stored[2].SupplierNew)
	assert.Equal(t, "None", *stored[2].SupplierNew)
	// month axis is stored as the first of the month
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Time(stored[2].DeliveryMonth).UTC())
	require.NotNil(t, stored[0].EtlBatchID)
	assert.Equal(t, "t1", *stored[0].EtlBatchID)
	assert.Len(t, stored[0].ContentHash, 32)

	_, err = p.IngestRows(ctx, domainfacts.FamilyIFIR, bytes.NewReader(book), Source{Location: "again.xlsx", TaskID: "t2"})
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&types.IfirRowFact{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
	var refreshed types.IfirRowFact
	require.NoError(t, db.Where("content_hash = ?", stored[0].ContentHash).First(&refreshed).Error)
	require.NotNil(t, refreshed.EtlBatchID)
	assert.Equal(t, "t2", *refreshed.EtlBatchID)
}

func TestEquivalentCellsHashIdentically(t *testing.T) {
	read := func(rows ...[]interface{}) []*RowRecord {
		tbl, err := sheet.Read(bytes.NewReader(testutil.Workbook(t, append([][]interface{}{testutil.IfirRowHeader}, rows...)...)), ifirRowColumns)
		require.NoError(t, err)
		recs, _, err := ParseRows(tbl, domainfacts.FamilyIFIR)
		require.NoError(t, err)
		return recs
	}
	recs := read(
		ifirRow(jan2024, "OdmA", 3, 100),
		ifirRow("2024-01-01", "OdmA", "3.0", "100"),
		ifirRow("2024/1/1", " OdmA ", "3.7", 100.2),
	)
	require.Len(t, recs, 3)
	assert.Equal(t, recs[0].Hash(), recs[1].Hash())
	assert.Equal(t, recs[0].Hash(), recs[2].Hash())

	ra := *recs[0]
	ra.Family = domainfacts.FamilyRA
	assert.NotEqual(t, recs[0].Hash(), ra.Hash())
}

func TestParseRowsErrors(t *testing.T) {
	tbl, err := sheet.Read(bytes.NewReader(testutil.Workbook(t,
		[]interface{}{"Delivery_month", "BOX CLAIM"},
		[]interface{}{jan2024, 1},
	)), ifirRowColumns)
	require.NoError(t, err)
	_, _, err = ParseRows(tbl, domainfacts.FamilyIFIR)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "supplier_new")

	tbl, err = sheet.Read(bytes.NewReader(testutil.Workbook(t,
		testutil.IfirRowHeader,
		[]interface{}{jan2024, "", "", "", "", "", "", "", "", "OdmA", 1, 2, "twenty", 1},
	)), ifirRowColumns)
	require.NoError(t, err)
	_, _, err = ParseRows(tbl, domainfacts.FamilyIFIR)
	var cellErr *CellError
	require.ErrorAs(t, err, &cellErr)
	assert.Equal(t, 2, cellErr.Line)
	assert.Equal(t, colYear, cellErr.Column)
}

func TestIngestDetailsKeepsLatestClaim(t *testing.T) {
	p, db := newPipeline(t, 500)
	ctx := context.Background()
	header := []interface{}{" Claim_Nbr", "Claim_Month", "Claim_Date", "Delivery_Month", "Model", "Fault_Category", "Station_ID"}
	book := testutil.Workbook(t,
		header,
		[]interface{}{"C1", "2024-01-01", "2024-01-05", "2023-12-01", "M1", "Display", 7},
		[]interface{}{"C1", "2024-02-01", "2024-02-10", "2023-12-01", "M1", "Battery", 7},
		[]interface{}{"C1", "2024-03-01", "", "2023-12-01", "M1", "Keyboard", 7},
		[]interface{}{"", "2024-01-01", "2024-01-05", "2023-12-01", "M1", "Display", 7},
		[]interface{}{" C2 ", "2024-01-01", "2024-01-07", "2023-11-20", "M2", "Hinge", "n/a"},
	)

	n, err := p.IngestFile(ctx, domaintasks.FileIfirDetail, bytes.NewReader(book), Source{TaskID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var c1 types.IfirDetailFact
	require.NoError(t, db.First(&c1, "claim_nbr = ?", "C1").Error)
	require.NotNil(t, c1.FaultCategory)
	assert.Equal(t, "Battery", *c1.FaultCategory)
	require.NotNil(t, c1.StationID)
	assert.EqualValues(t, 7, *c1.StationID)

	var c2 types.IfirDetailFact
	require.NoError(t, db.First(&c2, "claim_nbr = ?", "C2").Error)
	assert.Nil(t, c2.StationID)
	require.NotNil(t, c2.DeliveryMonth)
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), time.Time(*c2.DeliveryMonth).UTC())

	_, err = p.IngestFile(ctx, domaintasks.FileIfirDetail, bytes.NewReader(testutil.Workbook(t,
		[]interface{}{"Model"},
		[]interface{}{"M1"},
	)), Source{TaskID: "t2"})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestRefreshMappingsIsAdditive(t *testing.T) {
	p, db := newPipeline(t, 500)
	ctx := context.Background()
	book := testutil.Workbook(t,
		testutil.RaRowHeader,
		[]interface{}{jan2024, "", "", "", "Consumer", "", "M1", "P1", "OdmA", "", 1, 10, 2024, 1},
		[]interface{}{jan2024, "", "", "", "Consumer", "", "M2", "P2", "OdmA", "", 1, 10, 2024, 1},
		[]interface{}{jan2024, "", "", "", "Consumer", "", "M3", "", "OdmB", "", 1, 10, 2024, 1},
	)
	_, err := p.IngestFile(ctx, domaintasks.FileRaRow, bytes.NewReader(book), Source{TaskID: "t1"})
	require.NoError(t, err)

	n, err := p.RefreshMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.Where("1 = 1").Delete(&types.RaRowFact{}).Error)
	_, err = p.RefreshMappings(ctx)
	require.NoError(t, err)

	var mappings []types.OdmPlantMapping
	require.NoError(t, db.Order("plant ASC").Find(&mappings).Error)
	require.Len(t, mappings, 2)
	assert.Equal(t, "RA", mappings[0].KpiType)
	assert.Equal(t, "OdmA", mappings[1].SupplierNew)
}

func TestIngestFileRejectsUnknownType(t *testing.T) {
	p, _ := newPipeline(t, 0)
	_, err := p.IngestFile(context.Background(), domaintasks.FileType("bogus"), bytes.NewReader(nil), Source{})
	assert.ErrorIs(t, err, ErrUnknownFile)
}

var errChunkWrite = errors.New("chunk write failed")

// failingRows passes upserts through until the call numbered failOn.
type failingRows struct {
	repos.RowFactRepo
	calls  int
	failOn int
}

func (f *failingRows) UpsertIfirRows(dbc dbctx.Context, rows []*types.IfirRowFact) error {
	f.calls++
	if f.calls == f.failOn {
		return errChunkWrite
	}
	return f.RowFactRepo.UpsertIfirRows(dbc, rows)
}

type failingDetails struct {
	repos.DetailFactRepo
	calls  int
	failOn int
}

func (f *failingDetails) UpsertIfirDetails(dbc dbctx.Context, rows []*types.IfirDetailFact) error {
	f.calls++
	if f.calls == f.failOn {
		return errChunkWrite
	}
	return f.DetailFactRepo.UpsertIfirDetails(dbc, rows)
}

func TestIngestRowsKeepsCommittedChunksOnFailure(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	rows := &failingRows{RowFactRepo: repos.NewRowFactRepo(db, log), failOn: 2}
	p := New(log, rows, repos.NewDetailFactRepo(db, log), repos.NewOdmPlantRepo(db, log), 2)

	data := [][]interface{}{testutil.IfirRowHeader}
	for i := 1; i <= 5; i++ {
		data = append(data, ifirRow(jan2024, fmt.Sprintf("Odm%d", i), i, 100))
	}
	book := testutil.Workbook(t, data...)

	n, err := p.IngestRows(context.Background(), domainfacts.FamilyIFIR, bytes.NewReader(book), Source{TaskID: "t1"})
	require.ErrorIs(t, err, errChunkWrite)
	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "after 2 written")
	assert.Equal(t, 2, rows.calls)

	var count int64
	require.NoError(t, db.Model(&types.IfirRowFact{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestIngestDetailsKeepsCommittedChunksOnFailure(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	details := &failingDetails{DetailFactRepo: repos.NewDetailFactRepo(db, log), failOn: 2}
	p := New(log, repos.NewRowFactRepo(db, log), details, repos.NewOdmPlantRepo(db, log), 2)

	data := [][]interface{}{{"Claim_Nbr", "Claim_Month", "Claim_Date", "Model", "Fault_Category"}}
	for i := 1; i <= 5; i++ {
		data = append(data, []interface{}{fmt.Sprintf("C%d", i), "2024-01-01", fmt.Sprintf("2024-01-%02d", i), "M1", "Display"})
	}
	book := testutil.Workbook(t, data...)

	_, err := p.IngestDetails(context.Background(), domainfacts.FamilyIFIR, bytes.NewReader(book), Source{TaskID: "t1"})
	require.ErrorIs(t, err, errChunkWrite)
	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.Equal(t, 2, details.calls)

	var count int64
	require.NoError(t, db.Model(&types.IfirDetailFact{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestIngestRowsFirstChunkFailureIsNotPartial(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	rows := &failingRows{RowFactRepo: repos.NewRowFactRepo(db, log), failOn: 1}
	p := New(log, rows, repos.NewDetailFactRepo(db, log), repos.NewOdmPlantRepo(db, log), 2)

	book := testutil.Workbook(t, testutil.IfirRowHeader, ifirRow(jan2024, "OdmA", 1, 100))
	_, err := p.IngestRows(context.Background(), domainfacts.FamilyIFIR, bytes.NewReader(book), Source{TaskID: "t1"})
	require.ErrorIs(t, err, errChunkWrite)
	assert.NotErrorIs(t, err, ErrPartialWrite)
}
