package sheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadRenamesAndDropsColumns(t *testing.T) {
	buf := workbook(t,
		[]interface{}{" Claim_Nbr ", "Noise", "Model"},
		[]interface{}{"C-1", "x", "M1"},
		[]interface{}{"", "", ""},
		[]interface{}{"C-2", "y"},
	)
	tbl, err := Read(buf, map[string]string{"Claim_Nbr": "claim_nbr", "Model": "model"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Claim_Nbr", "Noise", "Model"}, tbl.RawHeaders)
	assert.True(t, tbl.Has("claim_nbr"))
	assert.False(t, tbl.Has("Noise"))
	assert.Equal(t, []string{"segment"}, tbl.Missing("claim_nbr", "segment"))

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []int{2, 4}, tbl.Lines)
	assert.Equal(t, "C-1", tbl.Cell(tbl.Rows[0], "claim_nbr"))
	assert.Equal(t, "M1", tbl.Cell(tbl.Rows[0], "model"))
	assert.Equal(t, "", tbl.Cell(tbl.Rows[1], "model"))
	assert.Equal(t, "", tbl.Cell(tbl.Rows[1], "segment"))
}

func TestReadReturnsDateCellsAsSerials(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Delivery_month", "BOX CLAIM"},
		[]interface{}{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3},
	)
	tbl, err := Read(buf, map[string]string{"Delivery_month": "delivery_month", "BOX CLAIM": "box_claim"})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "45292", tbl.Cell(tbl.Rows[0], "delivery_month"))
	assert.Equal(t, "3", tbl.Cell(tbl.Rows[0], "box_claim"))
}

func TestReadEmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	_, err = Read(buf, nil)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewBufferString("not a workbook"), nil)
	assert.Error(t, err)
}
