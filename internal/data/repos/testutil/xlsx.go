package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Workbook builds an .xlsx with rows written to the first sheet from A1.
func Workbook(tb testing.TB, rows ...[]interface{}) []byte {
	tb.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			tb.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			tb.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		tb.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteWorkbook stores a Workbook under dir and returns its path.
func WriteWorkbook(tb testing.TB, dir, name string, rows ...[]interface{}) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Workbook(tb, rows...), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

var (
	IfirRowHeader = []interface{}{"Delivery_month", "BRAND", "GEO", "Product_line", "Segment", "SERIES",
		"Model", "PLANT", "Mach_type", "Supplier_NEW", "BOX CLAIM", "BOX MM", "YEAR", "MONTH"}
	RaRowHeader = []interface{}{"Claim_month", "BRAND", "GEO", "Product_line", "Segment", "SERIES",
		"Model", "PLANT_OLD", "Supplier_NEW", "Mach_type", "RA CLAIM", "RA MM", "Year", "Month"}
)
