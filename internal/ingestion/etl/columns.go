package etl

import (
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
)

// Canonical column names shared by the row sheets. The month column is
// family-specific and comes from Schema().RowMonth.
const (
	colBrand       = "brand"
	colGeo         = "geo"
	colProductLine = "product_line"
	colSegment     = "segment"
	colSeries      = "series"
	colModel       = "model"
	colPlant       = "plant"
	colMachType    = "mach_type"
	colSupplier    = "supplier_new"
	colClaim       = "claim"
	colMM          = "mm"
	colYear        = "year_ignore"
	colMonth       = "month_ignore"
	colMonthAxis   = "month_axis"
)

var ifirRowColumns = map[string]string{
	"Delivery_month": colMonthAxis,
	"BRAND":          colBrand,
	"GEO":            colGeo,
	"Product_line":   colProductLine,
	"Segment":        colSegment,
	"SERIES":         colSeries,
	"Model":          colModel,
	"PLANT":          colPlant,
	"Mach_type":      colMachType,
	"Supplier_NEW":   colSupplier,
	"BOX CLAIM":      colClaim,
	"BOX MM":         colMM,
	"YEAR":           colYear,
	"MONTH":          colMonth,
}

var raRowColumns = map[string]string{
	"Claim_month":  colMonthAxis,
	"BRAND":        colBrand,
	"GEO":          colGeo,
	"Product_line": colProductLine,
	"Segment":      colSegment,
	"SERIES":       colSeries,
	"Model":        colModel,
	"PLANT_OLD":    colPlant,
	"Supplier_NEW": colSupplier,
	"Mach_type":    colMachType,
	"RA CLAIM":     colClaim,
	"RA MM":        colMM,
	"Year":         colYear,
	"Month":        colMonth,
}

// requiredRowColumns fail the file when absent.
var requiredRowColumns = []string{colMonthAxis, colSupplier, colClaim, colMM}

// Detail sheets share one header vocabulary; IFIR adds the delivery columns.
var detailCommonColumns = map[string]string{
	"Claim_Nbr":             "claim_nbr",
	"Claim_Month":           "claim_month",
	"Geo_2012":              "geo_2012",
	"Financial Region":      "financial_region",
	"PLANT":                 "plant",
	"Brand":                 "brand",
	"Segment":               "segment",
	"Segment2":              "segment2",
	"Style":                 "style",
	"Series":                "series",
	"Model":                 "model",
	"MTM":                   "mtm",
	"Serial_Nbr":            "serial_nbr",
	"StationName":           "stationname",
	"Station_ID":            "station_id",
	"Data_Source":           "data_source",
	"LastSln":               "lastsln",
	"Failure_Code":          "failure_code",
	"Fault_Category":        "fault_category",
	"Mach_Desc":             "mach_desc",
	"Problem_Descr":         "problem_descr",
	"Problem_Descr_by_Tech": "problem_descr_by_tech",
	"Commodity":             "commodity",
	"Down_Part_Code":        "down_part_code",
	"Part_Nbr":              "part_nbr",
	"Part_desc":             "part_desc",
	"Part_Supplier":         "part_supplier",
	"Part_Barcode":          "part_barcode",
	"Packing_Lot_No":        "packing_lot_no",
	"Claim_Item_Nbr":        "claim_item_nbr",
	"Claim_Status":          "claim_status",
	"Channel":               "channel",
	"Cust_Nbr":              "cust_nbr",
}

var ifirDetailExtraColumns = map[string]string{
	"Claim_Date":     "claim_date",
	"Delivery_Month": "delivery_month",
	"Delivery_Day":   "delivery_day",
}

// ColumnMap returns the source header -> canonical column map for a file type.
func ColumnMap(ft domaintasks.FileType) map[string]string {
	switch ft {
	case domaintasks.FileIfirRow:
		return ifirRowColumns
	case domaintasks.FileRaRow:
		return raRowColumns
	case domaintasks.FileRaDetail:
		return detailCommonColumns
	case domaintasks.FileIfirDetail:
		out := make(map[string]string, len(detailCommonColumns)+len(ifirDetailExtraColumns))
		for k, v := range detailCommonColumns {
			out[k] = v
		}
		for k, v := range ifirDetailExtraColumns {
			out[k] = v
		}
		return out
	}
	return nil
}

// FileFamily maps a file type to the KPI family it feeds and whether it is a detail file.
func FileFamily(ft domaintasks.FileType) (domainfacts.Family, bool) {
	switch ft {
	case domaintasks.FileIfirDetail:
		return domainfacts.FamilyIFIR, true
	case domaintasks.FileRaRow:
		return domainfacts.FamilyRA, false
	case domaintasks.FileRaDetail:
		return domainfacts.FamilyRA, true
	}
	return domainfacts.FamilyIFIR, false
}
