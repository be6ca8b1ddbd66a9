package facts

import (
	"fmt"
	"strings"
)

// Family is one of the two KPI datasets. The value doubles as the kpi_type
// stored in map_odm_to_plant.
type Family string

const (
	FamilyIFIR Family = "IFIR"
	FamilyRA   Family = "RA"
)

// Families lists every family in mapping-refresh order.
var Families = []Family{FamilyIFIR, FamilyRA}

// ParseFamily accepts the lowercase path form ("ifir", "ra") as well as the stored form.
func ParseFamily(raw string) (Family, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(FamilyIFIR):
		return FamilyIFIR, nil
	case string(FamilyRA):
		return FamilyRA, nil
	}
	return "", fmt.Errorf("unknown kpi family %q", raw)
}

func (f Family) Slug() string { return strings.ToLower(string(f)) }

// Schema names the physical tables and columns a family is stored in.
// Every value is a compile-time constant, so it is safe to splice into SQL.
type Schema struct {
	RowTable     string
	DetailTable  string
	RowMonth     string // primary time axis of the row table
	DetailMonth  string // time axis used when filtering detail facts
	ClaimColumn  string
	MMColumn     string
	RatioLabel   string // JSON key of the ratio
	ClaimLabel   string
	MMLabel      string
	DetailSortBy string // detail dedup date column
}

func (f Family) Schema() Schema {
	if f == FamilyRA {
		return Schema{
			RowTable:     RaRowFact{}.TableName(),
			DetailTable:  RaDetailFact{}.TableName(),
			RowMonth:     "claim_month",
			DetailMonth:  "claim_month",
			ClaimColumn:  "ra_claim",
			MMColumn:     "ra_mm",
			RatioLabel:   "ra",
			ClaimLabel:   "ra_claim",
			MMLabel:      "ra_mm",
			DetailSortBy: "claim_month",
		}
	}
	return Schema{
		RowTable:     IfirRowFact{}.TableName(),
		DetailTable:  IfirDetailFact{}.TableName(),
		RowMonth:     "delivery_month",
		DetailMonth:  "delivery_month",
		ClaimColumn:  "box_claim",
		MMColumn:     "box_mm",
		RatioLabel:   "ifir",
		ClaimLabel:   "box_claim",
		MMLabel:      "box_mm",
		DetailSortBy: "claim_date",
	}
}

// Dimension is a groupable row-fact column.
type Dimension string

const (
	DimNone    Dimension = ""
	DimSegment Dimension = "segment"
	DimOdm     Dimension = "supplier_new"
	DimModel   Dimension = "model"
)
