package etl

import (
	"math"
	"strconv"
	"time"

	"gorm.io/datatypes"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/normalization"
)

// RowRecord is one cleansed line of a row sheet, before it becomes a fact.
type RowRecord struct {
	Family      domainfacts.Family
	Date        time.Time
	Brand       *string
	Geo         *string
	ProductLine *string
	Segment     *string
	Series      *string
	Model       *string
	Plant       *string
	MachType    *string
	SupplierNew string
	Claim       int64
	MM          int64
	Year        *int
	Month       *int
}

// Hash is the content identity of the record. IFIR and RA differ in where
// supplier_new and mach_type sit.
func (r *RowRecord) Hash() string {
	head := []string{
		normalization.NormDate(r.Date),
		normalization.NormText(r.Brand),
		normalization.NormText(r.Geo),
		normalization.NormText(r.ProductLine),
		normalization.NormText(r.Segment),
		normalization.NormText(r.Series),
		normalization.NormText(r.Model),
		normalization.NormText(r.Plant),
	}
	if r.Family == domainfacts.FamilyRA {
		head = append(head, normalization.NormText(r.SupplierNew), normalization.NormText(r.MachType))
	} else {
		head = append(head, normalization.NormText(r.MachType), normalization.NormText(r.SupplierNew))
	}
	return normalization.ContentHash(append(head,
		normalization.NormInt(r.Claim),
		normalization.NormInt(r.MM),
		normalization.NormInt(r.Year),
		normalization.NormInt(r.Month),
	)...)
}

// Source is the provenance stamped on every fact of a file.
type Source struct {
	Location string
	TaskID   string
}

func (r *RowRecord) IfirFact(hash string, src Source) *types.IfirRowFact {
	supplier := r.SupplierNew
	return &types.IfirRowFact{
		ContentHash:   hash,
		DeliveryMonth: datatypes.Date(normalization.MonthStart(r.Date)),
		Brand:         r.Brand,
		Geo:           r.Geo,
		ProductLine:   r.ProductLine,
		Segment:       r.Segment,
		Series:        r.Series,
		Model:         r.Model,
		Plant:         r.Plant,
		MachType:      r.MachType,
		SupplierNew:   &supplier,
		BoxClaim:      r.Claim,
		BoxMM:         r.MM,
		YearIgnore:    r.Year,
		MonthIgnore:   r.Month,
		SrcFile:       strPtr(src.Location),
		EtlBatchID:    strPtr(src.TaskID),
	}
}

func (r *RowRecord) RaFact(hash string, src Source) *types.RaRowFact {
	supplier := r.SupplierNew
	return &types.RaRowFact{
		ContentHash: hash,
		ClaimMonth:  datatypes.Date(normalization.MonthStart(r.Date)),
		Brand:       r.Brand,
		Geo:         r.Geo,
		ProductLine: r.ProductLine,
		Segment:     r.Segment,
		Series:      r.Series,
		Model:       r.Model,
		Plant:       r.Plant,
		SupplierNew: &supplier,
		MachType:    r.MachType,
		RaClaim:     r.Claim,
		RaMM:        r.MM,
		YearIgnore:  r.Year,
		MonthIgnore: r.Month,
		SrcFile:     strPtr(src.Location),
		EtlBatchID:  strPtr(src.TaskID),
	}
}

// DetailRecord is one claim line of a detail sheet.
type DetailRecord struct {
	Family        domainfacts.Family
	ClaimNbr      string
	ClaimMonth    *time.Time
	ClaimDate     *time.Time
	DeliveryMonth *time.Time
	DeliveryDay   *int
	Common        domainfacts.DetailCommon
}

// SortDate is the date used to pick the latest line of a claim.
func (d *DetailRecord) SortDate() *time.Time {
	if d.Family == domainfacts.FamilyRA {
		return d.ClaimMonth
	}
	return d.ClaimDate
}

func (d *DetailRecord) IfirFact() *types.IfirDetailFact {
	return &types.IfirDetailFact{
		ClaimNbr:      d.ClaimNbr,
		ClaimMonth:    monthPtr(d.ClaimMonth),
		ClaimDate:     datePtr(d.ClaimDate),
		DeliveryMonth: monthPtr(d.DeliveryMonth),
		DeliveryDay:   d.DeliveryDay,
		DetailCommon:  d.Common,
	}
}

func (d *DetailRecord) RaFact() *types.RaDetailFact {
	return &types.RaDetailFact{
		ClaimNbr:     d.ClaimNbr,
		ClaimMonth:   monthPtr(d.ClaimMonth),
		DetailCommon: d.Common,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func datePtr(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(*t)
	return &d
}

func monthPtr(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(normalization.MonthStart(*t))
	return &d
}

// parseOptionalInt reads a nullable whole-number cell; "2024.0" is accepted.
func parseOptionalInt(raw string) (*int, bool) {
	if raw == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	v := int(f)
	return &v, true
}

// parseMetric coerces a metric cell to a truncated integer; anything that is not
// a number counts as 0.
func parseMetric(raw string) int64 {
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
