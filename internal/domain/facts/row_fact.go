package facts

import (
	"time"

	"gorm.io/datatypes"
)

// IfirRowFact is one monthly pre-aggregated IFIR observation keyed by delivery month.
type IfirRowFact struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentHash   string         `gorm:"column:content_hash;type:char(32);not null;uniqueIndex" json:"content_hash"`
	DeliveryMonth datatypes.Date `gorm:"column:delivery_month;index" json:"delivery_month"`
	Brand         *string        `gorm:"column:brand;size:32" json:"brand,omitempty"`
	Geo           *string        `gorm:"column:geo;size:16" json:"geo,omitempty"`
	ProductLine   *string        `gorm:"column:product_line;size:32" json:"product_line,omitempty"`
	Segment       *string        `gorm:"column:segment;size:64;index" json:"segment,omitempty"`
	Series        *string        `gorm:"column:series;size:128" json:"series,omitempty"`
	Model         *string        `gorm:"column:model;size:128;index" json:"model,omitempty"`
	Plant         *string        `gorm:"column:plant;size:64" json:"plant,omitempty"`
	MachType      *string        `gorm:"column:mach_type;size:64" json:"mach_type,omitempty"`
	SupplierNew   *string        `gorm:"column:supplier_new;size:128;index" json:"supplier_new,omitempty"`
	BoxClaim      int64          `gorm:"column:box_claim;not null" json:"box_claim"`
	BoxMM         int64          `gorm:"column:box_mm;not null" json:"box_mm"`
	YearIgnore    *int           `gorm:"column:year_ignore" json:"year_ignore,omitempty"`
	MonthIgnore   *int           `gorm:"column:month_ignore" json:"month_ignore,omitempty"`
	SrcFile       *string        `gorm:"column:src_file;size:255" json:"src_file,omitempty"`
	EtlBatchID    *string        `gorm:"column:etl_batch_id;size:64;index" json:"etl_batch_id,omitempty"`
	LoadTS        time.Time      `gorm:"column:load_ts;autoCreateTime" json:"load_ts"`
}

func (IfirRowFact) TableName() string { return "fact_ifir_row" }

// RaRowFact is one monthly pre-aggregated RA observation keyed by claim month.
type RaRowFact struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentHash string         `gorm:"column:content_hash;type:char(32);not null;uniqueIndex" json:"content_hash"`
	ClaimMonth  datatypes.Date `gorm:"column:claim_month;index" json:"claim_month"`
	Brand       *string        `gorm:"column:brand;size:32" json:"brand,omitempty"`
	Geo         *string        `gorm:"column:geo;size:16" json:"geo,omitempty"`
	ProductLine *string        `gorm:"column:product_line;size:32" json:"product_line,omitempty"`
	Segment     *string        `gorm:"column:segment;size:64;index" json:"segment,omitempty"`
	Series      *string        `gorm:"column:series;size:128" json:"series,omitempty"`
	Model       *string        `gorm:"column:model;size:128;index" json:"model,omitempty"`
	Plant       *string        `gorm:"column:plant;size:64" json:"plant,omitempty"`
	SupplierNew *string        `gorm:"column:supplier_new;size:128;index" json:"supplier_new,omitempty"`
	MachType    *string        `gorm:"column:mach_type;size:64" json:"mach_type,omitempty"`
	RaClaim     int64          `gorm:"column:ra_claim;not null" json:"ra_claim"`
	RaMM        int64          `gorm:"column:ra_mm;not null" json:"ra_mm"`
	YearIgnore  *int           `gorm:"column:year_ignore" json:"year_ignore,omitempty"`
	MonthIgnore *int           `gorm:"column:month_ignore" json:"month_ignore,omitempty"`
	SrcFile     *string        `gorm:"column:src_file;size:255" json:"src_file,omitempty"`
	EtlBatchID  *string        `gorm:"column:etl_batch_id;size:64;index" json:"etl_batch_id,omitempty"`
	LoadTS      time.Time      `gorm:"column:load_ts;autoCreateTime" json:"load_ts"`
}

func (RaRowFact) TableName() string { return "fact_ra_row" }

// RowUpdateColumns are overwritten when a row with an existing content_hash is re-ingested.
// id, content_hash and load_ts are left alone.
func RowUpdateColumns(f Family) []string {
	s := f.Schema()
	return []string{
		s.RowMonth, "brand", "geo", "product_line", "segment", "series", "model", "plant",
		"mach_type", "supplier_new", s.ClaimColumn, s.MMColumn, "year_ignore", "month_ignore",
		"src_file", "etl_batch_id",
	}
}
