package facts

import (
	"time"

	"gorm.io/datatypes"
)

// DetailCommon holds the columns shared by both detail tables.
type DetailCommon struct {
	GeoNew             *string `gorm:"column:geo_2012;size:32" json:"geo_2012,omitempty"`
	FinancialRegion    *string `gorm:"column:financial_region;size:64" json:"financial_region,omitempty"`
	Plant              *string `gorm:"column:plant;size:64;index" json:"plant,omitempty"`
	Brand              *string `gorm:"column:brand;size:64" json:"brand,omitempty"`
	Segment            *string `gorm:"column:segment;size:64;index" json:"segment,omitempty"`
	Segment2           *string `gorm:"column:segment2;size:64" json:"segment2,omitempty"`
	Style              *string `gorm:"column:style;size:64" json:"style,omitempty"`
	Series             *string `gorm:"column:series;size:128" json:"series,omitempty"`
	Model              *string `gorm:"column:model;size:128;index" json:"model,omitempty"`
	MTM                *string `gorm:"column:mtm;size:64" json:"mtm,omitempty"`
	SerialNbr          *string `gorm:"column:serial_nbr;size:64" json:"serial_nbr,omitempty"`
	StationName        *string `gorm:"column:stationname;size:255" json:"stationname,omitempty"`
	StationID          *int64  `gorm:"column:station_id" json:"station_id,omitempty"`
	DataSource         *string `gorm:"column:data_source;size:32" json:"data_source,omitempty"`
	LastSln            *string `gorm:"column:lastsln;type:text" json:"lastsln,omitempty"`
	FailureCode        *string `gorm:"column:failure_code;size:32" json:"failure_code,omitempty"`
	FaultCategory      *string `gorm:"column:fault_category;size:128;index" json:"fault_category,omitempty"`
	MachDesc           *string `gorm:"column:mach_desc;size:255" json:"mach_desc,omitempty"`
	ProblemDescr       *string `gorm:"column:problem_descr;size:255" json:"problem_descr,omitempty"`
	ProblemDescrByTech *string `gorm:"column:problem_descr_by_tech;size:255" json:"problem_descr_by_tech,omitempty"`
	Commodity          *string `gorm:"column:commodity;size:64" json:"commodity,omitempty"`
	DownPartCode       *string `gorm:"column:down_part_code;size:64" json:"down_part_code,omitempty"`
	PartNbr            *string `gorm:"column:part_nbr;size:64" json:"part_nbr,omitempty"`
	PartDesc           *string `gorm:"column:part_desc;size:255" json:"part_desc,omitempty"`
	PartSupplier       *string `gorm:"column:part_supplier;size:128" json:"part_supplier,omitempty"`
	PartBarcode        *string `gorm:"column:part_barcode;size:64" json:"part_barcode,omitempty"`
	PackingLotNo       *string `gorm:"column:packing_lot_no;size:64" json:"packing_lot_no,omitempty"`
	ClaimItemNbr       *string `gorm:"column:claim_item_nbr;size:64" json:"claim_item_nbr,omitempty"`
	ClaimStatus        *string `gorm:"column:claim_status;size:32" json:"claim_status,omitempty"`
	Channel            *string `gorm:"column:channel;size:32" json:"channel,omitempty"`
	CustNbr            *string `gorm:"column:cust_nbr;size:64" json:"cust_nbr,omitempty"`
}

// IfirDetailFact is one claim event; IFIR drill-downs filter on DeliveryMonth.
type IfirDetailFact struct {
	ClaimNbr      string          `gorm:"column:claim_nbr;size:64;primaryKey" json:"claim_nbr"`
	ClaimMonth    *datatypes.Date `gorm:"column:claim_month" json:"claim_month,omitempty"`
	ClaimDate     *datatypes.Date `gorm:"column:claim_date" json:"claim_date,omitempty"`
	DeliveryMonth *datatypes.Date `gorm:"column:delivery_month;index" json:"delivery_month,omitempty"`
	DeliveryDay   *int            `gorm:"column:delivery_day" json:"delivery_day,omitempty"`
	DetailCommon  `gorm:"embedded"`
	LoadTS        time.Time `gorm:"column:load_ts;autoCreateTime" json:"load_ts"`
}

func (IfirDetailFact) TableName() string { return "fact_ifir_detail" }

// RaDetailFact is one RA claim event keyed and filtered by ClaimMonth.
type RaDetailFact struct {
	ClaimNbr     string          `gorm:"column:claim_nbr;size:64;primaryKey" json:"claim_nbr"`
	ClaimMonth   *datatypes.Date `gorm:"column:claim_month;index" json:"claim_month,omitempty"`
	DetailCommon `gorm:"embedded"`
	LoadTS       time.Time `gorm:"column:load_ts;autoCreateTime" json:"load_ts"`
}

func (RaDetailFact) TableName() string { return "fact_ra_detail" }

var detailCommonColumns = []string{
	"geo_2012", "financial_region", "plant", "brand", "segment", "segment2", "style", "series",
	"model", "mtm", "serial_nbr", "stationname", "station_id", "data_source", "lastsln",
	"failure_code", "fault_category", "mach_desc", "problem_descr", "problem_descr_by_tech",
	"commodity", "down_part_code", "part_nbr", "part_desc", "part_supplier", "part_barcode",
	"packing_lot_no", "claim_item_nbr", "claim_status", "channel", "cust_nbr",
}

// DetailUpdateColumns is every column except claim_nbr and load_ts, so a
// re-ingested claim fully replaces the stored one.
func DetailUpdateColumns(f Family) []string {
	var head []string
	if f == FamilyRA {
		head = []string{"claim_month"}
	} else {
		head = []string{"claim_month", "claim_date", "delivery_month", "delivery_day"}
	}
	return append(head, detailCommonColumns...)
}
