package facts

import "time"

// OdmPlantMapping links an ODM to a plant it was observed with in a family's row facts.
type OdmPlantMapping struct {
	KpiType     string    `gorm:"column:kpi_type;size:16;primaryKey" json:"kpi_type"`
	SupplierNew string    `gorm:"column:supplier_new;size:128;primaryKey" json:"supplier_new"`
	Plant       string    `gorm:"column:plant;size:64;primaryKey" json:"plant"`
	LoadTS      time.Time `gorm:"column:load_ts;autoCreateTime" json:"load_ts"`
}

func (OdmPlantMapping) TableName() string { return "map_odm_to_plant" }
