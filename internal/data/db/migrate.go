package db

import (
	"fmt"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Identity
		// =========================
		&types.User{},

		// =========================
		// Facts
		// =========================
		&types.IfirRowFact{},
		&types.IfirDetailFact{},
		&types.RaRowFact{},
		&types.RaDetailFact{},
		&types.OdmPlantMapping{},

		// =========================
		// Ingestion
		// =========================
		&types.UploadTask{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
