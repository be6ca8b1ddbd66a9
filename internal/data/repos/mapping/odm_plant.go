package mapping

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type OdmPlantRepo interface {
	// Upsert inserts pairs that are not present yet. Existing pairs are left untouched
	// and nothing is ever deleted.
	Upsert(dbc dbctx.Context, rows []*types.OdmPlantMapping) error
	// PlantsForOdms returns the distinct plants mapped to any of odms, ascending.
	PlantsForOdms(dbc dbctx.Context, family domainfacts.Family, odms []string) ([]string, error)
	// PlantsByOdm groups mapped plants per ODM.
	PlantsByOdm(dbc dbctx.Context, family domainfacts.Family, odms []string) (map[string][]string, error)
}

type odmPlantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOdmPlantRepo(db *gorm.DB, baseLog *logger.Logger) OdmPlantRepo {
	return &odmPlantRepo{
		db:  db,
		log: baseLog.With("repo", "OdmPlantRepo"),
	}
}

func (r *odmPlantRepo) Upsert(dbc dbctx.Context, rows []*types.OdmPlantMapping) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "kpi_type"},
				{Name: "supplier_new"},
				{Name: "plant"},
			},
			DoNothing: true,
		}).
		CreateInBatches(&rows, 500).Error
}

func (r *odmPlantRepo) PlantsForOdms(dbc dbctx.Context, family domainfacts.Family, odms []string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []string{}
	if len(odms) == 0 {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.OdmPlantMapping{}).
		Distinct("plant").
		Where("kpi_type = ? AND supplier_new IN ?", string(family), odms).
		Order("plant ASC").
		Pluck("plant", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *odmPlantRepo) PlantsByOdm(dbc dbctx.Context, family domainfacts.Family, odms []string) (map[string][]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string][]string{}
	if len(odms) == 0 {
		return out, nil
	}
	var rows []types.OdmPlantMapping
	err := transaction.WithContext(dbc.Ctx).
		Where("kpi_type = ? AND supplier_new IN ?", string(family), odms).
		Order("supplier_new ASC").
		Order("plant ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SupplierNew] = append(out[row.SupplierNew], row.Plant)
	}
	return out, nil
}
