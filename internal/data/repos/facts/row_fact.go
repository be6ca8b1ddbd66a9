package facts

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

// RowAggregate is one group of summed row metrics. Month is zero unless the
// query was bucketed by month; Key is empty unless grouped by a dimension.
type RowAggregate struct {
	Month time.Time `gorm:"column:month"`
	Key   string    `gorm:"column:dim_key"`
	Claim int64     `gorm:"column:claim"`
	MM    int64     `gorm:"column:mm"`
}

type OdmPlantPair struct {
	Odm   string `gorm:"column:supplier_new"`
	Plant string `gorm:"column:plant"`
}

type RowFactRepo interface {
	UpsertIfirRows(dbc dbctx.Context, rows []*types.IfirRowFact) error
	UpsertRaRows(dbc dbctx.Context, rows []*types.RaRowFact) error
	Aggregate(dbc dbctx.Context, family domainfacts.Family, filter RowFilter, groupBy domainfacts.Dimension, byMonth bool) ([]RowAggregate, error)
	DistinctValues(dbc dbctx.Context, family domainfacts.Family, dim domainfacts.Dimension, filter RowFilter) ([]string, error)
	MonthBounds(dbc dbctx.Context, family domainfacts.Family) (*time.Time, *time.Time, error)
	DistinctOdmPlantPairs(dbc dbctx.Context, family domainfacts.Family) ([]OdmPlantPair, error)
	Count(dbc dbctx.Context, family domainfacts.Family) (int64, error)
}

type rowFactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRowFactRepo(db *gorm.DB, baseLog *logger.Logger) RowFactRepo {
	return &rowFactRepo{
		db:  db,
		log: baseLog.With("repo", "RowFactRepo"),
	}
}

func (r *rowFactRepo) UpsertIfirRows(dbc dbctx.Context, rows []*types.IfirRowFact) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}},
			DoUpdates: clause.AssignmentColumns(domainfacts.RowUpdateColumns(domainfacts.FamilyIFIR)),
		}).
		Create(&rows).Error
}

func (r *rowFactRepo) UpsertRaRows(dbc dbctx.Context, rows []*types.RaRowFact) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}},
			DoUpdates: clause.AssignmentColumns(domainfacts.RowUpdateColumns(domainfacts.FamilyRA)),
		}).
		Create(&rows).Error
}

func validDimension(dim domainfacts.Dimension) bool {
	switch dim {
	case domainfacts.DimSegment, domainfacts.DimOdm, domainfacts.DimModel:
		return true
	}
	return false
}

func (r *rowFactRepo) Aggregate(dbc dbctx.Context, family domainfacts.Family, filter RowFilter, groupBy domainfacts.Dimension, byMonth bool) ([]RowAggregate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if groupBy != domainfacts.DimNone && !validDimension(groupBy) {
		return nil, fmt.Errorf("unsupported dimension %q", groupBy)
	}
	s := family.Schema()

	selects := make([]string, 0, 4)
	groups := make([]string, 0, 2)
	if byMonth {
		selects = append(selects, s.RowMonth+" AS month")
		groups = append(groups, s.RowMonth)
	}
	if groupBy != domainfacts.DimNone {
		selects = append(selects, string(groupBy)+" AS dim_key")
		groups = append(groups, string(groupBy))
	}
	selects = append(selects,
		fmt.Sprintf("CAST(COALESCE(SUM(%s), 0) AS BIGINT) AS claim", s.ClaimColumn),
		fmt.Sprintf("CAST(COALESCE(SUM(%s), 0) AS BIGINT) AS mm", s.MMColumn),
	)

	q := transaction.WithContext(dbc.Ctx).Table(s.RowTable).Select(selects)
	q = filter.apply(q, s.RowMonth)
	if byMonth {
		q = q.Where(s.RowMonth + " IS NOT NULL")
	}
	if groupBy != domainfacts.DimNone {
		q = q.Where(string(groupBy) + " IS NOT NULL")
	}
	for _, g := range groups {
		q = q.Group(g)
		q = q.Order(g)
	}

	var out []RowAggregate
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rowFactRepo) DistinctValues(dbc dbctx.Context, family domainfacts.Family, dim domainfacts.Dimension, filter RowFilter) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if !validDimension(dim) {
		return nil, fmt.Errorf("unsupported dimension %q", dim)
	}
	s := family.Schema()
	col := string(dim)
	q := transaction.WithContext(dbc.Ctx).Table(s.RowTable).
		Distinct(col).
		Where(col + " IS NOT NULL")
	q = filter.apply(q, s.RowMonth)

	out := []string{}
	if err := q.Order(col + " ASC").Pluck(col, &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rowFactRepo) MonthBounds(dbc dbctx.Context, family domainfacts.Family) (*time.Time, *time.Time, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	s := family.Schema()
	edge := func(dir string) (*time.Time, error) {
		var vals []time.Time
		err := transaction.WithContext(dbc.Ctx).Table(s.RowTable).
			Where(s.RowMonth + " IS NOT NULL").
			Order(s.RowMonth + " " + dir).
			Limit(1).
			Pluck(s.RowMonth, &vals).Error
		if err != nil || len(vals) == 0 {
			return nil, err
		}
		t := vals[0].UTC()
		return &t, nil
	}
	minMonth, err := edge("ASC")
	if err != nil {
		return nil, nil, err
	}
	maxMonth, err := edge("DESC")
	if err != nil {
		return nil, nil, err
	}
	return minMonth, maxMonth, nil
}

func (r *rowFactRepo) DistinctOdmPlantPairs(dbc dbctx.Context, family domainfacts.Family) ([]OdmPlantPair, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []OdmPlantPair
	err := transaction.WithContext(dbc.Ctx).Table(family.Schema().RowTable).
		Distinct("supplier_new", "plant").
		Where("supplier_new IS NOT NULL AND plant IS NOT NULL").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rowFactRepo) Count(dbc dbctx.Context, family domainfacts.Family) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).Table(family.Schema().RowTable).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
