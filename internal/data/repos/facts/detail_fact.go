package facts

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

// IssueCount is the number of claims per (month, model, fault category).
// Month is zero unless the query was bucketed by month.
type IssueCount struct {
	Month time.Time `gorm:"column:month"`
	Model string    `gorm:"column:model"`
	Issue string    `gorm:"column:issue"`
	Count int64     `gorm:"column:cnt"`
}

// IssueDetail is one claim behind an issue count.
type IssueDetail struct {
	ClaimNbr           string     `gorm:"column:claim_nbr"`
	Model              *string    `gorm:"column:model"`
	FaultCategory      *string    `gorm:"column:fault_category"`
	ProblemDescrByTech *string    `gorm:"column:problem_descr_by_tech"`
	ClaimMonth         *time.Time `gorm:"column:claim_month"`
	Plant              *string    `gorm:"column:plant"`
}

type DetailFactRepo interface {
	UpsertIfirDetails(dbc dbctx.Context, rows []*types.IfirDetailFact) error
	UpsertRaDetails(dbc dbctx.Context, rows []*types.RaDetailFact) error
	IssueCounts(dbc dbctx.Context, family domainfacts.Family, filter IssueFilter, byMonth bool) ([]IssueCount, error)
	ListIssueDetails(dbc dbctx.Context, family domainfacts.Family, filter IssueFilter, offset, limit int) ([]IssueDetail, int64, error)
	Count(dbc dbctx.Context, family domainfacts.Family) (int64, error)
}

type detailFactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDetailFactRepo(db *gorm.DB, baseLog *logger.Logger) DetailFactRepo {
	return &detailFactRepo{
		db:  db,
		log: baseLog.With("repo", "DetailFactRepo"),
	}
}

func (r *detailFactRepo) UpsertIfirDetails(dbc dbctx.Context, rows []*types.IfirDetailFact) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "claim_nbr"}},
			DoUpdates: clause.AssignmentColumns(domainfacts.DetailUpdateColumns(domainfacts.FamilyIFIR)),
		}).
		Create(&rows).Error
}

func (r *detailFactRepo) UpsertRaDetails(dbc dbctx.Context, rows []*types.RaDetailFact) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "claim_nbr"}},
			DoUpdates: clause.AssignmentColumns(domainfacts.DetailUpdateColumns(domainfacts.FamilyRA)),
		}).
		Create(&rows).Error
}

func (r *detailFactRepo) IssueCounts(dbc dbctx.Context, family domainfacts.Family, filter IssueFilter, byMonth bool) ([]IssueCount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	s := family.Schema()
	selects := []string{"model", "fault_category AS issue", "COUNT(*) AS cnt"}
	if byMonth {
		selects = append([]string{s.DetailMonth + " AS month"}, selects...)
	}
	q := transaction.WithContext(dbc.Ctx).Table(s.DetailTable).Select(selects)
	q = filter.apply(q, s.DetailMonth).Where("model IS NOT NULL")
	if byMonth {
		q = q.Where(s.DetailMonth + " IS NOT NULL").Group(s.DetailMonth).Order(s.DetailMonth)
	}
	q = q.Group("model").Group("fault_category").
		Order("model").Order("cnt DESC").Order("fault_category")

	var out []IssueCount
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *detailFactRepo) ListIssueDetails(dbc dbctx.Context, family domainfacts.Family, filter IssueFilter, offset, limit int) ([]IssueDetail, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	s := family.Schema()
	base := filter.apply(transaction.WithContext(dbc.Ctx).Table(s.DetailTable), s.DetailMonth)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []IssueDetail
	err := base.Session(&gorm.Session{}).
		Select("claim_nbr", "model", "fault_category", "problem_descr_by_tech", "claim_month", "plant").
		Order("claim_month DESC").
		Order("claim_nbr ASC").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *detailFactRepo) Count(dbc dbctx.Context, family domainfacts.Family) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).Table(family.Schema().DetailTable).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
