package user

import (
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type ListFilter struct {
	Query  string
	Role   string
	Offset int
	Limit  int
}

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, id uint) (*types.User, error)
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)
	EmailTaken(dbc dbctx.Context, email string, exceptID uint) (bool, error)
	List(dbc dbctx.Context, filter ListFilter) ([]*types.User, int64, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	if len(users) == 0 {
		return []*types.User{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uint) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if id == 0 {
		return nil, nil
	}
	var u types.User
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (ur *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var u types.User
	if err := transaction.WithContext(dbc.Ctx).Where("username = ?", username).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (ur *userRepo) EmailTaken(dbc dbctx.Context, email string, exceptID uint) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var count int64
	q := transaction.WithContext(dbc.Ctx).Model(&types.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) List(dbc dbctx.Context, filter ListFilter) ([]*types.User, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.User{})
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.User
	if err := q.Order("id DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (ur *userRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}
