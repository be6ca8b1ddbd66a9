package repos

import (
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/facts"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/mapping"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/user"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo

type RowFactRepo = facts.RowFactRepo
type DetailFactRepo = facts.DetailFactRepo
type OdmPlantRepo = mapping.OdmPlantRepo

type UploadTaskRepo = tasks.UploadTaskRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewRowFactRepo(db *gorm.DB, baseLog *logger.Logger) RowFactRepo {
	return facts.NewRowFactRepo(db, baseLog)
}
func NewDetailFactRepo(db *gorm.DB, baseLog *logger.Logger) DetailFactRepo {
	return facts.NewDetailFactRepo(db, baseLog)
}
func NewOdmPlantRepo(db *gorm.DB, baseLog *logger.Logger) OdmPlantRepo {
	return mapping.NewOdmPlantRepo(db, baseLog)
}

func NewUploadTaskRepo(db *gorm.DB, baseLog *logger.Logger) UploadTaskRepo {
	return tasks.NewUploadTaskRepo(db, baseLog)
}
