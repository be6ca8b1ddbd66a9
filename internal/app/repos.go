package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type Repos struct {
	User       repos.UserRepo
	RowFact    repos.RowFactRepo
	DetailFact repos.DetailFactRepo
	OdmPlant   repos.OdmPlantRepo
	UploadTask repos.UploadTaskRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		RowFact:    repos.NewRowFactRepo(db, log),
		DetailFact: repos.NewDetailFactRepo(db, log),
		OdmPlant:   repos.NewOdmPlantRepo(db, log),
		UploadTask: repos.NewUploadTaskRepo(db, log),
	}
}
