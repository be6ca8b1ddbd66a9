package app

import (
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	httpH "github.com/yungbote/kpi-visual-backend/internal/http/handlers"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Auth      *httpH.AuthHandler
	AdminUser *httpH.AdminUserHandler
	Upload    *httpH.UploadHandler
	Analytics []*httpH.AnalyticsHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(ServiceName, ServiceVersion),
		Auth:      httpH.NewAuthHandler(services.Auth),
		AdminUser: httpH.NewAdminUserHandler(services.Users),
		Upload:    httpH.NewUploadHandler(log, services.Uploads, cfg.MaxUploadMB),
		Analytics: []*httpH.AnalyticsHandler{
			httpH.NewAnalyticsHandler(domainfacts.FamilyIFIR, services.Analytics),
			httpH.NewAnalyticsHandler(domainfacts.FamilyRA, services.Analytics),
		},
	}
}
