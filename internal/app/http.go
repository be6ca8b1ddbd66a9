package app

import (
	apphttp "github.com/yungbote/kpi-visual-backend/internal/http"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		ServiceName:       cfg.Otel.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		Tracing:           cfg.Otel.Enabled,
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		AdminUserHandler:  handlers.AdminUser,
		UploadHandler:     handlers.Upload,
		AnalyticsHandlers: handlers.Analytics,
	})
}
