package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	domainuser "github.com/yungbote/kpi-visual-backend/internal/domain/user"
	httpH "github.com/yungbote/kpi-visual-backend/internal/http/handlers"
	httpMW "github.com/yungbote/kpi-visual-backend/internal/http/middleware"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Tracing     bool

	AuthHandler      *httpH.AuthHandler
	AuthMiddleware   *httpMW.AuthMiddleware
	AdminUserHandler *httpH.AdminUserHandler
	UploadHandler    *httpH.UploadHandler
	HealthHandler    *httpH.HealthHandler

	// One per family, mounted under /api/{family slug}.
	AnalyticsHandlers []*httpH.AnalyticsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	// Auth (public)
	if cfg.AuthHandler != nil {
		api.POST("/auth/login", cfg.AuthHandler.Login)
	}

	protected := api.Group("")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.GET("/auth/me", cfg.AuthHandler.Me)
			protected.PUT("/auth/me/password", cfg.AuthHandler.ChangePassword)
		}

		// Analytics
		for _, h := range cfg.AnalyticsHandlers {
			g := protected.Group("/" + h.Family().Slug())
			g.GET("/options", h.Options)
			g.GET("/odm-analysis/options", h.Options)
			g.GET("/segment-analysis/options", h.Options)
			g.GET("/model-analysis/options", h.Options)
			g.POST("/odm-analysis/analyze", h.AnalyzeOdm)
			g.POST("/segment-analysis/analyze", h.AnalyzeSegment)
			g.POST("/model-analysis/analyze", h.AnalyzeModel)
			g.POST("/model-analysis/issue-details", h.IssueDetails)
		}

		// Upload
		if cfg.UploadHandler != nil {
			upload := protected.Group("/upload")
			if cfg.AuthMiddleware != nil {
				upload.Use(cfg.AuthMiddleware.RequireRoles(domainuser.RoleAdmin, domainuser.RoleUploader))
			}
			upload.POST("", cfg.UploadHandler.Upload)
			upload.GET("/:task_id/status", cfg.UploadHandler.Status)
		}

		// Admin
		if cfg.AdminUserHandler != nil {
			admin := protected.Group("/admin")
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireRoles(domainuser.RoleAdmin))
			}
			admin.GET("/users", cfg.AdminUserHandler.List)
			admin.POST("/users", cfg.AdminUserHandler.Create)
			admin.GET("/users/:id", cfg.AdminUserHandler.Get)
			admin.PUT("/users/:id", cfg.AdminUserHandler.Update)
			admin.DELETE("/users/:id", cfg.AdminUserHandler.Delete)
			admin.POST("/users/:id/reset-password", cfg.AdminUserHandler.ResetPassword)
		}
	}

	return r
}
