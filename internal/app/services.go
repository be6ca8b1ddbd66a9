package app

import (
	"context"
	"fmt"

	"github.com/yungbote/kpi-visual-backend/internal/cache"
	"github.com/yungbote/kpi-visual-backend/internal/filestore"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/etl"
	"github.com/yungbote/kpi-visual-backend/internal/jobs/pipeline/upload_etl"
	"github.com/yungbote/kpi-visual-backend/internal/jobs/runtime"
	"github.com/yungbote/kpi-visual-backend/internal/jobs/worker"
	"github.com/yungbote/kpi-visual-backend/internal/kpi"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
	"github.com/yungbote/kpi-visual-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Users     services.UserService
	Uploads   services.UploadService
	Analytics services.AnalyticsService

	Engine *kpi.Engine
	ETL    *etl.Pipeline
	Worker *worker.Worker
	Cache  cache.Cache
	Store  filestore.Store
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, repos Repos) (Services, error) {
	log.Info("Wiring services...")

	store, err := resolveFileStore(ctx, log, cfg)
	if err != nil {
		return Services{}, err
	}

	responseCache := cache.Nop()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(cfg.RedisAddr, cfg.CacheTTL, log)
		if err != nil {
			// analytics still work uncached
			log.Warn("redis unavailable, analytics cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			responseCache = rc
		}
	}

	ingester := etl.New(log, repos.RowFact, repos.DetailFact, repos.OdmPlant, cfg.ETLBatchSize)

	registry := runtime.NewRegistry()
	if err := registry.Register(upload_etl.New(log, ingester, store, responseCache)); err != nil {
		return Services{}, fmt.Errorf("register upload_etl: %w", err)
	}
	taskWorker := worker.NewWorker(log, repos.UploadTask, registry, worker.Config{
		Concurrency:  cfg.WorkerCount,
		PollInterval: cfg.WorkerPoll,
	})

	engine := kpi.NewEngine(log, repos.RowFact, repos.DetailFact, repos.OdmPlant, cfg.AnalyzeConcurrency)

	return Services{
		Auth:      services.NewAuthService(log, repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Users:     services.NewUserService(log, repos.User),
		Uploads:   services.NewUploadService(log, repos.UploadTask, store, taskWorker),
		Analytics: services.NewAnalyticsService(log, engine, responseCache),
		Engine:    engine,
		ETL:       ingester,
		Worker:    taskWorker,
		Cache:     responseCache,
		Store:     store,
	}, nil
}
