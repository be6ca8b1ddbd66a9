package upload_etl

import (
	"context"
	"io"

	"github.com/yungbote/kpi-visual-backend/internal/cache"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/filestore"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/etl"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

// Ingester is the part of the ETL pipeline the task handler drives.
type Ingester interface {
	IngestFile(ctx context.Context, ft domaintasks.FileType, r io.Reader, src etl.Source) (int, error)
	RefreshMappings(ctx context.Context) (int, error)
}

type Pipeline struct {
	log      *logger.Logger
	ingester Ingester
	store    filestore.Store
	cache    cache.Cache
}

func New(baseLog *logger.Logger, ingester Ingester, store filestore.Store, c cache.Cache) *Pipeline {
	if c == nil {
		c = cache.Nop()
	}
	return &Pipeline{
		log:      baseLog.With("job", domaintasks.JobTypeETL),
		ingester: ingester,
		store:    store,
		cache:    c,
	}
}

func (p *Pipeline) Type() string { return domaintasks.JobTypeETL }
