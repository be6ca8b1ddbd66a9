package upload_etl

import (
	"context"
	"errors"
	"fmt"

	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/etl"
	jobrt "github.com/yungbote/kpi-visual-backend/internal/jobs/runtime"
)

// Run processes the task's files strictly in order, then refreshes the ODM to
// plant mapping. The first failing file fails the task; later files are left
// pending. Facts committed before the failure stay, so the analytics cache is
// flushed on that path too.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Task == nil {
		return nil
	}
	files := jc.Task.PresentFiles()
	jc.Log.Info("ETL started", "files", len(files))

	// dirty is set once any fact write may have committed.
	dirty := false
	for i, ft := range files {
		if err := jc.FileStatus(ft, domaintasks.FileStatusProcessing, nil); err != nil {
			p.fail(jc, err, dirty)
			return nil
		}
		rows, err := p.ingest(jc, ft)
		if err != nil {
			_ = jc.FileStatus(ft, domaintasks.FileStatusFailed, nil)
			p.fail(jc, fmt.Errorf("%s processing failed: %w", ft, err), dirty || errors.Is(err, etl.ErrPartialWrite))
			return nil
		}
		dirty = true
		if err := jc.FileStatus(ft, domaintasks.FileStatusCompleted, &rows); err != nil {
			p.fail(jc, err, dirty)
			return nil
		}
		if err := jc.Progress((i + 1) * 100 / len(files)); err != nil {
			p.fail(jc, err, dirty)
			return nil
		}
		jc.Log.Info("ETL file done", "file_type", string(ft), "rows", rows)
	}

	pairs, err := p.ingester.RefreshMappings(jc.Ctx)
	if err != nil {
		p.fail(jc, fmt.Errorf("odm plant mapping refresh failed: %w", err), dirty)
		return nil
	}
	if err := jc.Succeed(); err != nil {
		p.fail(jc, err, dirty)
		return nil
	}
	flushed := p.cache.Flush(context.WithoutCancel(jc.Ctx))
	jc.Log.Info("ETL completed", "mapping_pairs", pairs, "cache_keys_flushed", flushed)
	return nil
}

func (p *Pipeline) fail(jc *jobrt.Context, err error, dirty bool) {
	jc.Fail(err)
	if !dirty {
		return
	}
	flushed := p.cache.Flush(context.WithoutCancel(jc.Ctx))
	jc.Log.Warn("ETL failed after partial commit", "cache_keys_flushed", flushed)
}

func (p *Pipeline) ingest(jc *jobrt.Context, ft domaintasks.FileType) (int, error) {
	slot := jc.Task.Slot(ft)
	if slot.Location == nil {
		return 0, fmt.Errorf("no stored file")
	}
	rc, err := p.store.Open(jc.Ctx, *slot.Location)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return p.ingester.IngestFile(jc.Ctx, ft, rc, etl.Source{
		Location: *slot.Location,
		TaskID:   jc.Task.TaskID,
	})
}
