package etl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/normalization"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

// DefaultBatchSize is the number of facts written per upsert statement.
const DefaultBatchSize = 500

type Pipeline struct {
	log       *logger.Logger
	rows      repos.RowFactRepo
	details   repos.DetailFactRepo
	mapping   repos.OdmPlantRepo
	batchSize int
}

func New(baseLog *logger.Logger, rows repos.RowFactRepo, details repos.DetailFactRepo, mapping repos.OdmPlantRepo, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		log:       baseLog.With("component", "ETLPipeline"),
		rows:      rows,
		details:   details,
		mapping:   mapping,
		batchSize: batchSize,
	}
}

// IngestFile routes one stored spreadsheet to the row or detail pipeline.
func (p *Pipeline) IngestFile(ctx context.Context, ft domaintasks.FileType, r io.Reader, src Source) (int, error) {
	if _, ok := domaintasks.ParseFileType(string(ft)); !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFile, ft)
	}
	family, detail := FileFamily(ft)
	if detail {
		return p.IngestDetails(ctx, family, r, src)
	}
	return p.IngestRows(ctx, family, r, src)
}

// RefreshMappings derives (odm, plant) pairs from both row tables and adds the
// ones not yet known. Pairs are never removed. Returns the number of pairs seen.
func (p *Pipeline) RefreshMappings(ctx context.Context) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	total := 0
	for _, family := range domainfacts.Families {
		pairs, err := p.rows.DistinctOdmPlantPairs(dbc, family)
		if err != nil {
			return total, fmt.Errorf("%s odm/plant pairs: %w", family, err)
		}
		seen := map[[2]string]struct{}{}
		mappings := make([]*types.OdmPlantMapping, 0, len(pairs))
		for _, pair := range pairs {
			odm := strings.TrimSpace(pair.Odm)
			if odm == "" {
				odm = normalization.Missing
			}
			plant := strings.TrimSpace(pair.Plant)
			if plant == "" {
				continue
			}
			key := [2]string{odm, plant}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			mappings = append(mappings, &types.OdmPlantMapping{
				KpiType:     string(family),
				SupplierNew: odm,
				Plant:       plant,
			})
		}
		if err := p.mapping.Upsert(dbc, mappings); err != nil {
			return total, fmt.Errorf("%s mapping upsert: %w", family, err)
		}
		total += len(mappings)
	}
	p.log.Info("ODM plant mapping refreshed", "pairs", total)
	return total, nil
}

func detailFileType(family domainfacts.Family) domaintasks.FileType {
	if family == domainfacts.FamilyRA {
		return domaintasks.FileRaDetail
	}
	return domaintasks.FileIfirDetail
}
