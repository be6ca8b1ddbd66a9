package etl

import (
	"context"
	"fmt"
	"io"
	"strings"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/sheet"
	"github.com/yungbote/kpi-visual-backend/internal/normalization"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

// ParseRows turns a row sheet into records. Lines whose month cell is not a
// date are footers or filter captions and are skipped; skipped counts them.
func ParseRows(tbl *sheet.Table, family domainfacts.Family) (records []*RowRecord, skipped int, err error) {
	if missing := tbl.Missing(requiredRowColumns...); len(missing) > 0 {
		for i, col := range missing {
			if col == colMonthAxis {
				missing[i] = family.Schema().RowMonth
			}
		}
		return nil, 0, fmt.Errorf("%w: %s (found: %s)", ErrMissingColumn,
			strings.Join(missing, ", "), strings.Join(tbl.RawHeaders, ", "))
	}

	for i, row := range tbl.Rows {
		line := tbl.Lines[i]
		date, ok := normalization.ParseDate(tbl.Cell(row, colMonthAxis))
		if !ok {
			skipped++
			continue
		}
		supplier := tbl.Cell(row, colSupplier)
		if supplier == "" {
			supplier = normalization.Missing
		}
		year, ok := parseOptionalInt(tbl.Cell(row, colYear))
		if !ok {
			return nil, skipped, &CellError{Line: line, Column: colYear, Value: tbl.Cell(row, colYear)}
		}
		month, ok := parseOptionalInt(tbl.Cell(row, colMonth))
		if !ok {
			return nil, skipped, &CellError{Line: line, Column: colMonth, Value: tbl.Cell(row, colMonth)}
		}
		records = append(records, &RowRecord{
			Family:      family,
			Date:        date,
			Brand:       normalization.TrimToNil(tbl.Cell(row, colBrand)),
			Geo:         normalization.TrimToNil(tbl.Cell(row, colGeo)),
			ProductLine: normalization.TrimToNil(tbl.Cell(row, colProductLine)),
			Segment:     normalization.TrimToNil(tbl.Cell(row, colSegment)),
			Series:      normalization.TrimToNil(tbl.Cell(row, colSeries)),
			Model:       normalization.TrimToNil(tbl.Cell(row, colModel)),
			Plant:       normalization.TrimToNil(tbl.Cell(row, colPlant)),
			MachType:    normalization.TrimToNil(tbl.Cell(row, colMachType)),
			SupplierNew: supplier,
			Claim:       parseMetric(tbl.Cell(row, colClaim)),
			MM:          parseMetric(tbl.Cell(row, colMM)),
			Year:        year,
			Month:       month,
		})
	}
	return records, skipped, nil
}

// IngestRows loads a row sheet into the family's row fact table and returns the
// number of valid rows. Each chunk commits on its own; a failure leaves earlier
// chunks in place.
func (p *Pipeline) IngestRows(ctx context.Context, family domainfacts.Family, r io.Reader, src Source) (int, error) {
	log := p.log.With("family", string(family), "kind", "row", "task_id", src.TaskID)
	tbl, err := sheet.Read(r, rowColumns(family))
	if err != nil {
		return 0, err
	}
	records, skipped, err := ParseRows(tbl, family)
	if err != nil {
		return 0, err
	}
	log.Info("Row sheet parsed", "lines", len(tbl.Rows), "valid", len(records), "skipped", skipped)

	// identical lines share a hash; a single upsert statement may not touch the
	// same key twice
	seen := make(map[string]struct{}, len(records))
	var ifir []*types.IfirRowFact
	var ra []*types.RaRowFact
	for _, rec := range records {
		h := rec.Hash()
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if family == domainfacts.FamilyRA {
			ra = append(ra, rec.RaFact(h, src))
		} else {
			ifir = append(ifir, rec.IfirFact(h, src))
		}
	}

	dbc := dbctx.Context{Ctx: ctx}
	written := 0
	if family == domainfacts.FamilyRA {
		err = chunk(ra, p.batchSize, func(part []*types.RaRowFact) error {
			if err := p.rows.UpsertRaRows(dbc, part); err != nil {
				return err
			}
			written += len(part)
			log.Debug("Row chunk upserted", "written", written, "total", len(ra))
			return nil
		})
	} else {
		err = chunk(ifir, p.batchSize, func(part []*types.IfirRowFact) error {
			if err := p.rows.UpsertIfirRows(dbc, part); err != nil {
				return err
			}
			written += len(part)
			log.Debug("Row chunk upserted", "written", written, "total", len(ifir))
			return nil
		})
	}
	if err != nil {
		return 0, writeError("rows", written, err)
	}
	return len(records), nil
}

func rowColumns(family domainfacts.Family) map[string]string {
	if family == domainfacts.FamilyRA {
		return raRowColumns
	}
	return ifirRowColumns
}

func chunk[T any](items []T, size int, fn func([]T) error) error {
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		if err := fn(items[start:end]); err != nil {
			return err
		}
	}
	return nil
}
