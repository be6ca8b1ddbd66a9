package etl

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/ingestion/sheet"
	"github.com/yungbote/kpi-visual-backend/internal/normalization"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

// ParseDetails turns a detail sheet into one record per claim number. Lines
// without a claim number are dropped. When a claim repeats, the line with the
// latest date wins; undated lines lose to dated ones and ties keep sheet order.
func ParseDetails(tbl *sheet.Table, family domainfacts.Family) ([]*DetailRecord, error) {
	if !tbl.Has("claim_nbr") {
		return nil, fmt.Errorf("%w: claim_nbr (found: %s)", ErrMissingColumn, strings.Join(tbl.RawHeaders, ", "))
	}

	var records []*DetailRecord
	for _, row := range tbl.Rows {
		nbr := tbl.Cell(row, "claim_nbr")
		if nbr == "" {
			continue
		}
		rec := &DetailRecord{
			Family:     family,
			ClaimNbr:   nbr,
			ClaimMonth: optionalDate(tbl.Cell(row, "claim_month")),
			Common:     detailCommon(tbl, row),
		}
		if family == domainfacts.FamilyIFIR {
			rec.ClaimDate = optionalDate(tbl.Cell(row, "claim_date"))
			rec.DeliveryMonth = optionalDate(tbl.Cell(row, "delivery_month"))
			rec.DeliveryDay, _ = parseOptionalInt(tbl.Cell(row, "delivery_day"))
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ClaimNbr != records[j].ClaimNbr {
			return records[i].ClaimNbr < records[j].ClaimNbr
		}
		return later(records[i].SortDate(), records[j].SortDate())
	})
	out := make([]*DetailRecord, 0, len(records))
	for _, rec := range records {
		if n := len(out); n > 0 && out[n-1].ClaimNbr == rec.ClaimNbr {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// later orders dated before undated, newest first.
func later(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}

func optionalDate(raw string) *time.Time {
	t, ok := normalization.ParseDate(raw)
	if !ok {
		return nil
	}
	return &t
}

func optionalInt64(raw string) *int64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	v := int64(f)
	return &v
}

func detailCommon(tbl *sheet.Table, row []string) domainfacts.DetailCommon {
	cell := func(col string) *string { return normalization.TrimToNil(tbl.Cell(row, col)) }
	return domainfacts.DetailCommon{
		GeoNew:             cell("geo_2012"),
		FinancialRegion:    cell("financial_region"),
		Plant:              cell("plant"),
		Brand:              cell("brand"),
		Segment:            cell("segment"),
		Segment2:           cell("segment2"),
		Style:              cell("style"),
		Series:             cell("series"),
		Model:              cell("model"),
		MTM:                cell("mtm"),
		SerialNbr:          cell("serial_nbr"),
		StationName:        cell("stationname"),
		StationID:          optionalInt64(tbl.Cell(row, "station_id")),
		DataSource:         cell("data_source"),
		LastSln:            cell("lastsln"),
		FailureCode:        cell("failure_code"),
		FaultCategory:      cell("fault_category"),
		MachDesc:           cell("mach_desc"),
		ProblemDescr:       cell("problem_descr"),
		ProblemDescrByTech: cell("problem_descr_by_tech"),
		Commodity:          cell("commodity"),
		DownPartCode:       cell("down_part_code"),
		PartNbr:            cell("part_nbr"),
		PartDesc:           cell("part_desc"),
		PartSupplier:       cell("part_supplier"),
		PartBarcode:        cell("part_barcode"),
		PackingLotNo:       cell("packing_lot_no"),
		ClaimItemNbr:       cell("claim_item_nbr"),
		ClaimStatus:        cell("claim_status"),
		Channel:            cell("channel"),
		CustNbr:            cell("cust_nbr"),
	}
}

// IngestDetails loads a detail sheet, replacing stored claims with the same
// claim number, and returns the number of distinct claims written.
func (p *Pipeline) IngestDetails(ctx context.Context, family domainfacts.Family, r io.Reader, src Source) (int, error) {
	log := p.log.With("family", string(family), "kind", "detail", "task_id", src.TaskID)
	ft := detailFileType(family)
	tbl, err := sheet.Read(r, ColumnMap(ft))
	if err != nil {
		return 0, err
	}
	records, err := ParseDetails(tbl, family)
	if err != nil {
		return 0, err
	}
	log.Info("Detail sheet parsed", "lines", len(tbl.Rows), "claims", len(records))

	dbc := dbctx.Context{Ctx: ctx}
	written := 0
	if family == domainfacts.FamilyRA {
		facts := make([]*types.RaDetailFact, 0, len(records))
		for _, rec := range records {
			facts = append(facts, rec.RaFact())
		}
		err = chunk(facts, p.batchSize, func(part []*types.RaDetailFact) error {
			if err := p.details.UpsertRaDetails(dbc, part); err != nil {
				return err
			}
			written += len(part)
			return nil
		})
	} else {
		facts := make([]*types.IfirDetailFact, 0, len(records))
		for _, rec := range records {
			facts = append(facts, rec.IfirFact())
		}
		err = chunk(facts, p.batchSize, func(part []*types.IfirDetailFact) error {
			if err := p.details.UpsertIfirDetails(dbc, part); err != nil {
				return err
			}
			written += len(part)
			return nil
		})
	}
	if err != nil {
		return 0, writeError("details", written, err)
	}
	return written, nil
}
