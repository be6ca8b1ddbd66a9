package kpi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos/facts"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

const DefaultConcurrency = 4

// Engine computes KPI analyses over the row, detail and mapping repositories.
// It is read-only and safe for concurrent use.
type Engine struct {
	log         *logger.Logger
	rows        repos.RowFactRepo
	details     repos.DetailFactRepo
	mapping     repos.OdmPlantRepo
	concurrency int
	flight      singleflight.Group
}

func NewEngine(baseLog *logger.Logger, rows repos.RowFactRepo, details repos.DetailFactRepo, mapping repos.OdmPlantRepo, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		log:         baseLog.With("component", "KPIEngine"),
		rows:        rows,
		details:     details,
		mapping:     mapping,
		concurrency: concurrency,
	}
}

type monthBounds struct {
	min, max *time.Time
}

// bounds collapses concurrent lookups of the same family's month range into one query.
func (e *Engine) bounds(ctx context.Context, family domainfacts.Family) (monthBounds, error) {
	v, err, _ := e.flight.Do("bounds:"+string(family), func() (interface{}, error) {
		lo, hi, err := e.rows.MonthBounds(dbctx.New(ctx), family)
		if err != nil {
			return monthBounds{}, err
		}
		return monthBounds{min: lo, max: hi}, nil
	})
	if err != nil {
		return monthBounds{}, fmt.Errorf("month bounds: %w", err)
	}
	return v.(monthBounds), nil
}

func (e *Engine) meta(ctx context.Context, family domainfacts.Family, tr TimeRange) (Meta, error) {
	b, err := e.bounds(ctx, family)
	if err != nil {
		return Meta{}, err
	}
	asOf := tr.EndMonth
	if b.max != nil {
		asOf = formatMonth(*b.max)
	}
	return Meta{DataAsOf: asOf, TimeRange: tr}, nil
}

// Options lists the filter values of a family. Each list is narrowed only by the
// other two selections, so a selection never removes its own alternatives.
func (e *Engine) Options(ctx context.Context, family domainfacts.Family, req OptionsRequest) (*Options, error) {
	segments, odms, models := cleanList(req.Segments), cleanList(req.Odms), cleanList(req.Models)
	out := &Options{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	g.Go(func() error {
		b, err := e.bounds(gctx, family)
		if err != nil {
			return err
		}
		out.MonthMin = monthOrBlank(b.min)
		out.MonthMax = monthOrBlank(b.max)
		return nil
	})
	distinct := func(dim domainfacts.Dimension, filter facts.RowFilter, dst *[]string) {
		g.Go(func() error {
			vals, err := e.rows.DistinctValues(dbctx.New(gctx), family, dim, filter)
			if err != nil {
				return fmt.Errorf("distinct %s: %w", dim, err)
			}
			*dst = vals
			return nil
		})
	}
	distinct(domainfacts.DimSegment, facts.RowFilter{Odms: odms, Models: models}, &out.Segments)
	distinct(domainfacts.DimOdm, facts.RowFilter{Segments: segments, Models: models}, &out.Odms)
	distinct(domainfacts.DimModel, facts.RowFilter{Segments: segments, Odms: odms}, &out.Models)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.DataAsOf = out.MonthMax
	out.TimeRange = OptionsRange{MinMonth: out.MonthMin, MaxMonth: out.MonthMax}
	return out, nil
}

// trend sums the family's metrics per month that has data, ascending.
func (e *Engine) trend(ctx context.Context, family domainfacts.Family, filter facts.RowFilter) ([]TrendPoint, error) {
	aggs, err := e.rows.Aggregate(dbctx.New(ctx), family, filter, domainfacts.DimNone, true)
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}
	out := make([]TrendPoint, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, TrendPoint{
			Month:  formatMonth(a.Month),
			Ratio:  Ratio(a.Claim, a.MM),
			Claim:  a.Claim,
			MM:     a.MM,
			family: family,
		})
	}
	return out, nil
}

func toRankRows(groups []group, axis Axis, family domainfacts.Family) []RankRow {
	out := make([]RankRow, 0, len(groups))
	for i, g := range groups {
		out = append(out, RankRow{
			Rank:   i + 1,
			Name:   g.Name,
			Ratio:  g.ratio(),
			Claim:  g.Claim,
			MM:     g.MM,
			axis:   axis,
			family: family,
		})
	}
	return out
}

// ranking groups by axis over the whole window and keeps the top n.
func (e *Engine) ranking(ctx context.Context, family domainfacts.Family, filter facts.RowFilter, axis Axis, key SortKey, n int) ([]RankRow, error) {
	aggs, err := e.rows.Aggregate(dbctx.New(ctx), family, filter, axis.Dimension(), false)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", axis, err)
	}
	groups := make([]group, 0, len(aggs))
	for _, a := range aggs {
		groups = append(groups, group{Name: a.Key, Claim: a.Claim, MM: a.MM})
	}
	return toRankRows(rankGroups(groups, key, n), axis, family), nil
}

// monthlyRanking ranks independently within each month that has data.
func (e *Engine) monthlyRanking(ctx context.Context, family domainfacts.Family, filter facts.RowFilter, axis Axis, key SortKey, n int) ([]MonthlyRanking, error) {
	aggs, err := e.rows.Aggregate(dbctx.New(ctx), family, filter, axis.Dimension(), true)
	if err != nil {
		return nil, fmt.Errorf("monthly top %s: %w", axis, err)
	}
	out := []MonthlyRanking{}
	var (
		month  time.Time
		groups []group
	)
	flush := func() {
		if len(groups) == 0 {
			return
		}
		out = append(out, MonthlyRanking{
			Month: formatMonth(month),
			Items: toRankRows(rankGroups(groups, key, n), axis, family),
		})
		groups = nil
	}
	for _, a := range aggs {
		if !a.Month.Equal(month) {
			flush()
			month = a.Month
		}
		groups = append(groups, group{Name: a.Key, Claim: a.Claim, MM: a.MM})
	}
	flush()
	return out, nil
}

// pie summarizes each requested entity present in the data, in request order.
// It returns nil for a single-entity request.
func (e *Engine) pie(ctx context.Context, family domainfacts.Family, filter facts.RowFilter, axis Axis, entities []string) (*PieSummary, error) {
	if len(entities) <= 1 {
		return nil, nil
	}
	aggs, err := e.rows.Aggregate(dbctx.New(ctx), family, filter, axis.Dimension(), false)
	if err != nil {
		return nil, fmt.Errorf("%s pie: %w", axis, err)
	}
	byKey := make(map[string]facts.RowAggregate, len(aggs))
	var total int64
	for _, a := range aggs {
		byKey[a.Key] = a
		total += a.Claim
	}
	rows := make([]PieRow, 0, len(entities))
	for _, name := range entities {
		a, ok := byKey[name]
		if !ok {
			continue
		}
		rows = append(rows, PieRow{
			Name:   name,
			Ratio:  Ratio(a.Claim, a.MM),
			Share:  Share(a.Claim, total),
			Claim:  a.Claim,
			MM:     a.MM,
			axis:   axis,
			family: family,
		})
	}
	return &PieSummary{Rows: rows, axis: axis}, nil
}

// topIssuesByModel returns the n most frequent fault categories of each model in
// filter.Models; shares are against the model's full issue total.
func (e *Engine) topIssuesByModel(ctx context.Context, family domainfacts.Family, filter facts.IssueFilter, n int) (map[string][]IssueRow, error) {
	out := map[string][]IssueRow{}
	if len(filter.Models) == 0 {
		return out, nil
	}
	counts, err := e.details.IssueCounts(dbctx.New(ctx), family, filter, false)
	if err != nil {
		return nil, fmt.Errorf("issue counts: %w", err)
	}
	perModel := map[string][]issueCount{}
	for _, c := range counts {
		perModel[c.Model] = append(perModel[c.Model], issueCount{Issue: c.Issue, Count: c.Count})
	}
	for model, cs := range perModel {
		out[model] = rankIssues(cs, n, sumIssues(cs))
	}
	return out, nil
}

func modelNames(rows []RankRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

// attachIssues sets TopIssues on every model row, always to a non-nil slice.
func attachIssues(rows []RankRow, issues map[string][]IssueRow) {
	for i := range rows {
		if list, ok := issues[rows[i].Name]; ok {
			rows[i].TopIssues = list
		} else {
			rows[i].TopIssues = []IssueRow{}
		}
	}
}

// modelsWithIssues ranks models and attaches the top issue of each, including
// in every monthly ranking.
func (e *Engine) modelsWithIssues(ctx context.Context, family domainfacts.Family, filter facts.RowFilter, issueFilter facts.IssueFilter, key SortKey, n int) ([]RankRow, []MonthlyRanking, error) {
	top, err := e.ranking(ctx, family, filter, AxisModel, key, n)
	if err != nil {
		return nil, nil, err
	}
	monthly, err := e.monthlyRanking(ctx, family, filter, AxisModel, key, n)
	if err != nil {
		return nil, nil, err
	}
	names := modelNames(top)
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		seen[name] = struct{}{}
	}
	for _, m := range monthly {
		for _, item := range m.Items {
			if _, ok := seen[item.Name]; !ok {
				seen[item.Name] = struct{}{}
				names = append(names, item.Name)
			}
		}
	}
	issueFilter.Models = names
	issues, err := e.topIssuesByModel(ctx, family, issueFilter, 1)
	if err != nil {
		return nil, nil, err
	}
	attachIssues(top, issues)
	for i := range monthly {
		attachIssues(monthly[i].Items, issues)
	}
	return top, monthly, nil
}
