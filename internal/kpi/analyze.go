package kpi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos/facts"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
)

func (e *Engine) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	return g, gctx
}

func (e *Engine) plantsFor(ctx context.Context, family domainfacts.Family, odms []string) ([]string, error) {
	plants, err := e.mapping.PlantsForOdms(dbctx.New(ctx), family, odms)
	if err != nil {
		return nil, fmt.Errorf("plants for odms: %w", err)
	}
	return plants, nil
}

// AnalyzeOdm builds one card per requested ODM plus a pie when more than one is requested.
func (e *Engine) AnalyzeOdm(ctx context.Context, family domainfacts.Family, req OdmRequest) (*OdmAnalysis, error) {
	q, err := req.normalize(family)
	if err != nil {
		return nil, err
	}
	plantsByOdm, err := e.mapping.PlantsByOdm(dbctx.New(ctx), family, q.Odms)
	if err != nil {
		return nil, fmt.Errorf("plants by odm: %w", err)
	}

	res := &OdmAnalysis{Cards: make([]OdmCard, len(q.Odms))}
	g, gctx := e.group(ctx)
	g.Go(func() error {
		m, err := e.meta(gctx, family, req.TimeRange)
		res.Meta = m
		return err
	})
	g.Go(func() error {
		pie, err := e.pie(gctx, family, facts.RowFilter{
			Start: q.Start, End: q.End, Odms: q.Odms, Segments: q.Segments, Models: q.Models,
		}, AxisOdm, q.Odms)
		res.Summary = pie
		return err
	})
	for i, odm := range q.Odms {
		i, odm := i, odm
		g.Go(func() error {
			card, err := e.odmCard(gctx, family, q, odm, plantsByOdm[odm])
			if err != nil {
				return fmt.Errorf("odm %q: %w", odm, err)
			}
			res.Cards[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) odmCard(ctx context.Context, family domainfacts.Family, q odmQuery, odm string, plants []string) (OdmCard, error) {
	filter := facts.RowFilter{
		Start:    q.Start,
		End:      q.End,
		Odms:     []string{odm},
		Segments: q.Segments,
		Models:   q.Models,
	}
	trend, err := e.trend(ctx, family, filter)
	if err != nil {
		return OdmCard{}, err
	}
	top, monthly, err := e.modelsWithIssues(ctx, family, filter, facts.IssueFilter{
		Start:    q.Start,
		End:      q.End,
		Segments: q.Segments,
		Plants:   plants,
	}, q.Sort, q.TopN)
	if err != nil {
		return OdmCard{}, err
	}
	return OdmCard{
		Odm:              odm,
		Trend:            trend,
		TopModels:        top,
		MonthlyTopModels: monthly,
	}, nil
}

// AnalyzeSegment builds one card per requested segment. Detail issues are narrowed to
// the plants of the ODM cross-filter.
func (e *Engine) AnalyzeSegment(ctx context.Context, family domainfacts.Family, req SegmentRequest) (*SegmentAnalysis, error) {
	q, err := req.normalize(family)
	if err != nil {
		return nil, err
	}
	plants, err := e.plantsFor(ctx, family, q.Odms)
	if err != nil {
		return nil, err
	}

	res := &SegmentAnalysis{Cards: make([]SegmentCard, len(q.Segments))}
	g, gctx := e.group(ctx)
	g.Go(func() error {
		m, err := e.meta(gctx, family, req.TimeRange)
		res.Meta = m
		return err
	})
	g.Go(func() error {
		pie, err := e.pie(gctx, family, facts.RowFilter{
			Start: q.Start, End: q.End, Segments: q.Segments, Odms: q.Odms, Models: q.Models,
		}, AxisSegment, q.Segments)
		res.Summary = pie
		return err
	})
	for i, segment := range q.Segments {
		i, segment := i, segment
		g.Go(func() error {
			card, err := e.segmentCard(gctx, family, q, segment, plants)
			if err != nil {
				return fmt.Errorf("segment %q: %w", segment, err)
			}
			res.Cards[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) segmentCard(ctx context.Context, family domainfacts.Family, q segmentQuery, segment string, plants []string) (SegmentCard, error) {
	filter := facts.RowFilter{
		Start:    q.Start,
		End:      q.End,
		Segments: []string{segment},
		Odms:     q.Odms,
		Models:   q.Models,
	}
	trend, err := e.trend(ctx, family, filter)
	if err != nil {
		return SegmentCard{}, err
	}
	topOdms, err := e.ranking(ctx, family, filter, AxisOdm, q.OdmSort, q.TopN)
	if err != nil {
		return SegmentCard{}, err
	}
	monthlyOdms, err := e.monthlyRanking(ctx, family, filter, AxisOdm, q.OdmSort, q.TopN)
	if err != nil {
		return SegmentCard{}, err
	}
	topModels, monthlyModels, err := e.modelsWithIssues(ctx, family, filter, facts.IssueFilter{
		Start:    q.Start,
		End:      q.End,
		Segments: []string{segment},
		Plants:   plants,
	}, q.ModelSort, q.TopN)
	if err != nil {
		return SegmentCard{}, err
	}
	return SegmentCard{
		Segment:          segment,
		Trend:            trend,
		TopOdms:          topOdms,
		TopModels:        topModels,
		MonthlyTopOdms:   monthlyOdms,
		MonthlyTopModels: monthlyModels,
	}, nil
}

// AnalyzeModel builds one card per requested model with its trend and issue breakdown.
func (e *Engine) AnalyzeModel(ctx context.Context, family domainfacts.Family, req ModelRequest) (*ModelAnalysis, error) {
	q, err := req.normalize(family)
	if err != nil {
		return nil, err
	}
	plants, err := e.plantsFor(ctx, family, q.Odms)
	if err != nil {
		return nil, err
	}

	res := &ModelAnalysis{Cards: make([]ModelCard, len(q.Models))}
	g, gctx := e.group(ctx)
	g.Go(func() error {
		m, err := e.meta(gctx, family, req.TimeRange)
		res.Meta = m
		return err
	})
	g.Go(func() error {
		pie, err := e.pie(gctx, family, facts.RowFilter{
			Start: q.Start, End: q.End, Models: q.Models, Segments: q.Segments, Odms: q.Odms,
		}, AxisModel, q.Models)
		res.Summary = pie
		return err
	})
	for i, model := range q.Models {
		i, model := i, model
		g.Go(func() error {
			card, err := e.modelCard(gctx, family, q, model, plants)
			if err != nil {
				return fmt.Errorf("model %q: %w", model, err)
			}
			res.Cards[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) modelCard(ctx context.Context, family domainfacts.Family, q modelQuery, model string, plants []string) (ModelCard, error) {
	trend, err := e.trend(ctx, family, facts.RowFilter{
		Start:    q.Start,
		End:      q.End,
		Models:   []string{model},
		Segments: q.Segments,
		Odms:     q.Odms,
	})
	if err != nil {
		return ModelCard{}, err
	}

	issueFilter := facts.IssueFilter{
		Start:    q.Start,
		End:      q.End,
		Models:   []string{model},
		Segments: q.Segments,
		Plants:   plants,
	}
	overall, err := e.topIssuesByModel(ctx, family, issueFilter, q.TopIssueN)
	if err != nil {
		return ModelCard{}, err
	}
	topIssues := overall[model]
	if topIssues == nil {
		topIssues = []IssueRow{}
	}

	counts, err := e.details.IssueCounts(dbctx.New(ctx), family, issueFilter, true)
	if err != nil {
		return ModelCard{}, fmt.Errorf("monthly issue counts: %w", err)
	}
	monthly := []MonthlyIssues{}
	var (
		month  time.Time
		bucket []issueCount
	)
	flush := func() {
		if len(bucket) == 0 {
			return
		}
		monthly = append(monthly, MonthlyIssues{
			Month: formatMonth(month),
			Items: rankIssues(bucket, q.TopIssueN, sumIssues(bucket)),
		})
		bucket = nil
	}
	for _, c := range counts {
		if !c.Month.Equal(month) {
			flush()
			month = c.Month
		}
		bucket = append(bucket, issueCount{Issue: c.Issue, Count: c.Count})
	}
	flush()

	return ModelCard{
		Model:            model,
		Trend:            trend,
		TopIssues:        topIssues,
		MonthlyTopIssues: monthly,
	}, nil
}

// IssueDetails pages through the claims behind one model's fault category, newest first.
func (e *Engine) IssueDetails(ctx context.Context, family domainfacts.Family, req IssueDetailRequest) (*IssueDetails, error) {
	q, err := req.normalize()
	if err != nil {
		return nil, err
	}
	plants, err := e.plantsFor(ctx, family, q.Odms)
	if err != nil {
		return nil, err
	}
	rows, total, err := e.details.ListIssueDetails(dbctx.New(ctx), family, facts.IssueFilter{
		Start:    q.Start,
		End:      q.End,
		Models:   []string{q.Model},
		Segments: q.Segments,
		Plants:   plants,
		Issue:    q.Issue,
	}, (q.Page-1)*q.PageSize, q.PageSize)
	if err != nil {
		return nil, fmt.Errorf("issue details: %w", err)
	}
	items := make([]IssueDetailItem, 0, len(rows))
	for _, r := range rows {
		item := IssueDetailItem{
			ClaimNbr:           r.ClaimNbr,
			ClaimMonth:         monthOrBlank(r.ClaimMonth),
			ProblemDescrByTech: r.ProblemDescrByTech,
			Plant:              r.Plant,
		}
		if r.Model != nil {
			item.Model = *r.Model
		}
		if r.FaultCategory != nil {
			item.FaultCategory = *r.FaultCategory
		}
		items = append(items, item)
	}
	return &IssueDetails{Total: total, Page: q.Page, PageSize: q.PageSize, Items: items}, nil
}
