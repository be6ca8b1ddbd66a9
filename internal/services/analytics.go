package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/kpi-visual-backend/internal/cache"
	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/kpi"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

// AnalyticsService fronts the KPI engine with the response cache. Results are
// returned as encoded JSON because the response rows pick their keys per family.
type AnalyticsService interface {
	Options(ctx context.Context, family domainfacts.Family, req kpi.OptionsRequest) (json.RawMessage, error)
	AnalyzeOdm(ctx context.Context, family domainfacts.Family, req kpi.OdmRequest) (json.RawMessage, error)
	AnalyzeSegment(ctx context.Context, family domainfacts.Family, req kpi.SegmentRequest) (json.RawMessage, error)
	AnalyzeModel(ctx context.Context, family domainfacts.Family, req kpi.ModelRequest) (json.RawMessage, error)
	IssueDetails(ctx context.Context, family domainfacts.Family, req kpi.IssueDetailRequest) (json.RawMessage, error)
}

type analyticsService struct {
	log    *logger.Logger
	engine *kpi.Engine
	cache  cache.Cache
}

func NewAnalyticsService(baseLog *logger.Logger, engine *kpi.Engine, c cache.Cache) AnalyticsService {
	if c == nil {
		c = cache.Nop()
	}
	return &analyticsService{
		log:    baseLog.With("service", "AnalyticsService"),
		engine: engine,
		cache:  c,
	}
}

func cached[Req any, Res any](
	ctx context.Context,
	s *analyticsService,
	family domainfacts.Family,
	op string,
	req Req,
	compute func(context.Context, domainfacts.Family, Req) (Res, error),
) (json.RawMessage, error) {
	key := cache.Key(family, op, req)
	var hit json.RawMessage
	if s.cache.Get(ctx, key, &hit) && len(hit) > 0 {
		return hit, nil
	}
	res, err := compute(ctx, family, req)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", op, err)
	}
	s.cache.Set(ctx, key, json.RawMessage(raw))
	return raw, nil
}

func (s *analyticsService) Options(ctx context.Context, family domainfacts.Family, req kpi.OptionsRequest) (json.RawMessage, error) {
	return cached(ctx, s, family, "options", req, s.engine.Options)
}

func (s *analyticsService) AnalyzeOdm(ctx context.Context, family domainfacts.Family, req kpi.OdmRequest) (json.RawMessage, error) {
	return cached(ctx, s, family, "odm", req, s.engine.AnalyzeOdm)
}

func (s *analyticsService) AnalyzeSegment(ctx context.Context, family domainfacts.Family, req kpi.SegmentRequest) (json.RawMessage, error) {
	return cached(ctx, s, family, "segment", req, s.engine.AnalyzeSegment)
}

func (s *analyticsService) AnalyzeModel(ctx context.Context, family domainfacts.Family, req kpi.ModelRequest) (json.RawMessage, error) {
	return cached(ctx, s, family, "model", req, s.engine.AnalyzeModel)
}

// IssueDetails is paged and not cached.
func (s *analyticsService) IssueDetails(ctx context.Context, family domainfacts.Family, req kpi.IssueDetailRequest) (json.RawMessage, error) {
	res, err := s.engine.IssueDetails(ctx, family, req)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode issue details: %w", err)
	}
	return raw, nil
}
