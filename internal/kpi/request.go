package kpi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/apierr"
)

var (
	ErrEmptyEntityList = errors.New("entity list must not be empty")
	ErrInvalidMonth    = errors.New("month must be formatted as YYYY-MM")
	ErrInvalidRange    = errors.New("start_month must not be after end_month")
	ErrInvalidSort     = errors.New("unsupported sort key")
	ErrMissingIssue    = errors.New("model and issue are required")
)

const monthLayout = "2006-01"

const (
	defaultTopN     = 10
	defaultPageSize = 10
	maxPageSize     = 100
)

// Axis is the analysis dimension a card is built for.
type Axis string

const (
	AxisOdm     Axis = "odm"
	AxisSegment Axis = "segment"
	AxisModel   Axis = "model"
)

// EntityKey is the JSON key naming the entity of a row on this axis.
func (a Axis) EntityKey() string { return string(a) }

func (a Axis) Dimension() domainfacts.Dimension {
	switch a {
	case AxisOdm:
		return domainfacts.DimOdm
	case AxisSegment:
		return domainfacts.DimSegment
	case AxisModel:
		return domainfacts.DimModel
	}
	return domainfacts.DimNone
}

type TimeRange struct {
	StartMonth string `json:"start_month"`
	EndMonth   string `json:"end_month"`
}

// Window parses both months and returns them as first-of-month UTC times.
func (tr TimeRange) Window() (time.Time, time.Time, error) {
	start, err := parseMonth("start_month", tr.StartMonth)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseMonth("end_month", tr.EndMonth)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apierr.BadRequest("invalid_time_range",
			fmt.Errorf("%w: %s > %s", ErrInvalidRange, tr.StartMonth, tr.EndMonth))
	}
	return start, end, nil
}

func parseMonth(field, raw string) (time.Time, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apierr.BadRequest("invalid_month",
			fmt.Errorf("%w: %s=%q", ErrInvalidMonth, field, raw))
	}
	return t.UTC(), nil
}

func formatMonth(t time.Time) string { return t.UTC().Format(monthLayout) }

// cleanList trims entries, drops blanks and duplicates, and keeps the first-seen order.
func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func requireEntities(field string, values []string) ([]string, error) {
	out := cleanList(values)
	if len(out) == 0 {
		return nil, apierr.BadRequest("empty_entity_list", fmt.Errorf("%w: filters.%s", ErrEmptyEntityList, field))
	}
	return out, nil
}

// parseSort accepts "claim", the family's ratio label ("ifir" / "ra"), or "ratio".
// Blank means claim.
func parseSort(family domainfacts.Family, field, raw string) (SortKey, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", string(SortByClaim):
		return SortByClaim, nil
	case string(SortByRatio), family.Schema().RatioLabel:
		return SortByRatio, nil
	}
	return "", apierr.BadRequest("invalid_sort", fmt.Errorf("%w: view.%s=%q", ErrInvalidSort, field, raw))
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// DefaultTopIssueN is the model card's issue count when the view omits it.
func DefaultTopIssueN(family domainfacts.Family) int {
	if family == domainfacts.FamilyRA {
		return 10
	}
	return 5
}

// ------------------------------------------------------------------------------------------------

type OptionsRequest struct {
	Segments []string `json:"segments" form:"segments"`
	Odms     []string `json:"odms" form:"odms"`
	Models   []string `json:"models" form:"models"`
}

type OdmFilters struct {
	Odms     []string `json:"odms"`
	Segments []string `json:"segments,omitempty"`
	Models   []string `json:"models,omitempty"`
}

// OdmView.TrendMonths is accepted for compatibility; trends always span the full range.
type OdmView struct {
	TrendMonths  int    `json:"trend_months"`
	TopModelN    int    `json:"top_model_n"`
	TopModelSort string `json:"top_model_sort"`
}

type OdmRequest struct {
	TimeRange TimeRange  `json:"time_range"`
	Filters   OdmFilters `json:"filters"`
	View      *OdmView   `json:"view,omitempty"`
}

type SegmentFilters struct {
	Segments []string `json:"segments"`
	Odms     []string `json:"odms,omitempty"`
	Models   []string `json:"models,omitempty"`
}

type SegmentView struct {
	TrendMonths  int    `json:"trend_months"`
	TopN         int    `json:"top_n"`
	TopOdmSort   string `json:"top_odm_sort"`
	TopModelSort string `json:"top_model_sort"`
}

type SegmentRequest struct {
	TimeRange TimeRange      `json:"time_range"`
	Filters   SegmentFilters `json:"filters"`
	View      *SegmentView   `json:"view,omitempty"`
}

type ModelFilters struct {
	Models   []string `json:"models"`
	Segments []string `json:"segments,omitempty"`
	Odms     []string `json:"odms,omitempty"`
}

type ModelView struct {
	TopIssueN int `json:"top_issue_n"`
}

type ModelRequest struct {
	TimeRange TimeRange    `json:"time_range"`
	Filters   ModelFilters `json:"filters"`
	View      *ModelView   `json:"view,omitempty"`
}

type IssueDetailFilters struct {
	Model    string   `json:"model"`
	Issue    string   `json:"issue"`
	Segments []string `json:"segments,omitempty"`
	Odms     []string `json:"odms,omitempty"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type IssueDetailRequest struct {
	TimeRange  TimeRange          `json:"time_range"`
	Filters    IssueDetailFilters `json:"filters"`
	Pagination *Pagination        `json:"pagination,omitempty"`
}

// ------------------------------------------------------------------------------------------------
// Normalized forms, produced by validation before any query runs.

type window struct {
	Start time.Time
	End   time.Time
}

type odmQuery struct {
	window
	Odms, Segments, Models []string
	TopN                   int
	Sort                   SortKey
}

func (r OdmRequest) normalize(family domainfacts.Family) (odmQuery, error) {
	var q odmQuery
	var err error
	if q.Start, q.End, err = r.TimeRange.Window(); err != nil {
		return q, err
	}
	if q.Odms, err = requireEntities("odms", r.Filters.Odms); err != nil {
		return q, err
	}
	q.Segments = cleanList(r.Filters.Segments)
	q.Models = cleanList(r.Filters.Models)
	view := OdmView{}
	if r.View != nil {
		view = *r.View
	}
	q.TopN = positiveOr(view.TopModelN, defaultTopN)
	if q.Sort, err = parseSort(family, "top_model_sort", view.TopModelSort); err != nil {
		return q, err
	}
	return q, nil
}

type segmentQuery struct {
	window
	Segments, Odms, Models []string
	TopN                   int
	OdmSort, ModelSort     SortKey
}

func (r SegmentRequest) normalize(family domainfacts.Family) (segmentQuery, error) {
	var q segmentQuery
	var err error
	if q.Start, q.End, err = r.TimeRange.Window(); err != nil {
		return q, err
	}
	if q.Segments, err = requireEntities("segments", r.Filters.Segments); err != nil {
		return q, err
	}
	q.Odms = cleanList(r.Filters.Odms)
	q.Models = cleanList(r.Filters.Models)
	view := SegmentView{}
	if r.View != nil {
		view = *r.View
	}
	q.TopN = positiveOr(view.TopN, defaultTopN)
	if q.OdmSort, err = parseSort(family, "top_odm_sort", view.TopOdmSort); err != nil {
		return q, err
	}
	if q.ModelSort, err = parseSort(family, "top_model_sort", view.TopModelSort); err != nil {
		return q, err
	}
	return q, nil
}

type modelQuery struct {
	window
	Models, Segments, Odms []string
	TopIssueN              int
}

func (r ModelRequest) normalize(family domainfacts.Family) (modelQuery, error) {
	var q modelQuery
	var err error
	if q.Start, q.End, err = r.TimeRange.Window(); err != nil {
		return q, err
	}
	if q.Models, err = requireEntities("models", r.Filters.Models); err != nil {
		return q, err
	}
	q.Segments = cleanList(r.Filters.Segments)
	q.Odms = cleanList(r.Filters.Odms)
	n := 0
	if r.View != nil {
		n = r.View.TopIssueN
	}
	q.TopIssueN = positiveOr(n, DefaultTopIssueN(family))
	return q, nil
}

type issueDetailQuery struct {
	window
	Model, Issue   string
	Segments, Odms []string
	Page, PageSize int
}

func (r IssueDetailRequest) normalize() (issueDetailQuery, error) {
	var q issueDetailQuery
	var err error
	if q.Start, q.End, err = r.TimeRange.Window(); err != nil {
		return q, err
	}
	q.Model = strings.TrimSpace(r.Filters.Model)
	q.Issue = strings.TrimSpace(r.Filters.Issue)
	if q.Model == "" || q.Issue == "" {
		return q, apierr.BadRequest("missing_filter", ErrMissingIssue)
	}
	q.Segments = cleanList(r.Filters.Segments)
	q.Odms = cleanList(r.Filters.Odms)
	p := Pagination{}
	if r.Pagination != nil {
		p = *r.Pagination
	}
	q.Page = positiveOr(p.Page, 1)
	q.PageSize = positiveOr(p.PageSize, defaultPageSize)
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q, nil
}
