package kpi

import (
	"encoding/json"
	"time"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
)

// Rows that carry a ratio are keyed by family (ifir/box_claim/box_mm or ra/ra_claim/ra_mm)
// and by axis (odm/segment/model), so they marshal through a map.

type TrendPoint struct {
	Month  string
	Ratio  float64
	Claim  int64
	MM     int64
	family domainfacts.Family
}

func (p TrendPoint) MarshalJSON() ([]byte, error) {
	s := p.family.Schema()
	return json.Marshal(map[string]any{
		"month":      p.Month,
		s.RatioLabel: p.Ratio,
	})
}

// RankRow is one ranked ODM, segment or model.
type RankRow struct {
	Rank      int
	Name      string
	Ratio     float64
	Claim     int64
	MM        int64
	TopIssues []IssueRow
	axis      Axis
	family    domainfacts.Family
}

func (r RankRow) MarshalJSON() ([]byte, error) {
	s := r.family.Schema()
	m := map[string]any{
		"rank":             r.Rank,
		r.axis.EntityKey(): r.Name,
		s.RatioLabel:       r.Ratio,
		s.ClaimLabel:       r.Claim,
		s.MMLabel:          r.MM,
	}
	if r.axis == AxisModel {
		issues := r.TopIssues
		if issues == nil {
			issues = []IssueRow{}
		}
		m["top_issues"] = issues
	}
	return json.Marshal(m)
}

type MonthlyRanking struct {
	Month string    `json:"month"`
	Items []RankRow `json:"items"`
}

type PieRow struct {
	Name   string
	Ratio  float64
	Share  float64
	Claim  int64
	MM     int64
	axis   Axis
	family domainfacts.Family
}

func (r PieRow) MarshalJSON() ([]byte, error) {
	s := r.family.Schema()
	return json.Marshal(map[string]any{
		r.axis.EntityKey(): r.Name,
		s.RatioLabel:       r.Ratio,
		"share":            r.Share,
		s.ClaimLabel:       r.Claim,
		s.MMLabel:          r.MM,
	})
}

// PieSummary marshals as {"<axis>_pie": [...]}.
type PieSummary struct {
	Rows []PieRow
	axis Axis
}

func (p PieSummary) MarshalJSON() ([]byte, error) {
	rows := p.Rows
	if rows == nil {
		rows = []PieRow{}
	}
	return json.Marshal(map[string]any{p.axis.EntityKey() + "_pie": rows})
}

type IssueRow struct {
	Rank  int     `json:"rank"`
	Issue string  `json:"issue"`
	Count int64   `json:"count"`
	Share float64 `json:"share"`
}

type MonthlyIssues struct {
	Month string     `json:"month"`
	Items []IssueRow `json:"items"`
}

type Meta struct {
	DataAsOf  string    `json:"data_as_of"`
	TimeRange TimeRange `json:"time_range"`
}

type OdmCard struct {
	Odm              string           `json:"odm"`
	Trend            []TrendPoint     `json:"trend"`
	TopModels        []RankRow        `json:"top_models"`
	MonthlyTopModels []MonthlyRanking `json:"monthly_top_models"`
	AISummary        string           `json:"ai_summary"`
}

type OdmAnalysis struct {
	Meta    Meta        `json:"meta"`
	Summary *PieSummary `json:"summary"`
	Cards   []OdmCard   `json:"cards"`
}

type SegmentCard struct {
	Segment          string           `json:"segment"`
	Trend            []TrendPoint     `json:"trend"`
	TopOdms          []RankRow        `json:"top_odms"`
	TopModels        []RankRow        `json:"top_models"`
	MonthlyTopOdms   []MonthlyRanking `json:"monthly_top_odms"`
	MonthlyTopModels []MonthlyRanking `json:"monthly_top_models"`
	AISummary        string           `json:"ai_summary"`
}

type SegmentAnalysis struct {
	Meta    Meta          `json:"meta"`
	Summary *PieSummary   `json:"summary"`
	Cards   []SegmentCard `json:"cards"`
}

type ModelCard struct {
	Model            string          `json:"model"`
	Trend            []TrendPoint    `json:"trend"`
	TopIssues        []IssueRow      `json:"top_issues"`
	MonthlyTopIssues []MonthlyIssues `json:"monthly_top_issues"`
	AISummary        string          `json:"ai_summary"`
}

type ModelAnalysis struct {
	Meta    Meta        `json:"meta"`
	Summary *PieSummary `json:"summary"`
	Cards   []ModelCard `json:"cards"`
}

type OptionsRange struct {
	MinMonth string `json:"min_month"`
	MaxMonth string `json:"max_month"`
}

type Options struct {
	MonthMin  string       `json:"month_min"`
	MonthMax  string       `json:"month_max"`
	DataAsOf  string       `json:"data_as_of"`
	TimeRange OptionsRange `json:"time_range"`
	Segments  []string     `json:"segments"`
	Odms      []string     `json:"odms"`
	Models    []string     `json:"models"`
}

type IssueDetailItem struct {
	Model              string  `json:"model"`
	FaultCategory      string  `json:"fault_category"`
	ProblemDescrByTech *string `json:"problem_descr_by_tech"`
	ClaimNbr           string  `json:"claim_nbr"`
	ClaimMonth         string  `json:"claim_month"`
	Plant              *string `json:"plant"`
}

type IssueDetails struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []IssueDetailItem `json:"items"`
}

func monthOrBlank(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return formatMonth(*t)
}
