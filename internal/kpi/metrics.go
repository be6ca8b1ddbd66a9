package kpi

import (
	"sort"

	"github.com/cockroachdb/apd/v3"
)

const (
	ratioExponent int32 = -8
	shareExponent int32 = -4
)

// Ratio is claim/mm rounded half-even to 8 decimal places, or 0 when mm is 0.
func Ratio(claim, mm int64) float64 { return quantizedQuo(claim, mm, ratioExponent) }

// Share is v/total rounded half-even to 4 decimal places, or 0 when total is 0.
func Share(v, total int64) float64 { return quantizedQuo(v, total, shareExponent) }

func quantizedQuo(num, den int64, exp int32) float64 {
	if den == 0 {
		return 0
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfEven
	var q apd.Decimal
	if _, err := ctx.Quo(&q, apd.New(num, 0), apd.New(den, 0)); err != nil {
		return 0
	}
	if _, err := ctx.Quantize(&q, &q, exp); err != nil {
		return 0
	}
	f, err := q.Float64()
	if err != nil {
		return 0
	}
	return f
}

// SortKey selects the primary ranking metric.
type SortKey string

const (
	SortByClaim SortKey = "claim"
	SortByRatio SortKey = "ratio"
)

// group is one summed bucket before ranking.
type group struct {
	Name  string
	Claim int64
	MM    int64
}

func (g group) ratio() float64 { return Ratio(g.Claim, g.MM) }

// rankGroups orders groups by (claim desc, ratio desc) or (ratio desc, claim desc),
// then name ascending, and keeps the first n. n <= 0 keeps everything.
func rankGroups(groups []group, key SortKey, n int) []group {
	out := make([]group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ra, rb := a.ratio(), b.ratio()
		if key == SortByRatio {
			if ra != rb {
				return ra > rb
			}
			if a.Claim != b.Claim {
				return a.Claim > b.Claim
			}
		} else {
			if a.Claim != b.Claim {
				return a.Claim > b.Claim
			}
			if ra != rb {
				return ra > rb
			}
		}
		return a.Name < b.Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type issueCount struct {
	Issue string
	Count int64
}

// rankIssues orders by count desc then issue name, keeps n (n <= 0 keeps all), and
// computes each share against total.
func rankIssues(counts []issueCount, n int, total int64) []IssueRow {
	sorted := make([]issueCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Issue < sorted[j].Issue
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]IssueRow, 0, len(sorted))
	for i, c := range sorted {
		out = append(out, IssueRow{
			Rank:  i + 1,
			Issue: c.Issue,
			Count: c.Count,
			Share: Share(c.Count, total),
		})
	}
	return out
}

func sumIssues(counts []issueCount) int64 {
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	return total
}
