package facts

import (
	"time"

	"gorm.io/gorm"
)

// RowFilter narrows row-fact queries. Start and End are month starts; End is
// inclusive. A zero Start disables the time range; nil slices disable that dimension.
type RowFilter struct {
	Start    time.Time
	End      time.Time
	Segments []string
	Odms     []string
	Models   []string
}

// IssueFilter narrows detail-fact queries. Plants is the ODM-derived plant list.
type IssueFilter struct {
	Start    time.Time
	End      time.Time
	Models   []string
	Segments []string
	Plants   []string
	Issue    string
}

// monthWindow turns an inclusive month range into a half-open [from, to) day range.
func monthWindow(start, end time.Time) (time.Time, time.Time) {
	from := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return from, to
}

func applyWindow(q *gorm.DB, column string, start, end time.Time) *gorm.DB {
	if start.IsZero() {
		return q
	}
	from, to := monthWindow(start, end)
	return q.Where(column+" >= ? AND "+column+" < ?", from, to)
}

func applyIn(q *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 0 {
		return q
	}
	return q.Where(column+" IN ?", values)
}

func (f RowFilter) apply(q *gorm.DB, monthColumn string) *gorm.DB {
	q = applyWindow(q, monthColumn, f.Start, f.End)
	q = applyIn(q, "segment", f.Segments)
	q = applyIn(q, "supplier_new", f.Odms)
	q = applyIn(q, "model", f.Models)
	return q
}

func (f IssueFilter) apply(q *gorm.DB, monthColumn string) *gorm.DB {
	q = applyWindow(q, monthColumn, f.Start, f.End)
	q = applyIn(q, "model", f.Models)
	q = applyIn(q, "segment", f.Segments)
	q = applyIn(q, "plant", f.Plants)
	if f.Issue != "" {
		q = q.Where("fault_category = ?", f.Issue)
	}
	return q.Where("fault_category IS NOT NULL AND fault_category <> ''")
}
