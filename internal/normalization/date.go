package normalization

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Excel serial bounds: 1900-01-01 .. 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"2006-01",
	"2006/01",
	"2006.01.02",
	"Jan 2006",
	"January 2006",
	"Jan-06",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	// Day-first forms only match once the month-first ones above have failed,
	// so 03/04/2024 stays March 4.
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
}

// ParseDate parses a spreadsheet cell as a calendar date in UTC. Cells holding an
// Excel serial number (what excelize reports for date cells read raw) are accepted too.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return truncateDay(t), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return SerialToDate(f)
	}
	return time.Time{}, false
}

// SerialToDate converts an Excel 1900-system serial to a UTC date.
func SerialToDate(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial < minExcelSerial || serial > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return truncateDay(t), true
}

// MonthStart returns the first day of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth parses "YYYY-MM" into the first day of that month.
func ParseMonth(raw string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatMonth renders t as "YYYY-MM".
func FormatMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
