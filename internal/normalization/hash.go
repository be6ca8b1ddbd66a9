package normalization

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Missing is the canonical form of an absent value.
const Missing = "None"

// HashSeparator joins normalized parts before digesting.
const HashSeparator = "|"

// NormText canonicalizes a text cell: absent becomes Missing, anything else is trimmed.
func NormText(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		return strings.TrimSpace(x)
	case *string:
		if x == nil {
			return Missing
		}
		return strings.TrimSpace(*x)
	case float64:
		if math.IsNaN(x) {
			return Missing
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return NormInt(v)
}

// NormInt canonicalizes a numeric cell to the decimal string of its truncated value,
// so "3", "3.0" and 3.9 all become "3". Absent or empty becomes Missing; text that is
// not numeric is returned trimmed.
func NormInt(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case *int:
		if x == nil {
			return Missing
		}
		return strconv.FormatInt(int64(*x), 10)
	case *int64:
		if x == nil {
			return Missing
		}
		return strconv.FormatInt(*x, 10)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Missing
		}
		return strconv.FormatInt(int64(math.Trunc(x)), 10)
	case *string:
		if x == nil {
			return Missing
		}
		return NormInt(*x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Missing
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return NormInt(f)
		}
		return s
	}
	return Missing
}

// NormDate canonicalizes a date cell to YYYY-MM-DD.
func NormDate(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case time.Time:
		if x.IsZero() {
			return Missing
		}
		return x.Format("2006-01-02")
	case *time.Time:
		if x == nil {
			return Missing
		}
		return NormDate(*x)
	case datatypes.Date:
		return NormDate(time.Time(x))
	case *datatypes.Date:
		if x == nil {
			return Missing
		}
		return NormDate(time.Time(*x))
	case string:
		t, ok := ParseDate(x)
		if !ok {
			return Missing
		}
		return t.Format("2006-01-02")
	case float64:
		t, ok := SerialToDate(x)
		if !ok {
			return Missing
		}
		return t.Format("2006-01-02")
	}
	return Missing
}

// ContentHash is the hex MD5 of the parts joined with HashSeparator.
func ContentHash(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, HashSeparator)))
	return hex.EncodeToString(sum[:])
}
