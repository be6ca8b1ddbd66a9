package normalization

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNormText(t *testing.T) {
	s := "  Lenovo "
	assert.Equal(t, Missing, NormText(nil))
	assert.Equal(t, Missing, NormText((*string)(nil)))
	assert.Equal(t, Missing, NormText(math.NaN()))
	assert.Equal(t, "Lenovo", NormText(s))
	assert.Equal(t, "Lenovo", NormText(&s))
}

func TestNormInt(t *testing.T) {
	three := 3
	assert.Equal(t, "3", NormInt("3"))
	assert.Equal(t, "3", NormInt("3.0"))
	assert.Equal(t, "3", NormInt("3.9"))
	assert.Equal(t, "3", NormInt(&three))
	assert.Equal(t, "7", NormInt(7))
	assert.Equal(t, "12", NormInt(int64(12)))
	assert.Equal(t, "-2", NormInt(-2.7))
	assert.Equal(t, Missing, NormInt(nil))
	assert.Equal(t, Missing, NormInt(""))
	assert.Equal(t, Missing, NormInt((*int)(nil)))
}

func TestNormDateEquivalentFormats(t *testing.T) {
	want := "2024-01-01"
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, NormDate(day))
	assert.Equal(t, want, NormDate(datatypes.Date(day)))
	assert.Equal(t, want, NormDate("2024-01-01"))
	assert.Equal(t, want, NormDate("2024/1/1"))
	assert.Equal(t, want, NormDate("2024-01-01 00:00:00"))
	assert.Equal(t, want, NormDate("45292"))
	assert.Equal(t, want, NormDate(float64(45292)))
	assert.Equal(t, Missing, NormDate(nil))
	assert.Equal(t, Missing, NormDate("Total"))
}

func TestContentHashIsMD5Hex(t *testing.T) {
	h := ContentHash("a", "b")
	require.Len(t, h, 32)
	assert.Equal(t, "d0726241020676b14aa6298ce6a18b21", h)
	assert.Equal(t, ContentHash("a|b"), h)
	assert.NotEqual(t, ContentHash("a", "b", ""), h)
}

func TestNumericFormattingHashesIdentically(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("n and n.0 normalize to the same hash part", prop.ForAll(
		func(n int64, label string) bool {
			a := ContentHash(NormText(label), NormInt(strconv.FormatInt(n, 10)))
			b := ContentHash(NormText(label), NormInt(strconv.FormatInt(n, 10)+".0"))
			c := ContentHash(NormText(" "+label+" "), NormInt(float64(n)))
			return a == b && b == c
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.AlphaString(),
	))

	properties.Property("a day hashes the same as a date, a timestamp and a serial", prop.ForAll(
		func(offset int) bool {
			day := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
			serial := float64(42005 + offset) // 2015-01-01
			iso := NormDate(day.Format("2006-01-02"))
			return iso == NormDate(day.Add(13*time.Hour)) &&
				iso == NormDate(day.Format("2006/01/02")) &&
				iso == NormDate(serial) &&
				iso == day.Format("2006-01-02")
		},
		gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}

func TestParseMonth(t *testing.T) {
	m, ok := ParseMonth("2024-03")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), m)
	assert.Equal(t, "2024-03", FormatMonth(m))

	_, ok = ParseMonth("2024-13")
	assert.False(t, ok)
	_, ok = ParseMonth("March")
	assert.False(t, ok)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"A", "B"}, SplitList("A, ,B"))
}
