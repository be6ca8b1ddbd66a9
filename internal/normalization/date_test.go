package normalization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-15", jan15, true},
		{"2024-01-15 08:30:00", jan15, true},
		{"01/15/2024", jan15, true},
		{"15/01/2024", jan15, true},
		{"15.01.2024", jan15, true},
		{"15.1.2024", jan15, true},
		{"Jan 15, 2024", jan15, true},
		{"January 15, 2024", jan15, true},
		{"15 Jan 2024", jan15, true},
		{"15-Jan-2024", jan15, true},
		{"45306", jan15, true},
		{"03/04/2024", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"2024-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"32/13/2024", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.True(t, tc.want.Equal(got), "%s: got %s", tc.in, got)
		}
	}
}
