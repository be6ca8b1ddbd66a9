package kpi

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/apierr"
)

var jan = TimeRange{StartMonth: "2024-01", EndMonth: "2024-03"}

func TestOdmRequestValidation(t *testing.T) {
	cases := []struct {
		name string
		req  OdmRequest
		want error
	}{
		{"empty odms", OdmRequest{TimeRange: jan}, ErrEmptyEntityList},
		{"blank odms", OdmRequest{TimeRange: jan, Filters: OdmFilters{Odms: []string{" ", ""}}}, ErrEmptyEntityList},
		{"bad start", OdmRequest{TimeRange: TimeRange{StartMonth: "2024/01", EndMonth: "2024-02"}, Filters: OdmFilters{Odms: []string{"A"}}}, ErrInvalidMonth},
		{"bad month number", OdmRequest{TimeRange: TimeRange{StartMonth: "2024-13", EndMonth: "2024-02"}, Filters: OdmFilters{Odms: []string{"A"}}}, ErrInvalidMonth},
		{"reversed", OdmRequest{TimeRange: TimeRange{StartMonth: "2024-05", EndMonth: "2024-02"}, Filters: OdmFilters{Odms: []string{"A"}}}, ErrInvalidRange},
		{"bad sort", OdmRequest{TimeRange: jan, Filters: OdmFilters{Odms: []string{"A"}}, View: &OdmView{TopModelSort: "mm"}}, ErrInvalidSort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.req.normalize(domainfacts.FamilyIFIR)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err, 0))
		})
	}
}

func TestOdmRequestDefaults(t *testing.T) {
	q, err := OdmRequest{
		TimeRange: jan,
		Filters:   OdmFilters{Odms: []string{" A ", "B", "A"}, Segments: []string{""}},
	}.normalize(domainfacts.FamilyIFIR)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, q.Odms)
	assert.Nil(t, q.Segments)
	assert.Equal(t, 10, q.TopN)
	assert.Equal(t, SortByClaim, q.Sort)
	assert.Equal(t, 2024, q.End.Year())
	assert.Equal(t, 3, int(q.End.Month()))
}

func TestSortKeyFollowsFamilyLabel(t *testing.T) {
	k, err := parseSort(domainfacts.FamilyIFIR, "top_model_sort", "ifir")
	require.NoError(t, err)
	assert.Equal(t, SortByRatio, k)

	k, err = parseSort(domainfacts.FamilyRA, "top_model_sort", "RA")
	require.NoError(t, err)
	assert.Equal(t, SortByRatio, k)

	_, err = parseSort(domainfacts.FamilyRA, "top_model_sort", "ifir")
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestModelRequestTopIssueDefault(t *testing.T) {
	req := ModelRequest{TimeRange: jan, Filters: ModelFilters{Models: []string{"M1"}}}
	q, err := req.normalize(domainfacts.FamilyIFIR)
	require.NoError(t, err)
	assert.Equal(t, 5, q.TopIssueN)

	q, err = req.normalize(domainfacts.FamilyRA)
	require.NoError(t, err)
	assert.Equal(t, 10, q.TopIssueN)

	req.View = &ModelView{TopIssueN: 3}
	q, err = req.normalize(domainfacts.FamilyRA)
	require.NoError(t, err)
	assert.Equal(t, 3, q.TopIssueN)
}

func TestIssueDetailPaging(t *testing.T) {
	req := IssueDetailRequest{
		TimeRange:  jan,
		Filters:    IssueDetailFilters{Model: "M1", Issue: "Battery"},
		Pagination: &Pagination{Page: 0, PageSize: 1000},
	}
	q, err := req.normalize()
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, maxPageSize, q.PageSize)

	req.Filters.Issue = " "
	_, err = req.normalize()
	assert.ErrorIs(t, err, ErrMissingIssue)
}
