package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"Foo.com":         "foo.com",
		" www.Foo.com ":   "foo.com",
		"www.www.foo.com": "www.foo.com",
		"wwwfoo.com":      "wwwfoo.com",
		"":                "",
		"   ":             "",
		"sub.www.foo.com": "sub.www.foo.com",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDomain(in), in)
	}
}

func TestComputeTopStats_CollapsesDomains(t *testing.T) {
	got := ComputeTopStats([]model.Company{
		{Slug: "a", Domain: "Foo.com", ActiveJobCount: 4},
		{Slug: "b", Domain: "www.foo.com", ActiveJobCount: 6},
	})
	assert.Equal(t, TopStats{TotalCompanies: 1, TotalJobs: 6, FreshJobs: 6}, got)
}

func TestComputeTopStats_EmptyDomainNeverCollapses(t *testing.T) {
	got := ComputeTopStats([]model.Company{
		{Name: "Same", Slug: "a", ActiveJobCount: 1},
		{Name: "Same", Slug: "a", ActiveJobCount: 2},
		{Name: "Same", Slug: "a", Domain: "  ", ActiveJobCount: 3},
	})
	assert.Equal(t, 3, got.TotalCompanies)
	assert.Equal(t, 6, got.TotalJobs)
}

func TestDedupe_FirstSeenTieBreak(t *testing.T) {
	out := Dedupe([]model.Company{
		{Slug: "five", Domain: "x.in", ActiveJobCount: 5},
		{Slug: "twelve-first", Domain: "x.in", ActiveJobCount: 12},
		{Slug: "twelve-second", Domain: "x.in", ActiveJobCount: 12},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "twelve-first", out[0].Slug)
}

func TestComputeTopStats_FreshJobsUseWinner(t *testing.T) {
	got := ComputeTopStats([]model.Company{
		{Slug: "a", Domain: "x.in", ActiveJobCount: 3},
		{Slug: "b", Domain: "x.in", ActiveJobCount: 9, IsStale: true},
		{Slug: "c", ActiveJobCount: 2},
	})
	assert.Equal(t, TopStats{TotalCompanies: 2, TotalJobs: 11, FreshJobs: 2}, got)
}

func TestComputeTopStats_Empty(t *testing.T) {
	assert.Equal(t, TopStats{}, ComputeTopStats(nil))
}

func TestFlattenOrder(t *testing.T) {
	funds := []model.VCFund{
		{FundConfig: model.FundConfig{ID: "accel"}, Companies: []model.Company{{Slug: "a1", Domain: "d.in", ActiveJobCount: 7}}},
		{FundConfig: model.FundConfig{ID: "gc"}, Companies: []model.Company{{Slug: "g1", Domain: "www.d.in", ActiveJobCount: 7}, {Slug: "g2"}}},
	}
	flat := Flatten(funds)
	assert.Len(t, flat, 3)

	out := Dedupe(flat)
	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0].Slug, "earlier fund wins ties")
}

func TestFundTotals(t *testing.T) {
	got := FundTotals([]model.Company{
		{Domain: "x.in", ActiveJobCount: 3},
		{Domain: "x.in", ActiveJobCount: 4, IsStale: true},
	})
	assert.Equal(t, TopStats{TotalCompanies: 2, TotalJobs: 7, FreshJobs: 3}, got)
}
