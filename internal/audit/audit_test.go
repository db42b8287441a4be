package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

var now = time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)

func rules(t *testing.T, refs *reference.Set) Rules {
	t.Helper()
	r, err := NewRules(refs, DefaultNamePatterns)
	require.NoError(t, err)
	return r
}

func TestRun_StripeIndia(t *testing.T) {
	stripe := model.Company{Name: "Stripe India", Slug: "stripe-india", Domain: "foo.io", ActiveJobCount: 3}
	funds := []FundCompanies{{FundID: "accel", Companies: []model.Company{stripe}}}

	rep := Run(funds, rules(t, nil), now)
	require.Equal(t, 1, rep.TotalFlagged)
	got := rep.Companies[0]
	assert.Equal(t, "non-.in domain; name pattern suggests non-Indian", got.Reason)
	assert.Equal(t, "foo.io", got.Domain)
	assert.Equal(t, "accel", got.Fund)
	assert.Equal(t, 3, got.ActiveJobCount)
	assert.Equal(t, "2024-03-31T10:00:00Z", rep.GeneratedAt)

	refs := reference.NewSet(nil, reference.SlugSet{}, reference.SlugSet{}, reference.NewSlugSet("stripe-india"))
	rep = Run(funds, rules(t, refs), now)
	assert.Equal(t, 0, rep.TotalFlagged)
	assert.Empty(t, rep.Companies)
}

func TestEvaluate(t *testing.T) {
	r := rules(t, nil)
	tests := []struct {
		name string
		c    model.Company
		want []string
	}{
		{"indian domain", model.Company{Name: "Zepto", Domain: "zepto.co.in"}, nil},
		{"org.in", model.Company{Name: "Akshaya", Domain: "akshaya.org.in"}, nil},
		{"upper-case suffix", model.Company{Name: "Foo", Domain: "Foo.IN"}, nil},
		{"mixed-case co.in", model.Company{Name: "Bar", Domain: " bar.Co.In "}, nil},
		{"foreign domain", model.Company{Name: "Zepto", Domain: "zepto.com"}, []string{ReasonDomain}},
		{"no domain", model.Company{Name: "Zepto"}, []string{ReasonNoDomain}},
		{"pattern only", model.Company{Name: "CrowdStrike", Domain: "crowd.in"}, []string{ReasonName}},
		{"pattern is anchored", model.Company{Name: "Not Stripe", Domain: "x.in"}, nil},
		{"case insensitive", model.Company{Name: "new relic"}, []string{ReasonName, ReasonNoDomain}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Evaluate(tt.c))
		})
	}
}

func TestRun_SkipsAdjudicatedAndRepeats(t *testing.T) {
	refs := reference.NewSet(
		map[string]reference.FundRule{
			"gc":    {Mode: reference.ModeDenylist, Slugs: reference.NewSlugSet("denied")},
			"accel": {Mode: reference.ModeAllowlist, Slugs: reference.NewSlugSet("allowed")},
		},
		reference.NewSlugSet("dead"),
		reference.SlugSet{},
		reference.SlugSet{},
	)
	funds := []FundCompanies{
		{FundID: "accel", Companies: []model.Company{
			{Name: "Denied", Slug: "denied", Domain: "d.com"},
			{Name: "Dead", Slug: "dead", Domain: "d.com"},
			{Name: "Shared", Slug: "shared", Domain: "s.com"},
			{Name: "Allowed", Slug: "allowed", Domain: "a.com"},
		}},
		{FundID: "blume", Companies: []model.Company{
			{Name: "Shared", Slug: "shared", Domain: "s.com"},
		}},
	}

	rep := Run(funds, rules(t, refs), now)
	require.Equal(t, 2, rep.TotalFlagged)
	assert.Equal(t, "allowed", rep.Companies[0].Slug, "allowlists do not exempt from audit")
	assert.Equal(t, "shared", rep.Companies[1].Slug)
	assert.Equal(t, "accel", rep.Companies[1].Fund, "first fund keeps the entry")
}

func TestRun_SortAndPlaceholder(t *testing.T) {
	funds := []FundCompanies{
		{FundID: "peakxv", Companies: []model.Company{{Name: "beta", Slug: "b"}}},
		{FundID: "accel", Companies: []model.Company{
			{Name: "zeta", Slug: "z", Domain: "z.com"},
			{Name: "Äpfel", Slug: "ap", Domain: "ap.com"},
			{Name: "alpha", Slug: "al", Domain: "al.com"},
		}},
	}
	rep := Run(funds, rules(t, nil), now)

	var order []string
	for _, c := range rep.Companies {
		order = append(order, c.Fund+"/"+c.Name)
	}
	assert.Equal(t, []string{"accel/alpha", "accel/Äpfel", "accel/zeta", "peakxv/beta"}, order)
	assert.Equal(t, NoDomainPlaceholder, rep.Companies[3].Domain)
	assert.Len(t, rep.ByFund("accel"), 3)
}

func TestNewRules_BadPattern(t *testing.T) {
	_, err := NewRules(nil, []string{"("})
	assert.Error(t, err)
}
