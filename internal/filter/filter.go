// Package filter applies the ordered inclusion/exclusion stages that decide
// which normalized companies a fund renders.
package filter

import (
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

// Report counts drops per stage for one Apply call.
type Report struct {
	Input  int
	Output int
	Drops  model.StageDrops
}

// ByGeography keeps companies the platform strategy considers India-associated.
func ByGeography(companies []model.Company, s normalize.Strategy, overrides reference.SlugSet) []model.Company {
	return keep(companies, func(c model.Company) bool {
		return s.IndiaAssociated(c, overrides)
	})
}

// ByFundRule applies the fund's allowlist or denylist. Without a rule every
// company is retained.
func ByFundRule(companies []model.Company, rule reference.FundRule, ok bool) []model.Company {
	if !ok {
		return keep(companies, nil)
	}
	return keep(companies, func(c model.Company) bool {
		return rule.Retains(c.Slug)
	})
}

// ExcludeDefunct drops every company on the defunct list.
func ExcludeDefunct(companies []model.Company, defunct reference.SlugSet) []model.Company {
	return keep(companies, func(c model.Company) bool {
		return !defunct.Has(c.Slug)
	})
}

// WithOpenJobs drops companies without a positive active job count.
func WithOpenJobs(companies []model.Company) []model.Company {
	return keep(companies, func(c model.Company) bool {
		return c.JobCount() > 0
	})
}

// Apply runs every stage in order: geography, fund rule, defunct, open jobs.
// The input slice and its elements are left untouched.
func Apply(companies []model.Company, fundID string, s normalize.Strategy, refs *reference.Set) ([]model.Company, Report) {
	if refs == nil {
		refs = reference.NewSet(nil, reference.SlugSet{}, reference.SlugSet{}, reference.SlugSet{})
	}
	rep := Report{Input: len(companies)}

	out := ByGeography(companies, s, refs.Overrides)
	rep.Drops.Geography = len(companies) - len(out)

	before := len(out)
	rule, ok := refs.Rule(fundID)
	out = ByFundRule(out, rule, ok)
	rep.Drops.FundRule = before - len(out)

	before = len(out)
	out = ExcludeDefunct(out, refs.Defunct)
	rep.Drops.Defunct = before - len(out)

	before = len(out)
	out = WithOpenJobs(out)
	rep.Drops.NoJobs = before - len(out)

	rep.Output = len(out)
	zap.L().Debug("filter applied",
		zap.String("fund", fundID),
		zap.Int("input", rep.Input),
		zap.Int("output", rep.Output),
		zap.Int("geography", rep.Drops.Geography),
		zap.Int("fund_rule", rep.Drops.FundRule),
		zap.Int("defunct", rep.Drops.Defunct),
		zap.Int("no_jobs", rep.Drops.NoJobs),
	)
	return out, rep
}

// Persisted applies the stages that still mean something for records read
// back from disk (fund rule, defunct, open jobs). Geography was settled when
// the file was written.
func Persisted(companies []model.Company, fundID string, refs *reference.Set) []model.Company {
	if refs == nil {
		refs = reference.NewSet(nil, reference.SlugSet{}, reference.SlugSet{}, reference.SlugSet{})
	}
	rule, ok := refs.Rule(fundID)
	out := ByFundRule(companies, rule, ok)
	out = ExcludeDefunct(out, refs.Defunct)
	return WithOpenJobs(out)
}

// keep returns cloned companies matching pred. A nil pred keeps everything.
func keep(companies []model.Company, pred func(model.Company) bool) []model.Company {
	out := make([]model.Company, 0, len(companies))
	for _, c := range companies {
		if pred == nil || pred(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}
