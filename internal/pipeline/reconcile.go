package pipeline

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/portfolio-jobs/internal/enrich"
	"github.com/sells-group/portfolio-jobs/internal/filter"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

// Reconciler turns raw platform records into a fund's persisted company
// list. It performs no I/O.
type Reconciler struct {
	Refs           *reference.Set
	Sectors        *reference.SectorMap
	Today          time.Time
	StaleAfterDays int
}

// Screened is the output of the normalize and filter stages.
type Screened struct {
	Companies []model.Company
	Batch     normalize.BatchReport
	Filter    filter.Report
}

// Facts are the cross-referenced inputs gathered after screening.
type Facts struct {
	// Internships is nil when the platform has no internship data or the
	// fetch failed; Carry then decides what survives.
	Internships map[string]int
	Dates       map[string]string
	// Previous is the fund file being replaced, nil on a first run.
	Previous *model.DataFile
	// CarryInternships copies internship fields from Previous for companies
	// the fresh fetch could not cover.
	CarryInternships bool
}

// Finished is the output of a full reconcile.
type Finished struct {
	Companies []model.Company
	Unmapped  *normalize.UnmappedReport
}

// Screen normalizes raws and runs the filter stages for fund. It refuses
// to start without a sector map.
func (r *Reconciler) Screen(raws []normalize.RawRecord, fund model.FundConfig) (*Screened, error) {
	if r.Sectors == nil {
		return nil, eris.Wrapf(reference.ErrMissingReferenceFile, "reconcile %s: no sector map", fund.ID)
	}
	s, err := normalize.ForPlatform(fund.Platform)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile %s", fund.ID)
	}
	companies, batch := normalize.NormalizeBatch(raws, s, fund)
	kept, rep := filter.Apply(companies, fund.ID, s, r.Refs)
	return &Screened{Companies: kept, Batch: batch, Filter: rep}, nil
}

// Finish carries forward facts the fresh fetch lacks, enriches, sorts and
// normalizes sectors. Stored sectors must come from the canonical map, so a
// missing map is an error.
func (r *Reconciler) Finish(companies []model.Company, facts Facts) (*Finished, error) {
	if r.Sectors == nil {
		return nil, eris.Wrap(reference.ErrMissingReferenceFile, "reconcile: no sector map")
	}

	carried := Carry(companies, facts.Previous, facts.CarryInternships)

	var listed reference.SlugSet
	if r.Refs != nil {
		listed = r.Refs.Listed
	}
	enriched := enrich.Apply(carried, enrich.Options{
		Today:          r.Today,
		StaleAfterDays: r.StaleAfterDays,
		Listed:         listed,
		Internships:    facts.Internships,
		LatestJobDates: facts.Dates,
	})

	out, unmapped := normalize.NewSectorNormalizer(r.Sectors).Apply(enriched)
	return &Finished{Companies: out, Unmapped: unmapped}, nil
}

// Reconcile runs Screen then Finish. Output is identical for identical
// inputs and Today.
func (r *Reconciler) Reconcile(raws []normalize.RawRecord, fund model.FundConfig, facts Facts) (*Screened, *Finished, error) {
	sc, err := r.Screen(raws, fund)
	if err != nil {
		return nil, nil, err
	}
	fin, err := r.Finish(sc.Companies, facts)
	if err != nil {
		return nil, nil, err
	}
	return sc, fin, nil
}

// Carry copies fields from prev onto fresh companies with the same slug:
// the domain when the fresh record has none, the last known job date, and
// internship fields when withInternships is set.
func Carry(companies []model.Company, prev *model.DataFile, withInternships bool) []model.Company {
	out := make([]model.Company, len(companies))
	if prev == nil {
		for i, c := range companies {
			out[i] = c.Clone()
		}
		return out
	}

	old := make(map[string]model.Company, len(prev.Companies))
	for _, c := range prev.Companies {
		old[c.Slug] = c
	}
	for i, c := range companies {
		c = c.Clone()
		if p, ok := old[c.Slug]; ok {
			if c.Domain == "" {
				c.Domain = p.Domain
			}
			if c.LatestJobDate == "" {
				c.LatestJobDate = p.LatestJobDate
			}
			if withInternships && c.HasInternships == nil && p.HasInternships != nil {
				pc := p.Clone()
				c.HasInternships = pc.HasInternships
				c.InternshipCount = pc.InternshipCount
			}
		}
		out[i] = c
	}
	return out
}
