// Package delta diffs two generations of fund data files and summarizes what
// a refresh changed.
package delta

import (
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
)

// Output file names inside the report directory.
const (
	JSONFile     = "data-delta.json"
	MarkdownFile = "data-delta.md"
)

// DefaultTopMovers caps the movers kept per fund.
const DefaultTopMovers = 10

// Counts is a company/job pair.
type Counts struct {
	Companies int `json:"companies"`
	Jobs      int `json:"jobs"`
}

func (c Counts) sub(o Counts) Counts {
	return Counts{Companies: c.Companies - o.Companies, Jobs: c.Jobs - o.Jobs}
}

// Mover is a company present in both snapshots whose job count changed.
type Mover struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	BeforeJobs int    `json:"beforeJobs"`
	AfterJobs  int    `json:"afterJobs"`
	Delta      int    `json:"delta"`
}

// FundDelta is the per-fund section of the report.
type FundDelta struct {
	FundID      string   `json:"fundId"`
	Before      Counts   `json:"before"`
	After       Counts   `json:"after"`
	Delta       Counts   `json:"delta"`
	Added       []string `json:"added"`
	Removed     []string `json:"removed"`
	Movers      []Mover  `json:"movers"`
	TotalMovers int      `json:"totalMovers"`
	Changed     bool     `json:"changed"`
}

// Totals aggregates every fund.
type Totals struct {
	Before Counts `json:"before"`
	After  Counts `json:"after"`
	Delta  Counts `json:"delta"`
}

// Report is the machine-readable delta document.
type Report struct {
	GeneratedAt string      `json:"generatedAt"`
	Funds       []FundDelta `json:"funds"`
	Totals      Totals      `json:"totals"`
	HasChanges  bool        `json:"hasChanges"`
}

// Summarize diffs one fund. Movers are ordered by absolute delta descending,
// then name, and truncated to topN (non-positive means DefaultTopMovers).
func Summarize(fundID string, before, after []model.Company, topN int) FundDelta {
	if topN <= 0 {
		topN = DefaultTopMovers
	}
	beforeBySlug := index(before)
	afterBySlug := index(after)

	fd := FundDelta{
		FundID:  fundID,
		Before:  count(before),
		After:   count(after),
		Added:   []string{},
		Removed: []string{},
		Movers:  []Mover{},
	}
	fd.Delta = fd.After.sub(fd.Before)

	for slug, a := range afterBySlug {
		b, ok := beforeBySlug[slug]
		if !ok {
			fd.Added = append(fd.Added, slug)
			continue
		}
		if d := a.JobCount() - b.JobCount(); d != 0 {
			fd.Movers = append(fd.Movers, Mover{
				Slug:       slug,
				Name:       displayName(a, b),
				BeforeJobs: b.JobCount(),
				AfterJobs:  a.JobCount(),
				Delta:      d,
			})
		}
	}
	for slug := range beforeBySlug {
		if _, ok := afterBySlug[slug]; !ok {
			fd.Removed = append(fd.Removed, slug)
		}
	}

	sort.Strings(fd.Added)
	sort.Strings(fd.Removed)
	sortMovers(fd.Movers)

	fd.TotalMovers = len(fd.Movers)
	if len(fd.Movers) > topN {
		fd.Movers = fd.Movers[:topN]
	}
	fd.Changed = fd.Delta != (Counts{}) || len(fd.Added) > 0 || len(fd.Removed) > 0 || fd.TotalMovers > 0
	return fd
}

// Build loads each fund from both directories and assembles the report. Any
// missing file aborts with dataset.ErrMissingDataFile naming the path.
func Build(fundIDs []string, beforeDir, afterDir string, topN int, now time.Time) (*Report, error) {
	r := &Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Funds:       make([]FundDelta, 0, len(fundIDs)),
	}
	for _, id := range fundIDs {
		before, err := dataset.Read(beforeDir, id)
		if err != nil {
			return nil, err
		}
		after, err := dataset.Read(afterDir, id)
		if err != nil {
			return nil, err
		}
		fd := Summarize(id, before.Companies, after.Companies, topN)
		r.Funds = append(r.Funds, fd)

		r.Totals.Before.Companies += fd.Before.Companies
		r.Totals.Before.Jobs += fd.Before.Jobs
		r.Totals.After.Companies += fd.After.Companies
		r.Totals.After.Jobs += fd.After.Jobs
		r.HasChanges = r.HasChanges || fd.Changed
	}
	r.Totals.Delta = r.Totals.After.sub(r.Totals.Before)
	return r, nil
}

// Write stores the JSON and Markdown renderings in outDir and returns their
// paths.
func Write(outDir string, r *Report) (string, string, error) {
	jsonPath := filepath.Join(outDir, JSONFile)
	mdPath := filepath.Join(outDir, MarkdownFile)
	if err := dataset.WriteJSON(jsonPath, r); err != nil {
		return "", "", err
	}
	if err := dataset.WriteFile(mdPath, []byte(RenderMarkdown(r))); err != nil {
		return "", "", err
	}
	return jsonPath, mdPath, nil
}

// Fund returns the section for fundID.
func (r *Report) Fund(fundID string) (FundDelta, bool) {
	for _, f := range r.Funds {
		if f.FundID == fundID {
			return f, true
		}
	}
	return FundDelta{}, false
}

func index(companies []model.Company) map[string]model.Company {
	m := make(map[string]model.Company, len(companies))
	for _, c := range companies {
		m[c.Slug] = c
	}
	return m
}

func count(companies []model.Company) Counts {
	c := Counts{Companies: len(companies)}
	for _, co := range companies {
		c.Jobs += co.JobCount()
	}
	return c
}

func displayName(after, before model.Company) string {
	switch {
	case after.Name != "":
		return after.Name
	case before.Name != "":
		return before.Name
	default:
		return after.Slug
	}
}

func sortMovers(m []Mover) {
	col := collate.New(language.English)
	sort.SliceStable(m, func(i, j int) bool {
		ai, aj := abs(m[i].Delta), abs(m[j].Delta)
		if ai != aj {
			return ai > aj
		}
		if c := col.CompareString(m[i].Name, m[j].Name); c != 0 {
			return c < 0
		}
		return m[i].Slug < m[j].Slug
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
