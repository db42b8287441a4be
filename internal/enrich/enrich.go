// Package enrich attaches derived flags and cross-referenced facts onto
// filtered companies and fixes their presentation order.
package enrich

import (
	"sort"
	"time"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

// DefaultStaleAfterDays is the rolling window after which a company's most
// recent job posting marks it stale.
const DefaultStaleAfterDays = 30

const dateLayout = "2006-01-02"

// Options carries the inputs enrichment needs beyond the companies themselves.
type Options struct {
	Today          time.Time
	StaleAfterDays int
	Listed         reference.SlugSet

	// Internships maps slug to open internship count. A nil map means the
	// platform exposes no internship data and both fields stay absent.
	Internships map[string]int

	// LatestJobDates maps slug to YYYY-MM-DD from a fresh job scan. Slugs the
	// scan did not resolve keep whatever date they already carried.
	LatestJobDates map[string]string
}

// Cutoff returns the YYYY-MM-DD date strictly before which a posting is stale.
func (o Options) Cutoff() string {
	days := o.StaleAfterDays
	if days <= 0 {
		days = DefaultStaleAfterDays
	}
	today := o.Today
	if today.IsZero() {
		today = time.Now()
	}
	return today.UTC().AddDate(0, 0, -days).Format(dateLayout)
}

// IsStale reports whether latestJobDate falls before cutoff. A missing date
// is never stale.
func IsStale(latestJobDate, cutoff string) bool {
	return latestJobDate != "" && latestJobDate < cutoff
}

// Apply returns enriched copies of companies sorted fresh-first, then by job
// count descending. Ties keep their input order.
func Apply(companies []model.Company, opts Options) []model.Company {
	cutoff := opts.Cutoff()
	out := make([]model.Company, len(companies))
	for i, c := range companies {
		c = c.Clone()
		c.IsPubliclyListed = opts.Listed.Has(c.Slug)

		if d, ok := opts.LatestJobDates[c.Slug]; ok && d != "" {
			c.LatestJobDate = d
		}
		if opts.Internships != nil {
			n := opts.Internships[c.Slug]
			c.HasInternships = model.BoolPtr(n > 0)
			c.InternshipCount = model.IntPtr(n)
		}

		c.IsStale = IsStale(c.LatestJobDate, cutoff)
		out[i] = c
	}
	Sort(out)
	return out
}

// Sort orders companies in place by (isStale asc, activeJobCount desc).
func Sort(companies []model.Company) {
	sort.SliceStable(companies, func(i, j int) bool {
		a, b := companies[i], companies[j]
		if a.IsStale != b.IsStale {
			return !a.IsStale
		}
		return a.JobCount() > b.JobCount()
	})
}
