// Package stats computes headline totals across funds, counting a company
// listed under several funds once.
package stats

import (
	"strings"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

// TopStats are the global headline numbers.
type TopStats struct {
	TotalCompanies int `json:"totalCompanies"`
	TotalJobs      int `json:"totalJobs"`
	FreshJobs      int `json:"freshJobs"`
}

// NormalizeDomain trims, lowercases and strips a leading "www.".
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(d, "www.")
}

// ComputeTopStats collapses companies sharing a normalized domain and sums
// the survivors. Within a domain group the strictly highest job count wins;
// on a tie the first one seen stays. Companies without a domain are always
// counted on their own.
func ComputeTopStats(companies []model.Company) TopStats {
	return sum(Dedupe(companies))
}

// Dedupe returns the representative companies in first-seen group order,
// followed by the domainless companies in input order.
func Dedupe(companies []model.Company) []model.Company {
	index := make(map[string]int)
	var grouped, standalone []model.Company

	for _, c := range companies {
		key := NormalizeDomain(c.Domain)
		if key == "" {
			standalone = append(standalone, c)
			continue
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(grouped)
			grouped = append(grouped, c)
			continue
		}
		if c.JobCount() > grouped[i].JobCount() {
			grouped[i] = c
		}
	}
	return append(grouped, standalone...)
}

// FundTotals sums one fund's companies without deduplication.
func FundTotals(companies []model.Company) TopStats {
	return sum(companies)
}

// Flatten concatenates fund companies in fund order, then file order. This
// is the traversal order ComputeTopStats tie-breaks on.
func Flatten(funds []model.VCFund) []model.Company {
	var out []model.Company
	for _, f := range funds {
		out = append(out, f.Companies...)
	}
	return out
}

func sum(companies []model.Company) TopStats {
	s := TopStats{TotalCompanies: len(companies)}
	for _, c := range companies {
		n := c.JobCount()
		s.TotalJobs += n
		if !c.IsStale {
			s.FreshJobs += n
		}
	}
	return s
}
