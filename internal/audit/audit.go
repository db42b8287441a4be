// Package audit flags companies whose domain or name suggests they are not
// India-origin. It is advisory only and never removes anything.
package audit

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

// ReportFile is the default report name inside the data directory.
const ReportFile = "audit-report.json"

// Reason strings joined into FlaggedCompany.Reason.
const (
	ReasonDomain   = "non-.in domain"
	ReasonName     = "name pattern suggests non-Indian"
	ReasonNoDomain = "no domain listed"

	NoDomainPlaceholder = "(none)"
)

// DefaultNamePatterns are the case-insensitive name prefixes treated as a
// hint of non-Indian origin.
var DefaultNamePatterns = []string{"^thought", "^crowd", "^new relic", "^stripe", "^atlassian"}

var indianSuffixes = []string{".in", ".co.in", ".org.in", ".net.in"}

// Rules is the already-adjudicated state plus the name heuristics.
type Rules struct {
	Overrides reference.SlugSet
	Denied    reference.SlugSet
	Defunct   reference.SlugSet
	Patterns  []*regexp.Regexp
}

// NewRules builds Rules from reference lists and raw pattern strings.
// Patterns are compiled case-insensitively.
func NewRules(refs *reference.Set, patterns []string) (Rules, error) {
	r := Rules{Denied: refs.DeniedSlugs()}
	if refs != nil {
		r.Overrides = refs.Overrides
		r.Defunct = refs.Defunct
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return Rules{}, eris.Wrapf(err, "audit: compile name pattern %q", p)
		}
		r.Patterns = append(r.Patterns, re)
	}
	return r, nil
}

// FundCompanies is one fund's persisted companies.
type FundCompanies struct {
	FundID    string
	Companies []model.Company
}

// FlaggedCompany is one entry in the report.
type FlaggedCompany struct {
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Fund           string `json:"fund"`
	ActiveJobCount int    `json:"activeJobCount"`
	Reason         string `json:"reason"`
}

// Report is the audit output document.
type Report struct {
	GeneratedAt  string           `json:"generatedAt"`
	TotalFlagged int              `json:"totalFlagged"`
	Companies    []FlaggedCompany `json:"companies"`
}

// ByFund returns the flagged companies for fundID in report order.
func (r *Report) ByFund(fundID string) []FlaggedCompany {
	var out []FlaggedCompany
	for _, c := range r.Companies {
		if c.Fund == fundID {
			out = append(out, c)
		}
	}
	return out
}

// Run evaluates every company in fund order. A slug seen in an earlier fund
// is not evaluated again.
func Run(funds []FundCompanies, rules Rules, now time.Time) *Report {
	seen := make(map[string]struct{})
	flagged := []FlaggedCompany{}

	for _, f := range funds {
		for _, c := range f.Companies {
			if rules.Overrides.Has(c.Slug) || rules.Denied.Has(c.Slug) || rules.Defunct.Has(c.Slug) {
				continue
			}
			if _, ok := seen[c.Slug]; ok {
				continue
			}
			seen[c.Slug] = struct{}{}

			reasons := rules.Evaluate(c)
			if len(reasons) == 0 {
				continue
			}
			domain := c.Domain
			if domain == "" {
				domain = NoDomainPlaceholder
			}
			flagged = append(flagged, FlaggedCompany{
				Slug:           c.Slug,
				Name:           c.Name,
				Domain:         domain,
				Fund:           f.FundID,
				ActiveJobCount: c.JobCount(),
				Reason:         strings.Join(reasons, "; "),
			})
		}
	}

	sortFlagged(flagged)
	return &Report{
		GeneratedAt:  now.UTC().Format(time.RFC3339),
		TotalFlagged: len(flagged),
		Companies:    flagged,
	}
}

// Evaluate returns the reasons c looks non-Indian, in fixed order. An empty
// result means c is not flagged.
func (r Rules) Evaluate(c model.Company) []string {
	var reasons []string
	if c.Domain != "" && !hasIndianSuffix(c.Domain) {
		reasons = append(reasons, ReasonDomain)
	}
	for _, re := range r.Patterns {
		if re.MatchString(c.Name) {
			reasons = append(reasons, ReasonName)
			break
		}
	}
	if c.Domain == "" {
		reasons = append(reasons, ReasonNoDomain)
	}
	return reasons
}

func hasIndianSuffix(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, s := range indianSuffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return false
}

func sortFlagged(fc []FlaggedCompany) {
	col := collate.New(language.English)
	sort.SliceStable(fc, func(i, j int) bool {
		if c := col.CompareString(fc[i].Fund, fc[j].Fund); c != 0 {
			return c < 0
		}
		return col.CompareString(fc[i].Name, fc[j].Name) < 0
	})
}
