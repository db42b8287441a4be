package normalize

import (
	"sort"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

// UnmappedReport collects raw sector tags that have no canonical mapping.
// Each tag appears once regardless of how many companies carry it.
type UnmappedReport struct {
	counts map[string]int
}

// NewUnmappedReport returns an empty report.
func NewUnmappedReport() *UnmappedReport {
	return &UnmappedReport{counts: map[string]int{}}
}

func (r *UnmappedReport) add(tag string) { r.counts[tag]++ }

// Merge folds other into r.
func (r *UnmappedReport) Merge(other *UnmappedReport) {
	if other == nil {
		return
	}
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	for k, v := range other.counts {
		r.counts[k] += v
	}
}

// Tags returns the unmapped tags sorted ascending.
func (r *UnmappedReport) Tags() []string {
	out := make([]string, 0, len(r.counts))
	for k := range r.counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// References returns how many company records carried tag.
func (r *UnmappedReport) References(tag string) int { return r.counts[tag] }

// Len returns the number of distinct unmapped tags.
func (r *UnmappedReport) Len() int { return len(r.counts) }

// SectorNormalizer rewrites company sector lists into canonical tags.
type SectorNormalizer struct {
	sectors *reference.SectorMap
}

// NewSectorNormalizer returns a normalizer backed by m.
func NewSectorNormalizer(m *reference.SectorMap) *SectorNormalizer {
	return &SectorNormalizer{sectors: m}
}

// Apply returns normalized copies of companies plus the unmapped-tag report.
// Companies without sectors are returned unchanged.
func (n *SectorNormalizer) Apply(companies []model.Company) ([]model.Company, *UnmappedReport) {
	rep := NewUnmappedReport()
	out := make([]model.Company, len(companies))
	for i, c := range companies {
		c = c.Clone()
		if len(c.Sectors) > 0 {
			c.Sectors = n.normalizeTags(c.Sectors, rep)
		}
		out[i] = c
	}
	return out, rep
}

func (n *SectorNormalizer) normalizeTags(raw []string, rep *UnmappedReport) []string {
	set := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		mapped, ok := n.sectors.Lookup(tag)
		if !ok {
			rep.add(tag)
			continue
		}
		set[mapped] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Distribution counts companies per canonical sector across all inputs.
func Distribution(companies []model.Company) map[string]int {
	out := map[string]int{}
	for _, c := range companies {
		for _, s := range c.Sectors {
			out[s]++
		}
	}
	return out
}
