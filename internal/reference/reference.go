// Package reference loads the global curation lists (India filter rules,
// defunct companies, publicly listed companies, India-origin overrides and the
// sector map) into immutable values that are passed explicitly to each stage.
package reference

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// File names inside the data directory.
const (
	FilterFile    = "india-filter.json"
	DefunctFile   = "defunct-companies.json"
	ListedFile    = "publicly-listed.json"
	OverrideFile  = "indian-origin-override.json"
	SectorMapFile = "sector-map.json"
)

// ErrMissingReferenceFile is returned when a required reference file is absent.
var ErrMissingReferenceFile = eris.New("missing reference file")

// FilterMode selects how a fund rule treats its slug list.
type FilterMode string

const (
	ModeAllowlist FilterMode = "allowlist"
	ModeDenylist  FilterMode = "denylist"
)

// SlugSet is a read-only set of company slugs.
type SlugSet struct {
	m map[string]struct{}
}

// NewSlugSet builds a set from the given slugs. Empty slugs are ignored.
func NewSlugSet(slugs ...string) SlugSet {
	m := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		if s != "" {
			m[s] = struct{}{}
		}
	}
	return SlugSet{m: m}
}

// Has reports whether slug is in the set. The zero SlugSet is empty.
func (s SlugSet) Has(slug string) bool {
	_, ok := s.m[slug]
	return ok
}

// Len returns the number of slugs.
func (s SlugSet) Len() int { return len(s.m) }

// Slugs returns the members sorted ascending.
func (s SlugSet) Slugs() []string {
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FundRule is a per-fund allowlist or denylist.
type FundRule struct {
	Mode  FilterMode
	Slugs SlugSet
}

// Retains reports whether the rule keeps the given slug.
func (r FundRule) Retains(slug string) bool {
	switch r.Mode {
	case ModeAllowlist:
		return r.Slugs.Has(slug)
	case ModeDenylist:
		return !r.Slugs.Has(slug)
	default:
		return true
	}
}

// Set bundles the permissive reference lists for one pipeline invocation.
type Set struct {
	rules     map[string]FundRule
	Defunct   SlugSet
	Listed    SlugSet
	Overrides SlugSet
}

// NewSet builds a Set from already-parsed parts. Used by tests and callers
// that assemble reference data in memory.
func NewSet(rules map[string]FundRule, defunct, listed, overrides SlugSet) *Set {
	cp := make(map[string]FundRule, len(rules))
	for k, v := range rules {
		cp[k] = v
	}
	return &Set{rules: cp, Defunct: defunct, Listed: listed, Overrides: overrides}
}

// Rule returns the fund's rule, if one exists.
func (s *Set) Rule(fundID string) (FundRule, bool) {
	if s == nil {
		return FundRule{}, false
	}
	r, ok := s.rules[fundID]
	return r, ok
}

// DeniedSlugs returns the union of every denylist across all funds.
func (s *Set) DeniedSlugs() SlugSet {
	var all []string
	if s != nil {
		for _, r := range s.rules {
			if r.Mode == ModeDenylist {
				all = append(all, r.Slugs.Slugs()...)
			}
		}
	}
	return NewSlugSet(all...)
}

type filterFileEntry struct {
	Mode  FilterMode `json:"mode"`
	Slugs []string   `json:"slugs"`
}

type companyListFile struct {
	Companies []struct {
		Slug string `json:"slug"`
	} `json:"companies"`
}

type overrideFile struct {
	Slugs []string `json:"slugs"`
}

// Load reads the permissive reference lists from dir. A missing file is
// treated as an empty list and logged; a malformed file is an error.
func Load(dir string) (*Set, error) {
	set := &Set{rules: map[string]FundRule{}}

	var filters map[string]filterFileEntry
	if err := readOptional(dir, FilterFile, &filters); err != nil {
		return nil, err
	}
	for fundID, f := range filters {
		if f.Mode != ModeAllowlist && f.Mode != ModeDenylist {
			return nil, eris.Errorf("reference: %s: fund %q has unknown mode %q", FilterFile, fundID, f.Mode)
		}
		set.rules[fundID] = FundRule{Mode: f.Mode, Slugs: NewSlugSet(f.Slugs...)}
	}

	var defunct companyListFile
	if err := readOptional(dir, DefunctFile, &defunct); err != nil {
		return nil, err
	}
	set.Defunct = NewSlugSet(slugsOf(defunct)...)

	var listed companyListFile
	if err := readOptional(dir, ListedFile, &listed); err != nil {
		return nil, err
	}
	set.Listed = NewSlugSet(slugsOf(listed)...)

	var overrides overrideFile
	if err := readOptional(dir, OverrideFile, &overrides); err != nil {
		return nil, err
	}
	set.Overrides = NewSlugSet(overrides.Slugs...)

	zap.L().Debug("reference lists loaded",
		zap.Int("fund_rules", len(set.rules)),
		zap.Int("defunct", set.Defunct.Len()),
		zap.Int("listed", set.Listed.Len()),
		zap.Int("overrides", set.Overrides.Len()),
	)
	return set, nil
}

func slugsOf(f companyListFile) []string {
	out := make([]string, 0, len(f.Companies))
	for _, c := range f.Companies {
		out = append(out, c.Slug)
	}
	return out
}

func readOptional(dir, name string, v any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("reference file missing, treating as empty",
				zap.String("path", path),
			)
			return nil
		}
		return eris.Wrapf(err, "reference: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "reference: parse %s", path)
	}
	return nil
}
