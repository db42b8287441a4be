package normalize

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

// FieldMapping names the raw JSON keys a platform uses for each canonical field.
type FieldMapping struct {
	Name        string
	Slug        string
	JobCount    string
	Domain      string
	LogoURL     string
	Description string
	Sectors     string
	Locations   string
}

// Strategy captures everything that varies between platform families.
type Strategy interface {
	Platform() model.Platform
	Mapping() FieldMapping
	JobsBoardURL(baseURL, slug string) string
	// IndiaAssociated decides the geography filter for a freshly normalized
	// company. Records without Geo evidence were adjudicated on an earlier run.
	IndiaAssociated(c model.Company, overrides reference.SlugSet) bool
}

// ForPlatform returns the strategy for p.
func ForPlatform(p model.Platform) (Strategy, error) {
	switch p {
	case model.PlatformGetro:
		return getro{}, nil
	case model.PlatformConsider:
		return consider{}, nil
	default:
		return nil, eris.Errorf("normalize: unknown platform %q", p)
	}
}

type getro struct{}

func (getro) Platform() model.Platform { return model.PlatformGetro }

func (getro) Mapping() FieldMapping {
	return FieldMapping{
		Name:        "name",
		Slug:        "slug",
		JobCount:    "active_jobs_count",
		Domain:      "domain",
		LogoURL:     "logo_url",
		Description: "description",
		Sectors:     "industry_tags",
		Locations:   "locations",
	}
}

func (getro) JobsBoardURL(baseURL, slug string) string {
	return baseURL + "/companies/" + slug + "#content"
}

// IndiaAssociated is a deliberately permissive union: any location string
// containing "India", any location object whose country is exactly "India",
// or an override slug. The audit report catches the false positives.
func (getro) IndiaAssociated(c model.Company, overrides reference.SlugSet) bool {
	if c.Geo == nil {
		return true
	}
	for _, loc := range c.Geo.Locations {
		if strings.Contains(loc.Text, "India") || loc.Country == "India" {
			return true
		}
	}
	return overrides.Has(c.Slug)
}

type consider struct{}

func (consider) Platform() model.Platform { return model.PlatformConsider }

func (consider) Mapping() FieldMapping {
	return FieldMapping{
		Name:        "name",
		Slug:        "slug",
		JobCount:    "jobCount",
		Domain:      "domain",
		LogoURL:     "logoUrl",
		Description: "description",
		Sectors:     "industryTags",
		Locations:   "officeLocations",
	}
}

func (consider) JobsBoardURL(baseURL, slug string) string {
	return baseURL + "/jobs/" + slug
}

// IndiaAssociated always passes: Consider boards are queried with an India
// office-location filter upstream, and the per-fund rule set does the rest.
func (consider) IndiaAssociated(model.Company, reference.SlugSet) bool {
	return true
}
