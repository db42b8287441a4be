package model

// Company is the canonical record for one portfolio company within one fund.
// The slug is the join key for every reference list and for snapshot diffs.
type Company struct {
	Name             string   `json:"name"`
	Slug             string   `json:"slug"`
	JobsBoardURL     string   `json:"jobsBoardUrl"`
	Description      string   `json:"description,omitempty"`
	ActiveJobCount   int      `json:"activeJobCount"`
	Domain           string   `json:"domain,omitempty"`
	LogoURL          *string  `json:"logoUrl,omitempty"` // "" means "no logo", nil means unknown
	Sectors          []string `json:"sectors,omitempty"`
	LatestJobDate    string   `json:"latestJobDate,omitempty"` // YYYY-MM-DD
	IsPubliclyListed bool     `json:"isPubliclyListed,omitempty"`
	IsStale          bool     `json:"isStale,omitempty"`

	// Getro-only. Consider boards expose no seniority facet, so both stay nil there.
	HasInternships  *bool `json:"hasInternships,omitempty"`
	InternshipCount *int  `json:"internshipCount,omitempty"`

	// Geo holds location evidence observed by the normalizer in the current
	// invocation. Records read back from disk carry nil.
	Geo *GeoEvidence `json:"-"`
}

// GeoEvidence is the raw location data a source reported for a company.
type GeoEvidence struct {
	Locations []Location
}

// Location is one upstream location entry. Sources return either a bare
// string (Text) or an object with a country field (Country).
type Location struct {
	Text    string
	Country string
}

// JobCount returns the active job count, treating negatives as zero.
func (c Company) JobCount() int {
	if c.ActiveJobCount < 0 {
		return 0
	}
	return c.ActiveJobCount
}

// HasDomain reports whether the company carries a cross-fund identity key.
func (c Company) HasDomain() bool {
	return c.Domain != ""
}

// Clone returns a copy that shares no mutable state with c.
func (c Company) Clone() Company {
	out := c
	if c.LogoURL != nil {
		v := *c.LogoURL
		out.LogoURL = &v
	}
	if c.Sectors != nil {
		out.Sectors = append([]string(nil), c.Sectors...)
	}
	if c.HasInternships != nil {
		v := *c.HasInternships
		out.HasInternships = &v
	}
	if c.InternshipCount != nil {
		v := *c.InternshipCount
		out.InternshipCount = &v
	}
	if c.Geo != nil {
		out.Geo = &GeoEvidence{Locations: append([]Location(nil), c.Geo.Locations...)}
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
