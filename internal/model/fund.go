package model

// Platform identifies the upstream job-board platform family a fund uses.
type Platform string

const (
	PlatformGetro    Platform = "getro"
	PlatformConsider Platform = "consider"
)

// Valid reports whether p is a known platform family.
func (p Platform) Valid() bool {
	return p == PlatformGetro || p == PlatformConsider
}

// FundConfig describes one VC fund's job board.
type FundConfig struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	BaseURL      string   `yaml:"base_url" json:"jobsBoardBaseUrl"`
	Platform     Platform `yaml:"platform" json:"platform"`
	CollectionID string   `yaml:"collection_id,omitempty" json:"collectionId,omitempty"` // Getro only
	LogoPath     string   `yaml:"logo_path,omitempty" json:"logoPath,omitempty"`
	Color        string   `yaml:"color,omitempty" json:"color,omitempty"`
}

// VCFund is a fund config plus its resolved, consumer-ready companies.
type VCFund struct {
	FundConfig
	Companies      []Company `json:"companies"`
	TotalCompanies int       `json:"totalCompanies"`
	TotalJobs      int       `json:"totalJobs"`
	FreshJobs      int       `json:"freshJobs"`
}

// DataFileMeta is the header of a persisted fund file.
type DataFileMeta struct {
	LastUpdated    string `json:"lastUpdated"`
	TotalCompanies int    `json:"totalCompanies"`
	Source         string `json:"source"`
}

// DataFile is the persisted layout of {fundId}.json.
type DataFile struct {
	Meta      DataFileMeta `json:"meta"`
	Companies []Company    `json:"companies"`
}
