// Package registry holds the configured VC funds and their job-board platforms.
package registry

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

// DefaultFunds returns the built-in fund list in display order. Order matters:
// cross-fund dedup breaks job-count ties by fund order.
func DefaultFunds() []model.FundConfig {
	return []model.FundConfig{
		{ID: "peakxv", Name: "PeakXV Partners", BaseURL: "https://careers.peakxv.com", Platform: model.PlatformConsider, LogoPath: "/logos/vc/peakxv.png", Color: "#1a1a2e"},
		{ID: "accel", Name: "Accel", BaseURL: "https://jobs.accel.com", Platform: model.PlatformGetro, CollectionID: "8672", LogoPath: "/logos/vc/accel.png", Color: "#4f46e5"},
		{ID: "lightspeed", Name: "Lightspeed", BaseURL: "https://jobs.lsvp.com", Platform: model.PlatformConsider, LogoPath: "/logos/vc/lightspeed.svg", Color: "#dc2626"},
		{ID: "nexus", Name: "Nexus Venture Partners", BaseURL: "https://jobs.nexusvp.com", Platform: model.PlatformConsider, LogoPath: "/logos/vc/nexus.png", Color: "#0891b2"},
		{ID: "gc", Name: "General Catalyst", BaseURL: "https://jobs.generalcatalyst.com", Platform: model.PlatformGetro, CollectionID: "222", LogoPath: "/logos/vc/gc.png", Color: "#059669"},
		{ID: "blume", Name: "Blume Ventures", BaseURL: "https://jobs.blume.vc", Platform: model.PlatformGetro, CollectionID: "32333", LogoPath: "/logos/vc/blume.png", Color: "#f59e0b"},
	}
}

// Registry is an ordered, indexed collection of fund configs.
type Registry struct {
	funds []model.FundConfig
	byID  map[string]int
}

// New validates funds and builds a Registry preserving their order.
func New(funds []model.FundConfig) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(funds))}
	for _, f := range funds {
		if f.ID == "" {
			return nil, eris.New("registry: fund with empty id")
		}
		if !f.Platform.Valid() {
			return nil, eris.Errorf("registry: fund %q has unknown platform %q", f.ID, f.Platform)
		}
		if f.Platform == model.PlatformGetro && f.CollectionID == "" {
			return nil, eris.Errorf("registry: getro fund %q requires collection_id", f.ID)
		}
		if _, dup := r.byID[f.ID]; dup {
			return nil, eris.Errorf("registry: duplicate fund id %q", f.ID)
		}
		f.BaseURL = strings.TrimRight(f.BaseURL, "/")
		r.byID[f.ID] = len(r.funds)
		r.funds = append(r.funds, f)
	}
	return r, nil
}

// Load reads a funds YAML file. When path is empty or the file does not
// exist, the built-in defaults are used.
func Load(path string) (*Registry, error) {
	if path == "" {
		return New(DefaultFunds())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Debug("funds file not found, using built-in funds", zap.String("path", path))
			return New(DefaultFunds())
		}
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}

	var wrapper struct {
		Funds []model.FundConfig `yaml:"funds"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}
	if len(wrapper.Funds) == 0 {
		return nil, eris.Errorf("registry: %s defines no funds", path)
	}
	return New(wrapper.Funds)
}

// All returns every fund in configured order.
func (r *Registry) All() []model.FundConfig {
	return append([]model.FundConfig(nil), r.funds...)
}

// Get returns the fund with the given id.
func (r *Registry) Get(id string) (model.FundConfig, bool) {
	i, ok := r.byID[id]
	if !ok {
		return model.FundConfig{}, false
	}
	return r.funds[i], true
}

// IDs returns fund ids in configured order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.funds))
	for i, f := range r.funds {
		out[i] = f.ID
	}
	return out
}

// ByPlatform returns the funds on the given platform, in configured order.
func (r *Registry) ByPlatform(p model.Platform) []model.FundConfig {
	var out []model.FundConfig
	for _, f := range r.funds {
		if f.Platform == p {
			out = append(out, f)
		}
	}
	return out
}

// Select resolves a list of ids (as given on the command line) into configs.
// The result follows registry order, not argument order. An empty list
// selects every fund.
func (r *Registry) Select(ids []string) ([]model.FundConfig, error) {
	if len(ids) == 0 {
		return r.All(), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := r.byID[id]; !ok {
			return nil, eris.Errorf("registry: unknown fund %q", id)
		}
		want[id] = true
	}
	if len(want) == 0 {
		return nil, eris.New("registry: no funds selected")
	}
	var out []model.FundConfig
	for _, f := range r.funds {
		if want[f.ID] {
			out = append(out, f)
		}
	}
	return out, nil
}
