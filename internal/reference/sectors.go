package reference

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// SectorMap maps raw upstream industry tags to the closed canonical vocabulary.
type SectorMap struct {
	mapping    map[string]string
	vocabulary map[string]struct{}
}

// NewSectorMap builds a SectorMap. Keys starting with "_" are comments.
func NewSectorMap(raw map[string]string) *SectorMap {
	m := &SectorMap{
		mapping:    make(map[string]string, len(raw)),
		vocabulary: make(map[string]struct{}),
	}
	for k, v := range raw {
		if strings.HasPrefix(k, "_") || v == "" {
			continue
		}
		m.mapping[k] = v
		m.vocabulary[v] = struct{}{}
	}
	return m
}

// Lookup returns the canonical tag for raw. A tag that already belongs to the
// canonical vocabulary maps to itself.
func (m *SectorMap) Lookup(raw string) (string, bool) {
	if v, ok := m.mapping[raw]; ok {
		return v, true
	}
	if _, ok := m.vocabulary[raw]; ok {
		return raw, true
	}
	return "", false
}

// IsCanonical reports whether tag is in the canonical vocabulary.
func (m *SectorMap) IsCanonical(tag string) bool {
	_, ok := m.vocabulary[tag]
	return ok
}

// Vocabulary returns the canonical tags sorted ascending.
func (m *SectorMap) Vocabulary() []string {
	out := make([]string, 0, len(m.vocabulary))
	for v := range m.vocabulary {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// LoadSectorMap reads sector-map.json from dir. Unlike the other reference
// lists, a missing sector map is fatal.
func LoadSectorMap(dir string) (*SectorMap, error) {
	path := filepath.Join(dir, SectorMapFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrMissingReferenceFile, "sector map %s", path)
		}
		return nil, eris.Wrapf(err, "reference: read %s", path)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "reference: parse %s", path)
	}

	entries := make(map[string]string, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, "_") {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, eris.Errorf("reference: %s: value for %q is not a string", path, k)
		}
		entries[k] = s
	}
	return NewSectorMap(entries), nil
}
