package reference

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_AllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FilterFile, `{
		"accel": {"mode": "denylist", "slugs": ["stripe", "rippling"]},
		"gc": {"mode": "allowlist", "slugs": ["zepto"]}
	}`)
	writeFile(t, dir, DefunctFile, `{"companies": [{"slug": "dunzo", "name": "Dunzo", "reason": "shut down"}]}`)
	writeFile(t, dir, ListedFile, `{"companies": [{"slug": "zomato", "name": "Zomato", "exchange": "NSE"}]}`)
	writeFile(t, dir, OverrideFile, `{"slugs": ["freshworks"]}`)

	set, err := Load(dir)
	require.NoError(t, err)

	rule, ok := set.Rule("accel")
	require.True(t, ok)
	assert.Equal(t, ModeDenylist, rule.Mode)
	assert.False(t, rule.Retains("stripe"))
	assert.True(t, rule.Retains("zepto"))

	rule, ok = set.Rule("gc")
	require.True(t, ok)
	assert.True(t, rule.Retains("zepto"))
	assert.False(t, rule.Retains("stripe"))

	_, ok = set.Rule("peakxv")
	assert.False(t, ok)

	assert.True(t, set.Defunct.Has("dunzo"))
	assert.True(t, set.Listed.Has("zomato"))
	assert.True(t, set.Overrides.Has("freshworks"))
	assert.Equal(t, []string{"rippling", "stripe"}, set.DeniedSlugs().Slugs())
}

func TestLoad_MissingFilesArePermissive(t *testing.T) {
	set, err := Load(t.TempDir())
	require.NoError(t, err)

	_, ok := set.Rule("accel")
	assert.False(t, ok)
	assert.Equal(t, 0, set.Defunct.Len())
	assert.Equal(t, 0, set.Listed.Len())
	assert.Equal(t, 0, set.Overrides.Len())
}

func TestLoad_UnknownMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FilterFile, `{"accel": {"mode": "blocklist", "slugs": []}}`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefunctFile, `{not json`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefunctFile)
}

func TestNilSet_Rule(t *testing.T) {
	var s *Set
	_, ok := s.Rule("accel")
	assert.False(t, ok)
	assert.Equal(t, 0, s.DeniedSlugs().Len())
}

func TestSlugSet_ZeroValue(t *testing.T) {
	var s SlugSet
	assert.False(t, s.Has("anything"))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Slugs())
}

func TestFundRule_UnknownModeRetains(t *testing.T) {
	assert.True(t, FundRule{Mode: "other", Slugs: NewSlugSet("a")}.Retains("a"))
}

func TestLoadSectorMap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SectorMapFile, `{
		"_comment": "raw -> canonical",
		"Financial Services": "Fintech",
		"Payments": "Fintech",
		"Healthcare": "Healthtech"
	}`)

	m, err := LoadSectorMap(dir)
	require.NoError(t, err)

	got, ok := m.Lookup("Payments")
	assert.True(t, ok)
	assert.Equal(t, "Fintech", got)

	got, ok = m.Lookup("Fintech")
	assert.True(t, ok, "canonical tags map to themselves")
	assert.Equal(t, "Fintech", got)

	_, ok = m.Lookup("_comment")
	assert.False(t, ok)

	_, ok = m.Lookup("Space")
	assert.False(t, ok)

	assert.Equal(t, []string{"Fintech", "Healthtech"}, m.Vocabulary())
	assert.True(t, m.IsCanonical("Healthtech"))
	assert.False(t, m.IsCanonical("Healthcare"))
}

func TestLoadSectorMap_MissingIsFatal(t *testing.T) {
	_, err := LoadSectorMap(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingReferenceFile))
	assert.Contains(t, err.Error(), SectorMapFile)
}

func TestLoadSectorMap_NonStringValue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SectorMapFile, `{"Payments": 3}`)

	_, err := LoadSectorMap(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a string")
}
