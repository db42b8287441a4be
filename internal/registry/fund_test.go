package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

func TestLoad_DefaultsWhenPathEmpty(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"peakxv", "accel", "lightspeed", "nexus", "gc", "blume"}, r.IDs())

	accel, ok := r.Get("accel")
	require.True(t, ok)
	assert.Equal(t, model.PlatformGetro, accel.Platform)
	assert.Equal(t, "8672", accel.CollectionID)
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "funds.yaml"))
	require.NoError(t, err)
	assert.Len(t, r.All(), 6)
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds.yaml")
	content := `
funds:
  - id: accel
    name: Accel
    base_url: https://jobs.accel.com/
    platform: getro
    collection_id: "8672"
  - id: nexus
    name: Nexus
    base_url: https://jobs.nexusvp.com
    platform: consider
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"accel", "nexus"}, r.IDs())

	accel, _ := r.Get("accel")
	assert.Equal(t, "https://jobs.accel.com", accel.BaseURL, "trailing slash trimmed")
	assert.Len(t, r.ByPlatform(model.PlatformConsider), 1)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		funds []model.FundConfig
		want  string
	}{
		{"empty id", []model.FundConfig{{Platform: model.PlatformConsider}}, "empty id"},
		{"bad platform", []model.FundConfig{{ID: "x", Platform: "lever"}}, "unknown platform"},
		{"getro without collection", []model.FundConfig{{ID: "x", Platform: model.PlatformGetro}}, "collection_id"},
		{"duplicate", []model.FundConfig{
			{ID: "x", Platform: model.PlatformConsider},
			{ID: "x", Platform: model.PlatformConsider},
		}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.funds)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSelect(t *testing.T) {
	r, err := New(DefaultFunds())
	require.NoError(t, err)

	got, err := r.Select([]string{"gc", " accel "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "accel", got[0].ID, "registry order, not argument order")
	assert.Equal(t, "gc", got[1].ID)

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	_, err = r.Select([]string{"sequoia"})
	assert.Error(t, err)

	_, err = r.Select([]string{" "})
	assert.Error(t, err)
}
