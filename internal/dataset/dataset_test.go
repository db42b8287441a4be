package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

var today = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

func TestRead_Missing(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(dir, "accel")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDataFile))
	assert.Contains(t, err.Error(), filepath.Join(dir, "accel.json"))
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir, "gc"), []byte("{nope"), 0o644))
	_, err := Read(dir, "gc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingDataFile))
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f := NewDataFile([]model.Company{
		{Name: "A & B", Slug: "ab", JobsBoardURL: "https://x/companies/ab#content", ActiveJobCount: 2, LogoURL: model.StringPtr("")},
	}, "https://x", today)

	require.NoError(t, Write(dir, "accel", f))

	raw, err := os.ReadFile(Path(dir, "accel"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name": "A & B"`, "html is not escaped")
	assert.Contains(t, string(raw), `"logoUrl": ""`)
	assert.Contains(t, string(raw), `"lastUpdated": "2024-03-31"`)

	got, err := Read(dir, "accel")
	require.NoError(t, err)
	assert.Equal(t, f, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestNewDataFile_EmptyCompanies(t *testing.T) {
	f := NewDataFile(nil, "src", today)
	assert.NotNil(t, f.Companies)
	assert.Equal(t, 0, f.Meta.TotalCompanies)
}

func TestValidateSchema(t *testing.T) {
	valid := `{"meta":{"lastUpdated":"2024-03-31","totalCompanies":1,"source":"x"},
		"companies":[{"name":"A","slug":"a","jobsBoardUrl":"u","activeJobCount":null,"sectors":["Fintech"]}]}`
	problems, err := ValidateSchema([]byte(valid))
	require.NoError(t, err)
	assert.Empty(t, problems)

	invalid := `{"meta":{"lastUpdated":"31/03/2024","totalCompanies":1,"source":"x"},
		"companies":[{"name":"","slug":"a","jobsBoardUrl":"u","activeJobCount":-1}]}`
	problems, err = ValidateSchema([]byte(invalid))
	require.NoError(t, err)
	joined := strings.Join(problems, "\n")
	assert.Contains(t, joined, "lastUpdated")
	assert.Contains(t, joined, "name")
	assert.Contains(t, joined, "activeJobCount")
}

func TestValidateSchema_NotJSON(t *testing.T) {
	_, err := ValidateSchema([]byte("not json"))
	assert.Error(t, err)
}

func TestCheckInvariants(t *testing.T) {
	sectors := reference.NewSectorMap(map[string]string{"Payments": "Fintech"})
	f := &model.DataFile{
		Meta: model.DataFileMeta{TotalCompanies: 3},
		Companies: []model.Company{
			{Slug: "a", Sectors: []string{"Fintech"}},
			{Slug: "a", Sectors: []string{"Payments"}},
		},
	}
	problems := CheckInvariants(f, sectors)
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "totalCompanies")
	assert.Contains(t, problems[1], "duplicate slug")
	assert.Contains(t, problems[2], `"Payments"`)

	assert.Len(t, CheckInvariants(f, nil), 2)
}

func TestLoadFunds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "accel", NewDataFile([]model.Company{
		{Slug: "stale", ActiveJobCount: 10, LatestJobDate: "2024-01-01"},
		{Slug: "dead", ActiveJobCount: 4},
		{Slug: "fresh", ActiveJobCount: 3, IsPubliclyListed: true},
		{Slug: "idle", ActiveJobCount: 0},
		{Slug: "listed", ActiveJobCount: 1},
	}, "x", today)))
	require.NoError(t, Write(dir, "gc", NewDataFile([]model.Company{
		{Slug: "in", ActiveJobCount: 2},
		{Slug: "out", ActiveJobCount: 2},
	}, "x", today)))

	refs := reference.NewSet(
		map[string]reference.FundRule{"gc": {Mode: reference.ModeAllowlist, Slugs: reference.NewSlugSet("in")}},
		reference.NewSlugSet("dead"),
		reference.NewSlugSet("listed"),
		reference.SlugSet{},
	)
	funds := []model.FundConfig{{ID: "accel"}, {ID: "missing"}, {ID: "gc"}}

	got, err := LoadFunds(dir, funds, refs, LoadOptions{Today: today})
	require.NoError(t, err)
	require.Len(t, got, 2, "missing fund skipped")

	accel := got[0]
	assert.Equal(t, "accel", accel.ID)
	require.Len(t, accel.Companies, 3)
	assert.Equal(t, "fresh", accel.Companies[0].Slug)
	assert.False(t, accel.Companies[0].IsPubliclyListed, "stored flag recomputed")
	assert.Equal(t, "listed", accel.Companies[1].Slug)
	assert.True(t, accel.Companies[1].IsPubliclyListed)
	assert.Equal(t, "stale", accel.Companies[2].Slug)
	assert.True(t, accel.Companies[2].IsStale)
	assert.Equal(t, 3, accel.TotalCompanies)
	assert.Equal(t, 14, accel.TotalJobs)
	assert.Equal(t, 4, accel.FreshJobs)

	gc := got[1]
	require.Len(t, gc.Companies, 1)
	assert.Equal(t, "in", gc.Companies[0].Slug)
}
