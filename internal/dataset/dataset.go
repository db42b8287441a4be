// Package dataset reads and writes the persisted per-fund JSON files and
// assembles the consumer-facing fund view from them.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

// ErrMissingDataFile is returned when an expected {fundId}.json is absent.
var ErrMissingDataFile = eris.New("missing data file")

// Path returns the location of a fund's data file inside dir.
func Path(dir, fundID string) string {
	return filepath.Join(dir, fundID+".json")
}

// Read loads a fund's data file. A missing file wraps ErrMissingDataFile and
// names the path.
func Read(dir, fundID string) (*model.DataFile, error) {
	path := Path(dir, fundID)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrMissingDataFile, "fund %s: %s", fundID, path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	var f model.DataFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	return &f, nil
}

// NewDataFile wraps companies with a meta header dated today.
func NewDataFile(companies []model.Company, source string, today time.Time) *model.DataFile {
	if companies == nil {
		companies = []model.Company{}
	}
	return &model.DataFile{
		Meta: model.DataFileMeta{
			LastUpdated:    today.UTC().Format("2006-01-02"),
			TotalCompanies: len(companies),
			Source:         source,
		},
		Companies: companies,
	}
}

// Write persists a fund's data file atomically.
func Write(dir, fundID string, f *model.DataFile) error {
	return WriteJSON(Path(dir, fundID), f)
}

// WriteJSON encodes v with two-space indentation and replaces path with a
// rename so readers never observe a partial file.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "dataset: encode %s", path)
	}
	return WriteFile(path, buf.Bytes())
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "dataset: temp file for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "dataset: close %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return eris.Wrapf(err, "dataset: chmod %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "dataset: rename %s", path)
	}
	return nil
}
