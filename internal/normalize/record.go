// Package normalize maps raw platform records into canonical companies and
// normalizes sector tags against the canonical vocabulary.
package normalize

import (
	"encoding/json"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

// ErrUnmappableRecord means a raw record lacks a name or slug.
var ErrUnmappableRecord = eris.New("unmappable record")

// RawRecord is one company object as decoded from an upstream response.
type RawRecord map[string]any

// Normalize maps one raw record into a canonical company.
func Normalize(raw RawRecord, s Strategy, fund model.FundConfig) (model.Company, error) {
	m := s.Mapping()

	name := strings.TrimSpace(stringField(raw, m.Name))
	slug := strings.TrimSpace(stringField(raw, m.Slug))
	if name == "" || slug == "" {
		return model.Company{}, eris.Wrapf(ErrUnmappableRecord, "fund %s: name=%q slug=%q", fund.ID, name, slug)
	}

	c := model.Company{
		Name:           html.UnescapeString(name),
		Slug:           slug,
		JobsBoardURL:   s.JobsBoardURL(fund.BaseURL, slug),
		Description:    strings.TrimSpace(stringField(raw, m.Description)),
		ActiveJobCount: intField(raw, m.JobCount),
		Domain:         strings.ToLower(strings.TrimSpace(stringField(raw, m.Domain))),
		Sectors:        stringsField(raw, m.Sectors),
		Geo:            &model.GeoEvidence{Locations: locationsField(raw, m.Locations)},
	}
	if v, ok := raw[m.LogoURL]; ok {
		logo, _ := v.(string)
		c.LogoURL = model.StringPtr(html.UnescapeString(logo))
	}
	return c, nil
}

// BatchReport summarizes a NormalizeBatch call.
type BatchReport struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// NormalizeBatch normalizes every record, skipping unmappable ones and
// dropping repeated slugs (first occurrence wins). Neither aborts the batch.
func NormalizeBatch(raws []RawRecord, s Strategy, fund model.FundConfig) ([]model.Company, BatchReport) {
	rep := BatchReport{Input: len(raws)}
	out := make([]model.Company, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for i, raw := range raws {
		c, err := Normalize(raw, s, fund)
		if err != nil {
			rep.Skipped++
			zap.L().Warn("skipping unmappable record",
				zap.String("fund", fund.ID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if _, dup := seen[c.Slug]; dup {
			rep.Duplicates++
			zap.L().Debug("dropping duplicate slug",
				zap.String("fund", fund.ID),
				zap.String("slug", c.Slug),
			)
			continue
		}
		seen[c.Slug] = struct{}{}
		out = append(out, c)
	}
	rep.Output = len(out)
	return out, rep
}

func stringField(raw RawRecord, key string) string {
	if key == "" {
		return ""
	}
	switch v := raw[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intField(raw RawRecord, key string) int {
	var n float64
	switch v := raw[key].(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return int(n)
}

func stringsField(raw RawRecord, key string) []string {
	if key == "" {
		return nil
	}
	switch v := raw[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

func locationsField(raw RawRecord, key string) []model.Location {
	items, ok := raw[key].([]any)
	if !ok {
		return []model.Location{}
	}
	out := make([]model.Location, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, model.Location{Text: v})
		case map[string]any:
			country, _ := v["country"].(string)
			out = append(out, model.Location{Country: country})
		}
	}
	return out
}
