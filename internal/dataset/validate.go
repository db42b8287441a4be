package dataset

import (
	_ "embed"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

//go:embed schema/fund-file.schema.json
var fundFileSchema []byte

// ValidateSchema checks raw fund file bytes against the embedded JSON schema
// and returns one message per violation.
func ValidateSchema(doc []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(fundFileSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: schema validation")
	}
	if result.Valid() {
		return nil, nil
	}
	out := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, e.String())
	}
	return out, nil
}

// CheckInvariants reports violations the schema cannot express: duplicate
// slugs, a header count that disagrees with the body, and stored sectors
// outside the canonical vocabulary. sectors may be nil.
func CheckInvariants(f *model.DataFile, sectors *reference.SectorMap) []string {
	var out []string
	if f.Meta.TotalCompanies != len(f.Companies) {
		out = append(out, fmt.Sprintf("meta.totalCompanies is %d but file holds %d companies",
			f.Meta.TotalCompanies, len(f.Companies)))
	}
	seen := make(map[string]struct{}, len(f.Companies))
	for i, c := range f.Companies {
		if _, dup := seen[c.Slug]; dup {
			out = append(out, fmt.Sprintf("companies[%d]: duplicate slug %q", i, c.Slug))
		}
		seen[c.Slug] = struct{}{}
		if sectors == nil {
			continue
		}
		for _, s := range c.Sectors {
			if !sectors.IsCanonical(s) {
				out = append(out, fmt.Sprintf("companies[%d] %s: non-canonical sector %q", i, c.Slug, s))
			}
		}
	}
	return out
}
