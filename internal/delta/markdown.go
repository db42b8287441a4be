package delta

import (
	"fmt"
	"strings"
)

// RenderMarkdown produces the human-readable rendering of r.
func RenderMarkdown(r *Report) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	ids := make([]string, len(r.Funds))
	for i, f := range r.Funds {
		ids[i] = "`" + f.FundID + "`"
	}

	line("# Data Refresh Delta Report")
	line("")
	line("Generated: %s", r.GeneratedAt)
	line("Monitored funds: %s", strings.Join(ids, ", "))
	line("")
	line("## Summary")
	line("")
	line("| Fund | Companies (before -> after) | Jobs (before -> after) | Delta |")
	line("| --- | --- | --- | --- |")
	for _, f := range r.Funds {
		line("| `%s` | %d -> %d | %d -> %d | companies %s, jobs %s |",
			f.FundID, f.Before.Companies, f.After.Companies, f.Before.Jobs, f.After.Jobs,
			signed(f.Delta.Companies), signed(f.Delta.Jobs))
	}
	line("")
	line("Totals: companies %d -> %d (%s), jobs %d -> %d (%s).",
		r.Totals.Before.Companies, r.Totals.After.Companies, signed(r.Totals.Delta.Companies),
		r.Totals.Before.Jobs, r.Totals.After.Jobs, signed(r.Totals.Delta.Jobs))
	line("")

	if !r.HasChanges {
		line("No data changes detected.")
		return b.String()
	}

	line("## Changes")
	line("")
	for _, f := range r.Funds {
		if !f.Changed {
			continue
		}
		line("### %s", f.FundID)
		line("")
		if len(f.Added) > 0 {
			line("Added companies (%d): %s", len(f.Added), codeList(f.Added))
			line("")
		}
		if len(f.Removed) > 0 {
			line("Removed companies (%d): %s", len(f.Removed), codeList(f.Removed))
			line("")
		}
		if len(f.Movers) > 0 {
			line("Top job count movers:")
			line("")
			line("| Company | Slug | Before | After | Delta |")
			line("| --- | --- | --- | --- | --- |")
			for _, m := range f.Movers {
				line("| %s | `%s` | %d | %d | %s |", m.Name, m.Slug, m.BeforeJobs, m.AfterJobs, signed(m.Delta))
			}
			line("")
		}
	}
	return b.String()
}

func signed(n int) string {
	if n >= 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func codeList(slugs []string) string {
	out := make([]string, len(slugs))
	for i, s := range slugs {
		out[i] = "`" + s + "`"
	}
	return strings.Join(out, ", ")
}
