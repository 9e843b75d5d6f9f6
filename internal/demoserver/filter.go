package demoserver

import (
	"slices"
	"strings"

	"osreport/internal/inventory"
)

type queryFilter struct {
	projects   []string
	projectIDs []string
	types      []string
	statuses   []string
}

func matches(allowed []string, v string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, v)
}

// filterReport returns a copy of report holding only matching resources, with
// the summary recomputed for them.
func filterReport(report *inventory.Report, f queryFilter) *inventory.Report {
	out := &inventory.Report{
		GeneratedAt: report.GeneratedAt,
		Projects:    report.Projects,
		Resources:   make([]inventory.Resource, 0, len(report.Resources)),
	}
	for _, r := range report.Resources {
		if matches(f.projects, r.ProjectName) &&
			matches(f.projectIDs, r.ProjectID) &&
			matches(f.types, string(r.Type)) &&
			matches(f.statuses, r.Status) {
			out.Resources = append(out.Resources, r)
		}
	}
	out.Summary = inventory.Summarize(out.Resources)
	return out
}

// splitList splits a comma-separated query value, dropping empty items.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
