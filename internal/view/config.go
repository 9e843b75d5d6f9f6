// Package view derives the ordered, grouped, paginated rows of the resource
// table from a resource slice and a view configuration. Everything here is a
// pure function of its inputs.
package view

import (
	"strings"

	"osreport/internal/inventory"
)

// PageSize is the fixed number of rows per page. Group headers count as rows.
const PageSize = 50

// GroupBy selects how rows are partitioned.
type GroupBy string

const (
	GroupNone    GroupBy = ""
	GroupProject GroupBy = "project"
	GroupType    GroupBy = "type"
	GroupStatus  GroupBy = "status"
)

// GroupModes lists the grouping modes in cycling order.
func GroupModes() []GroupBy {
	return []GroupBy{GroupNone, GroupProject, GroupType, GroupStatus}
}

// Grouped reports whether g partitions rows.
func (g GroupBy) Grouped() bool {
	return g == GroupProject || g == GroupType || g == GroupStatus
}

func (g GroupBy) String() string {
	if g == GroupNone {
		return "none"
	}
	return string(g)
}

// ParseGroupBy accepts "none", "" or a grouping mode name.
func ParseGroupBy(s string) (GroupBy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GroupNone, true
	case "project":
		return GroupProject, true
	case "type":
		return GroupType, true
	case "status":
		return GroupStatus, true
	}
	return GroupNone, false
}

// Sort fields understood by the comparator.
const (
	SortName        = "name"
	SortType        = "type"
	SortProjectName = "project_name"
	SortStatus      = "status"
	SortCreatedAt   = "created_at"
)

// SortFields lists the sortable fields in cycling order.
func SortFields() []string {
	return []string{SortName, SortType, SortProjectName, SortStatus, SortCreatedAt}
}

// ParseSort decodes the "<field>[_desc]" form used by the sort selector.
func ParseSort(s string) (field string, desc bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "_desc") {
		return strings.TrimSuffix(s, "_desc"), true
	}
	return s, false
}

// Config is the mutable view configuration of the resource table.
type Config struct {
	FilterType     inventory.Type
	SortField      string
	SortDescending bool
	GroupBy        GroupBy
	Page           int
}

// DefaultConfig sorts by name ascending, ungrouped, on page 1.
func DefaultConfig() Config {
	return Config{SortField: SortName, Page: 1}
}

// WithFilter returns a copy filtering on t and reset to page 1.
// An empty t disables filtering.
func (c Config) WithFilter(t inventory.Type) Config {
	c.FilterType = t
	c.Page = 1
	return c
}

// WithSort returns a copy sorting on field and reset to page 1.
func (c Config) WithSort(field string, desc bool) Config {
	c.SortField = field
	c.SortDescending = desc
	c.Page = 1
	return c
}

// WithGroup returns a copy grouped by g and reset to page 1.
func (c Config) WithGroup(g GroupBy) Config {
	c.GroupBy = g
	c.Page = 1
	return c
}

// SortLabel renders the sort in the "<field>[_desc]" form.
func (c Config) SortLabel() string {
	if c.SortDescending {
		return c.SortField + "_desc"
	}
	return c.SortField
}
