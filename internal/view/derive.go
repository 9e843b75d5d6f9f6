package view

import (
	"cmp"
	"slices"
	"sort"

	"osreport/internal/inventory"
)

// RowKind discriminates the Row union.
type RowKind int

const (
	RowResource RowKind = iota
	RowGroupHeader
)

// Row is either a group header or a resource row.
type Row struct {
	Kind     RowKind
	Group    string // header only
	Count    int    // header only: members in the group
	Resource inventory.Resource
}

// IsHeader reports whether the row is a group header.
func (r Row) IsHeader() bool { return r.Kind == RowGroupHeader }

// Result is one derived page.
type Result struct {
	Rows       []Row
	Total      int // flattened row count, headers included when grouped
	Page       int
	TotalPages int
	Filtered   int // resources left after filtering
}

// Derive filters, sorts, groups and paginates resources according to cfg.
func Derive(resources []inventory.Resource, cfg Config) Result {
	filtered := Filter(resources, cfg.FilterType)
	Sort(filtered, cfg.SortField, cfg.SortDescending)

	var rows []Row
	total := len(filtered)
	if cfg.GroupBy.Grouped() {
		rows = Group(filtered, cfg.GroupBy)
		total = len(rows)
	} else {
		rows = make([]Row, len(filtered))
		for i, r := range filtered {
			rows[i] = Row{Kind: RowResource, Resource: r}
		}
	}

	return Result{
		Rows:       Paginate(rows, cfg.Page),
		Total:      total,
		Page:       cfg.Page,
		TotalPages: TotalPages(total),
		Filtered:   len(filtered),
	}
}

// Filter keeps resources of type t, or copies all of them when t is empty.
func Filter(resources []inventory.Resource, t inventory.Type) []inventory.Resource {
	out := make([]inventory.Resource, 0, len(resources))
	for _, r := range resources {
		if t == "" || r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders resources in place by field. Descending negates each comparison
// rather than reversing the result, so ties keep their filtered order either way.
// Unknown fields compare equal and leave the order unchanged.
func Sort(resources []inventory.Resource, field string, desc bool) {
	compare := comparator(field)
	slices.SortStableFunc(resources, func(a, b inventory.Resource) int {
		c := compare(a, b)
		if desc {
			return -c
		}
		return c
	})
}

func comparator(field string) func(a, b inventory.Resource) int {
	switch field {
	case SortName:
		return func(a, b inventory.Resource) int { return cmp.Compare(a.Name, b.Name) }
	case SortType:
		return func(a, b inventory.Resource) int { return cmp.Compare(a.Type, b.Type) }
	case SortProjectName:
		return func(a, b inventory.Resource) int { return cmp.Compare(a.ProjectName, b.ProjectName) }
	case SortStatus:
		return func(a, b inventory.Resource) int { return cmp.Compare(a.Status, b.Status) }
	case SortCreatedAt:
		return func(a, b inventory.Resource) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return func(a, b inventory.Resource) int { return 0 }
	}
}

// GroupKey returns the value a resource is grouped under.
func GroupKey(r inventory.Resource, g GroupBy) string {
	switch g {
	case GroupProject:
		return r.ProjectName
	case GroupType:
		return string(r.Type)
	case GroupStatus:
		return r.Status
	}
	return ""
}

// Group partitions sorted resources by g. Keys are emitted in ascending order
// regardless of the sort; members keep their incoming order. Each group is a
// header row followed by its members.
func Group(sorted []inventory.Resource, g GroupBy) []Row {
	groups := make(map[string][]inventory.Resource)
	for _, r := range sorted {
		k := GroupKey(r, g)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]Row, 0, len(sorted)+len(keys))
	for _, k := range keys {
		members := groups[k]
		rows = append(rows, Row{Kind: RowGroupHeader, Group: k, Count: len(members)})
		for _, r := range members {
			rows = append(rows, Row{Kind: RowResource, Resource: r})
		}
	}
	return rows
}

// Paginate returns the rows of the 1-based page. Out-of-range pages are empty.
func Paginate(rows []Row, page int) []Row {
	if page < 1 {
		return nil
	}
	start := (page - 1) * PageSize
	if start >= len(rows) {
		return nil
	}
	end := min(start+PageSize, len(rows))
	return rows[start:end]
}

// TotalPages is ceil(total / PageSize).
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// ValidPage reports whether page p can be navigated to for total rows.
func ValidPage(p, total int) bool {
	return p >= 1 && p <= TotalPages(total)
}
