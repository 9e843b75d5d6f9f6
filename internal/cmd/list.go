package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"osreport/internal/dashboard"
	"osreport/internal/inventory"
	"osreport/internal/view"
)

type listOptions struct {
	typ    string
	sort   string
	desc   bool
	group  string
	page   int
	output string
}

// listRow is one output row. Group headers carry only Group and Count,
// which is never zero for a header.
type listRow struct {
	Group   string `json:"group,omitempty" yaml:"group,omitempty"`
	Count   int    `json:"count,omitempty" yaml:"count,omitempty"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Project string `json:"project,omitempty" yaml:"project,omitempty"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

type listPage struct {
	Page       int       `json:"page" yaml:"page"`
	TotalPages int       `json:"total_pages" yaml:"total_pages"`
	Total      int       `json:"total" yaml:"total"`
	Resources  int       `json:"resources" yaml:"resources"`
	Rows       []listRow `json:"rows" yaml:"rows"`
}

func newListCmd(a *app) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of the resource table",
		Example: `  osreport list --type server --sort created_at --desc
  osreport list --group project --page 2 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.controller(dashboard.Options{})
			page, err := loadPage(cmd.Context(), c, o)
			if err != nil {
				return err
			}
			return writePage(cmd.OutOrStdout(), page, o.output)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.typ, "type", "", "only this resource type ("+typeNames()+")")
	f.StringVar(&o.sort, "sort", view.SortName, "sort field ("+strings.Join(view.SortFields(), ", ")+"); a _desc suffix sorts descending")
	f.BoolVar(&o.desc, "desc", false, "sort descending")
	f.StringVar(&o.group, "group", "none", "group by none, project, type or status")
	f.IntVar(&o.page, "page", 1, "page number")
	f.StringVarP(&o.output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

// loadPage loads the inventory into c and applies the view options.
func loadPage(ctx context.Context, c *dashboard.Controller, o listOptions) (listPage, error) {
	t := inventory.Type(o.typ)
	if t != "" && !t.Valid() {
		return listPage{}, fmt.Errorf("unknown resource type %q (want one of %s)", o.typ, typeNames())
	}
	field, desc := view.ParseSort(o.sort)
	if !slices.Contains(view.SortFields(), field) {
		return listPage{}, fmt.Errorf("unknown sort field %q", o.sort)
	}
	g, ok := view.ParseGroupBy(o.group)
	if !ok {
		return listPage{}, fmt.Errorf("unknown grouping %q", o.group)
	}

	if err := c.Load(ctx); err != nil {
		return listPage{}, err
	}
	c.ChangeFilter(t)
	c.ChangeSort(field, desc || o.desc)
	c.ChangeGroup(g)
	if o.page != 1 && !c.ChangePage(o.page) {
		return listPage{}, fmt.Errorf("page %d out of range (1-%d)", o.page, max(c.Rows().TotalPages, 1))
	}

	r := c.Rows()
	page := listPage{Page: r.Page, TotalPages: r.TotalPages, Total: r.Total, Resources: r.Filtered}
	for _, row := range r.Rows {
		if row.IsHeader() {
			page.Rows = append(page.Rows, listRow{Group: row.Group, Count: row.Count})
			continue
		}
		res := row.Resource
		page.Rows = append(page.Rows, listRow{
			ID:      res.ID,
			Name:    res.DisplayTitle(),
			Type:    string(res.Type),
			Project: res.ProjectName,
			Status:  res.Status,
			Details: inventory.Subtitle(res),
		})
	}
	return page, nil
}

func writePage(w io.Writer, page listPage, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(page); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		_, err := fmt.Fprintln(w, renderTable(page))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	groupStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

func renderTable(page listPage) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "TYPE", "PROJECT", "STATUS", "DETAILS").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(page.Rows) && page.Rows[row].Count > 0:
				return groupStyle
			default:
				return cellStyle
			}
		})
	for _, r := range page.Rows {
		if r.Count > 0 {
			t.Row(fmt.Sprintf("%s (%d)", r.Group, r.Count), "", "", "", "")
			continue
		}
		t.Row(r.Name, inventory.DisplayName(inventory.Type(r.Type)), r.Project, r.Status, r.Details)
	}
	footer := fmt.Sprintf("Page %d/%d · %d resources", max(page.Page, 1), max(page.TotalPages, 1), page.Resources)
	return t.String() + "\n" + footer
}

func typeNames() string {
	names := make([]string, 0, len(inventory.Types()))
	for _, t := range inventory.Types() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
