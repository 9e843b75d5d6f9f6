package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"osreport/internal/inventory"
	"osreport/internal/ui/textutil"
	"osreport/internal/view"
)

// ResourcesView is the resource table: group headers, a selectable row per
// resource with its status colored, and a pagination footer. It renders the
// derived page handed to it by SetResult; paging and view changes go through
// the dashboard controller.
type ResourcesView struct {
	result   view.Result
	config   view.Config
	loaded   bool
	loading  bool
	Selected int // index into result.Rows; never a header row when avoidable
	spinner  spinner.Model
	width    int
	height   int
}

// Ensure ResourcesView implements View.
var _ View = (*ResourcesView)(nil)

// NewResourcesView creates an empty table.
func NewResourcesView() *ResourcesView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))
	return &ResourcesView{
		config:  view.DefaultConfig(),
		spinner: s,
		width:   100,
		height:  24,
	}
}

// SetResult replaces the rendered page. The selection is kept by index and
// moved off group headers.
func (v *ResourcesView) SetResult(r view.Result, cfg view.Config, loaded bool) {
	pageChanged := r.Page != v.result.Page || cfg != v.config
	v.result = r
	v.config = cfg
	v.loaded = loaded
	if pageChanged {
		v.Selected = 0
	}
	v.Selected = min(v.Selected, max(len(r.Rows)-1, 0))
	v.skipHeader(1)
}

// SetLoading toggles the spinner and returns the command that drives it.
func (v *ResourcesView) SetLoading(loading bool) tea.Cmd {
	start := loading && !v.loading
	v.loading = loading
	if start {
		return v.spinner.Tick
	}
	return nil
}

// SelectedResource returns the resource under the cursor.
func (v *ResourcesView) SelectedResource() (inventory.Resource, bool) {
	if v.Selected < 0 || v.Selected >= len(v.result.Rows) {
		return inventory.Resource{}, false
	}
	row := v.result.Rows[v.Selected]
	if row.IsHeader() {
		return inventory.Resource{}, false
	}
	return row.Resource, true
}

// Init implements View.
func (v *ResourcesView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (v *ResourcesView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil
	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			v.move(1)
		case "k", "up":
			v.move(-1)
		case "g", "home":
			v.Selected = 0
			v.skipHeader(1)
		case "G", "end":
			v.Selected = max(len(v.result.Rows)-1, 0)
			v.skipHeader(-1)
		case "enter":
			if r, ok := v.SelectedResource(); ok {
				return v, msgCmd(OpenDetailMsg{ID: r.ID})
			}
		case "n", "right":
			return v, msgCmd(ChangePageMsg{Delta: 1})
		case "p", "left":
			return v, msgCmd(ChangePageMsg{Delta: -1})
		}
	}
	return v, nil
}

func (v *ResourcesView) move(delta int) {
	next := v.Selected + delta
	for next >= 0 && next < len(v.result.Rows) && v.result.Rows[next].IsHeader() {
		next += delta
	}
	if next >= 0 && next < len(v.result.Rows) {
		v.Selected = next
	}
}

// skipHeader moves the selection in direction dir while it sits on a header.
func (v *ResourcesView) skipHeader(dir int) {
	rows := v.result.Rows
	for i := v.Selected; i >= 0 && i < len(rows); i += dir {
		if !rows[i].IsHeader() {
			v.Selected = i
			return
		}
	}
}

// column widths of the table
const (
	colName    = 28
	colType    = 18
	colProject = 16
	colStatus  = 14
)

// View implements View.
func (v *ResourcesView) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Resources (%d)", v.result.Filtered)
	if v.loading {
		title += " " + v.spinner.View()
	}
	b.WriteString(Styles.Title.Render(title) + "\n")
	b.WriteString(Styles.Hint.Render(v.configLine()) + "\n\n")

	switch {
	case !v.loaded && v.loading:
		b.WriteString(Styles.Empty.Render("Loading resources...") + "\n")
	case !v.loaded:
		b.WriteString(Styles.Empty.Render("No data. Press SPC r to refresh.") + "\n")
	case len(v.result.Rows) == 0:
		b.WriteString(Styles.Empty.Render("No resources match the current filter.") + "\n")
	default:
		header := fmt.Sprintf("  %s %s %s %s %s",
			textutil.Cell("NAME", colName), textutil.Cell("TYPE", colType), textutil.Cell("PROJECT", colProject), textutil.Cell("STATUS", colStatus), "DETAILS")
		b.WriteString(Styles.Muted.Render(header) + "\n")
		for _, line := range v.visibleLines() {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + Styles.Hint.Render(v.footer()))
	return b.String()
}

func (v *ResourcesView) configLine() string {
	filter := "all"
	if v.config.FilterType != "" {
		filter = inventory.DisplayName(v.config.FilterType)
	}
	dir := "asc"
	if v.config.SortDescending {
		dir = "desc"
	}
	return fmt.Sprintf("filter: %s · sort: %s %s · group: %s", filter, v.config.SortField, dir, v.config.GroupBy)
}

func (v *ResourcesView) footer() string {
	pages := max(v.result.TotalPages, 1)
	return fmt.Sprintf("Page %d/%d · %d rows · j/k move · enter details · n/p page · f filter · s/S sort · SPC commands",
		max(v.result.Page, 1), pages, v.result.Total)
}

// visibleLines renders the rows that fit the window, scrolled to keep the
// selection visible.
func (v *ResourcesView) visibleLines() []string {
	rows := v.result.Rows
	avail := max(v.height-8, 5)
	start := 0
	if v.Selected >= avail {
		start = v.Selected - avail + 1
	}
	end := min(start+avail, len(rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, v.renderRow(rows[i], i == v.Selected))
	}
	return lines
}

func (v *ResourcesView) renderRow(row view.Row, selected bool) string {
	if row.IsHeader() {
		return Styles.Section.Render(fmt.Sprintf("▸ %s (%d)", row.Group, row.Count))
	}
	r := row.Resource
	cursor := "  "
	nameStyle := Styles.Normal
	if selected {
		cursor = Styles.Selected.Render("> ")
		nameStyle = Styles.Selected
	}
	status := StatusStyle(inventory.StatusClass(r.Status, r.Type)).Render(textutil.Cell(r.Status, colStatus))
	detailWidth := max(v.width-colName-colType-colProject-colStatus-8, 10)
	return cursor +
		nameStyle.Render(textutil.Cell(r.DisplayTitle(), colName)) + " " +
		textutil.Cell(inventory.DisplayName(r.Type), colType) + " " +
		textutil.Cell(r.ProjectName, colProject) + " " +
		status + " " +
		Styles.Muted.Render(textutil.Truncate(inventory.Subtitle(r), detailWidth))
}
