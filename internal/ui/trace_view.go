package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"osreport/internal/trace"
	"osreport/internal/ui/textutil"
)

// TraceView displays recent refresh sessions as ASCII span trees, newest
// first: the session, its projects and their resource types with durations.
type TraceView struct {
	traces   []*trace.Trace
	viewport viewport.Model
	width    int
}

// Ensure TraceView implements View
var _ View = (*TraceView)(nil)

// NewTraceView creates a trace view showing traces.
func NewTraceView(traces []*trace.Trace, width, height int) *TraceView {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	v := &TraceView{traces: traces, viewport: vp, width: width}
	v.refreshContent()
	return v
}

// Init implements View
func (v *TraceView) Init() tea.Cmd {
	return nil
}

// Update implements View
func (v *TraceView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case TraceUpdateMsg:
		atBottom := v.viewport.AtBottom()
		v.traces = msg.Traces
		v.refreshContent()
		if atBottom {
			v.viewport.GotoBottom()
		}
		return v, nil
	case tea.WindowSizeMsg:
		v.width = max(msg.Width-4, 30)
		v.viewport.Width = v.width
		v.viewport.Height = max(msg.Height-6, 5)
		v.refreshContent()
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "g", "home":
			v.viewport.GotoTop()
			return v, nil
		case "G", "end":
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View implements View
func (v *TraceView) View() string {
	header := Styles.Title.Render("Refresh traces") + "  " + Styles.Hint.Render("esc: close")
	return header + "\n" + v.viewport.View()
}

func (v *TraceView) refreshContent() {
	if len(v.traces) == 0 {
		v.viewport.SetContent(Styles.Empty.Render("No refresh traces yet. Press SPC r to refresh."))
		return
	}

	var lines []string
	for i, t := range v.traces {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, v.renderTrace(t)...)
	}
	v.viewport.SetContent(strings.Join(lines, "\n"))
}

func (v *TraceView) renderTrace(t *trace.Trace) []string {
	root := t.RootSpan
	if root == nil {
		return []string{Styles.Muted.Render(fmt.Sprintf("Trace %s (no spans yet)", shortTraceID(t.ID)))}
	}

	duration := "running..."
	icon, color := "●", ColorWarning
	if t.Status != "running" {
		duration = formatDuration(root.Duration)
		icon, color = outcomeIcon(root)
	}
	head := fmt.Sprintf("%s %s (%s) %s",
		root.Name, shortTraceID(t.ID), duration,
		lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(icon+" "+t.Status))
	lines := []string{Styles.Section.Render(head)}

	for i, child := range root.Children {
		lines = append(lines, v.renderSpan(child, "", i == len(root.Children)-1)...)
	}
	if len(root.Children) == 0 {
		lines = append(lines, Styles.Muted.Render("  (no projects yet)"))
	}
	return lines
}

// renderSpan renders span and its children as tree lines.
func (v *TraceView) renderSpan(span *trace.Span, prefix string, isLast bool) []string {
	connector := "├─"
	if isLast {
		connector = "└─"
	}
	name := span.Name
	if name == "" {
		name = "(unnamed)"
	}
	name = textutil.Truncate(name, max(v.width-textutil.Width(prefix)-24, 10))

	line := prefix + connector + " " + name
	if span.Duration > 0 {
		line += " " + Styles.Muted.Render(formatDuration(span.Duration))
		icon, color := outcomeIcon(span)
		line += " " + lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(icon)
	} else {
		line += " " + StatusStyle("building").Render("●")
	}
	lines := []string{line}

	childPrefix := prefix + "│  "
	if isLast {
		childPrefix = prefix + "   "
	}
	for i, child := range span.Children {
		lines = append(lines, v.renderSpan(child, childPrefix, i == len(span.Children)-1)...)
	}
	return lines
}

// outcomeIcon reads the outcome attribute set when the span closed.
func outcomeIcon(span *trace.Span) (icon, color string) {
	switch span.Attributes[trace.AttrOutcome] {
	case "error", "interrupted", "cancelled":
		return "✗", ColorDanger
	default:
		return "✓", ColorSuccess
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// shortTraceID returns a shortened version of the trace ID for display
func shortTraceID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
