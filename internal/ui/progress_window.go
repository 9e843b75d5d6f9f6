package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"osreport/internal/progress"
)

// ProgressWindow shows the live refresh session as an overlay: a percent
// bar, the status line, each project with its resource lines, and the
// summary once the session is terminal. c cancels a running session; esc
// closes the window once the session is terminal.
type ProgressWindow struct {
	model    progress.Model
	bar      bprogress.Model
	viewport viewport.Model
	width    int
}

// Ensure ProgressWindow implements View.
var _ View = (*ProgressWindow)(nil)

const (
	defaultProgressWidth  = 70
	defaultProgressHeight = 16
)

// NewProgressWindow creates a window showing m.
func NewProgressWindow(m progress.Model) *ProgressWindow {
	bar := bprogress.New(bprogress.WithDefaultGradient())
	bar.Width = defaultProgressWidth - 10
	vp := viewport.New(defaultProgressWidth, defaultProgressHeight)
	p := &ProgressWindow{
		model:    m,
		bar:      bar,
		viewport: vp,
		width:    defaultProgressWidth,
	}
	p.refreshContent()
	return p
}

// Model returns the snapshot currently shown.
func (p *ProgressWindow) Model() progress.Model { return p.model }

// SetModel replaces the shown snapshot.
func (p *ProgressWindow) SetModel(m progress.Model) {
	p.model = m
	p.refreshContent()
}

// Init implements View.
func (p *ProgressWindow) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (p *ProgressWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if p.model.Terminal {
				return p, msgCmd(DismissModalMsg{})
			}
			return p, nil
		case "c":
			if !p.model.Terminal {
				return p, msgCmd(CancelRefreshMsg{})
			}
			return p, nil
		}
	case tea.WindowSizeMsg:
		p.width = max(msg.Width-4, 40)
		p.bar.Width = p.width - 10
		p.viewport.Width = p.width
		p.viewport.Height = max(msg.Height/2, 8)
		p.refreshContent()
		return p, nil
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// View implements View.
func (p *ProgressWindow) View() string {
	hint := "c: cancel"
	if p.model.Terminal {
		hint = "esc: close"
	}
	header := Styles.Title.Render("Refreshing inventory") + "  " + Styles.Hint.Render(hint)
	bar := p.bar.ViewAs(float64(p.model.Percent) / 100)
	status := p.model.Message
	if p.model.Failed {
		status = StatusStyle("error").Render(status)
	}
	body := strings.Join([]string{header, bar, status, "", p.viewport.View()}, "\n")
	return Styles.Box.Width(p.width).Render(body)
}

func (p *ProgressWindow) refreshContent() {
	var lines []string
	for _, name := range p.model.ProjectOrder {
		proj := p.model.Projects[name]
		if proj == nil {
			continue
		}
		line := fmt.Sprintf("%s %s", statusIcon(proj.Status), lipgloss.NewStyle().Bold(true).Render(name))
		if proj.Message != "" {
			line += "  " + Styles.Muted.Render(proj.Message)
		}
		lines = append(lines, line)
		for _, rt := range proj.ResourceOrder {
			res := proj.Resources[rt]
			lines = append(lines, fmt.Sprintf("    %s %s  %s",
				statusIcon(res.Status), progress.ResourceTypeLabel(rt), Styles.Muted.Render(res.Message)))
		}
	}
	if p.model.Terminal && len(p.model.Summary) > 0 {
		lines = append(lines, "", Styles.Section.Render("Summary"))
		for _, k := range slices.Sorted(maps.Keys(p.model.Summary)) {
			lines = append(lines, fmt.Sprintf("  %-18s %d", progress.ResourceTypeLabel(k), p.model.Summary[k]))
		}
	}
	content := strings.Join(lines, "\n")
	if content == "" {
		content = Styles.Empty.Render("Waiting for the server...")
	}
	p.viewport.SetContent(content)
	if !p.model.Terminal {
		p.viewport.GotoBottom()
	}
}

func statusIcon(s progress.Status) string {
	switch s {
	case progress.StatusInProgress:
		return StatusStyle("building").Render("●")
	case progress.StatusSuccess:
		return StatusStyle("active").Render("✓")
	case progress.StatusError:
		return StatusStyle("error").Render("✗")
	default:
		return Styles.Muted.Render("•")
	}
}
