package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"osreport/internal/inventory"
)

// DetailView shows every field of one resource, rendered from markdown.
// esc returns to the table; the app model handles that.
type DetailView struct {
	Resource inventory.Resource
	viewport viewport.Model
	width    int
}

// Ensure DetailView implements View.
var _ View = (*DetailView)(nil)

// NewDetailView creates a detail view sized width x height.
func NewDetailView(r inventory.Resource, width, height int) *DetailView {
	v := &DetailView{
		Resource: r,
		viewport: viewport.New(width, max(height-2, 5)),
		width:    width,
	}
	v.refreshContent()
	return v
}

// Init implements View.
func (v *DetailView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (v *DetailView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.viewport.Width = msg.Width
		v.viewport.Height = max(msg.Height-2, 5)
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

// View implements View.
func (v *DetailView) View() string {
	return v.viewport.View() + "\n" + Styles.Hint.Render("j/k scroll · esc back")
}

func (v *DetailView) refreshContent() {
	v.viewport.SetContent(RenderMarkdown(inventory.Details(v.Resource), v.width))
}

// RenderMarkdown renders md for the terminal, wrapped at width. The raw
// markdown is returned if rendering fails.
func RenderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
