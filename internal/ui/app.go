package ui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"osreport/internal/dashboard"
	"osreport/internal/inventory"
	"osreport/internal/trace"
	"osreport/internal/view"
)

// Options configures an AppModel.
type Options struct {
	// Traces backs the SPC t overlay; nil disables it.
	Traces *trace.Manager
	// ExportDir receives PDF exports; empty means the working directory.
	ExportDir string
}

// AppModel is the root model. It switches between the resource table and
// the detail view and stacks overlays above them. All dashboard state lives
// in Controller; the views are re-synced from it on StateChangedMsg.
type AppModel struct {
	Mode       AppMode
	Controller *dashboard.Controller
	Resources  *ResourcesView
	Detail     *DetailView
	Overlays   OverlayStack
	KeyHandler *KeyHandler
	Traces     *trace.Manager
	ExportDir  string
	Status     string // transient notice under the table, e.g. the export path

	width  int
	height int
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root application model over c.
func NewAppModel(c *dashboard.Controller, opts Options) *AppModel {
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}
	a := &AppModel{
		Mode:       ModeResources,
		Controller: c,
		Resources:  NewResourcesView(),
		Traces:     opts.Traces,
		ExportDir:  exportDir,
	}
	a.KeyHandler = NewKeyHandler(a.registry())
	return a
}

func (a *AppModel) registry() *KeybindRegistry {
	table := []AppMode{ModeResources}
	reg := NewKeybindRegistry()
	reg.BindWithDesc("ctrl+c", tea.Quit, "Quit")
	reg.BindWithDesc("q", tea.Quit, "Quit")
	reg.BindWithDesc("SPC q", tea.Quit, "Quit")
	reg.BindWithDescForMode("f", msgCmd(CycleFilterMsg{}), "Filter type", table)
	reg.BindWithDescForMode("s", msgCmd(CycleSortMsg{}), "Sort field", table)
	reg.BindWithDescForMode("S", msgCmd(ToggleSortOrderMsg{}), "Sort order", table)
	reg.BindWithDesc("x", msgCmd(DismissBannerMsg{}), "Dismiss error")
	reg.BindWithDesc("SPC x", msgCmd(DismissBannerMsg{}), "Dismiss error")
	reg.BindWithDesc("SPC r", msgCmd(RefreshMsg{}), "Refresh")
	reg.BindWithDesc("SPC e", msgCmd(ExportMsg{}), "Export PDF")
	reg.BindWithDescForMode("SPC g", msgCmd(CycleGroupMsg{}), "Group by", table)
	reg.BindWithDesc("SPC t", msgCmd(ShowTracesMsg{}), "Traces")
	return reg
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (a *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: a}
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	return tea.Batch(a.Resources.SetLoading(true), loadCmd(a.Controller))
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.Resources.Update(msg)
		if a.Detail != nil {
			a.Detail.Update(msg)
		}
		for i := range a.Overlays.Stack {
			a.Overlays.Stack[i].View, _ = a.Overlays.Stack[i].View.Update(msg)
		}
		return a, nil
	case spinner.TickMsg:
		_, cmd := a.Resources.Update(msg)
		return a, cmd
	case StateChangedMsg, LoadedMsg, RefreshStartedMsg:
		return a, a.sync()
	case RefreshMsg:
		a.Status = ""
		return a, refreshCmd(a.Controller)
	case CancelRefreshMsg:
		a.Controller.CancelRefresh()
		return a, a.sync()
	case ExportMsg:
		a.Status = "Exporting PDF..."
		return a, exportCmd(a.Controller, a.ExportDir)
	case ExportedMsg:
		a.Status = ""
		if msg.Err == nil {
			a.Status = "Saved report to " + msg.Path
		}
		return a, a.sync()
	case CycleFilterMsg:
		a.Controller.ChangeFilter(nextFilter(a.Controller.Config().FilterType))
		return a, a.sync()
	case CycleSortMsg:
		cfg := a.Controller.Config()
		a.Controller.ChangeSort(next(view.SortFields(), cfg.SortField), cfg.SortDescending)
		return a, a.sync()
	case ToggleSortOrderMsg:
		cfg := a.Controller.Config()
		a.Controller.ChangeSort(cfg.SortField, !cfg.SortDescending)
		return a, a.sync()
	case CycleGroupMsg:
		a.Controller.ChangeGroup(next(view.GroupModes(), a.Controller.Config().GroupBy))
		return a, a.sync()
	case ChangePageMsg:
		a.Controller.ChangePage(a.Controller.Config().Page + msg.Delta)
		return a, a.sync()
	case OpenDetailMsg:
		r, err := a.Controller.Resource(msg.ID)
		if err != nil {
			a.Status = err.Error()
			return a, nil
		}
		a.Mode = ModeDetail
		a.KeyHandler.Mode = ModeDetail
		a.Detail = NewDetailView(r, a.viewWidth(), a.viewHeight())
		return a, a.Detail.Init()
	case DismissBannerMsg:
		a.Controller.DismissBanner()
		return a, nil
	case ShowTracesMsg:
		if a.Traces == nil || a.Overlays.Find(isTraceView) >= 0 {
			return a, nil
		}
		a.Overlays.Push(Overlay{
			View:    NewTraceView(a.Traces.GetRecentTraces(), a.viewWidth()-4, max(a.viewHeight()-6, 5)),
			Dismiss: "esc",
		})
		return a, nil
	case TraceUpdateMsg:
		if i := a.Overlays.Find(isTraceView); i >= 0 {
			a.Overlays.Stack[i].View, _ = a.Overlays.Stack[i].View.Update(msg)
		}
		return a, nil
	case DismissModalMsg:
		a.dismissTop()
		return a, nil
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}

	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

func (a *appModelAdapter) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	// Overlays take input before the keybind system.
	if top, ok := a.Overlays.Peek(); ok {
		if top.IsDismissKey(key) {
			a.dismissTop()
			return nil
		}
		cmd, _ := a.Overlays.UpdateTop(msg)
		return cmd
	}

	if a.KeyHandler != nil {
		if consumed, cmd := a.KeyHandler.Handle(msg); consumed {
			return cmd
		}
	}

	if a.Mode == ModeDetail && key == "esc" {
		a.Mode = ModeResources
		a.KeyHandler.Mode = ModeResources
		a.Detail = nil
		return nil
	}

	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return cmd
}

// dismissTop closes the top overlay. Closing a finished progress window
// forgets the session.
func (a *AppModel) dismissTop() {
	top, ok := a.Overlays.Pop()
	if !ok {
		return
	}
	if _, isProgress := top.View.(*ProgressWindow); isProgress {
		a.Controller.ClearProgress()
	}
}

// sync copies controller state into the views: the table page, the loading
// spinner and the progress window of the live session.
func (a *AppModel) sync() tea.Cmd {
	c := a.Controller
	a.Resources.SetResult(c.Rows(), c.Config(), c.Collection().Loaded())
	cmd := a.Resources.SetLoading(c.Loading() || c.RefreshActive())

	i := a.Overlays.Find(isProgressWindow)
	m, ok := c.Progress()
	switch {
	case ok && i >= 0:
		a.Overlays.Stack[i].View.(*ProgressWindow).SetModel(m)
	case ok:
		w := NewProgressWindow(m)
		if a.width > 0 {
			w.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		}
		a.Overlays.Push(Overlay{View: w})
	case i >= 0:
		a.Overlays.Remove(i)
	}
	return cmd
}

func isProgressWindow(v View) bool {
	_, ok := v.(*ProgressWindow)
	return ok
}

func isTraceView(v View) bool {
	_, ok := v.(*TraceView)
	return ok
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	var parts []string
	if banner := a.Controller.Banner(); banner != "" {
		parts = append(parts, Styles.Banner.Render(banner+"  (x to dismiss)"))
	}

	if top, ok := a.Overlays.Peek(); ok {
		body := top.View.View()
		if a.width > 0 && a.height > 0 {
			body = lipgloss.Place(a.width, max(a.height-len(parts), 1), lipgloss.Center, lipgloss.Center, body)
		}
		parts = append(parts, body)
		return strings.Join(parts, "\n")
	}

	parts = append(parts, a.currentView().View())
	if a.Status != "" {
		parts = append(parts, Styles.Muted.Render(a.Status))
	}
	if a.KeyHandler != nil && a.KeyHandler.LeaderWaiting {
		parts = append(parts, RenderKeybindHelp(a.KeyHandler, a.Mode))
	}
	return strings.Join(parts, "\n")
}

func (a *AppModel) currentView() View {
	if a.Mode == ModeDetail && a.Detail != nil {
		return a.Detail
	}
	return a.Resources
}

func (a *AppModel) setCurrentView(v View) {
	switch v := v.(type) {
	case *ResourcesView:
		a.Resources = v
	case *DetailView:
		a.Detail = v
	}
}

func (a *AppModel) viewWidth() int {
	if a.width > 0 {
		return a.width
	}
	return 100
}

func (a *AppModel) viewHeight() int {
	if a.height > 0 {
		return a.height
	}
	return 24
}

// nextFilter cycles all types, then back to no filter.
func nextFilter(cur inventory.Type) inventory.Type {
	return next(append([]inventory.Type{""}, inventory.Types()...), cur)
}

// next returns the element after cur in values, wrapping around. An unknown
// cur yields the first element.
func next[T comparable](values []T, cur T) T {
	i := slices.Index(values, cur)
	return values[(i+1)%len(values)]
}
