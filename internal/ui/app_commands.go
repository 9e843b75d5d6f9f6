package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"osreport/internal/dashboard"
	"osreport/internal/trace"
)

// loadCmd fetches the collection in the background.
func loadCmd(c *dashboard.Controller) tea.Cmd {
	return func() tea.Msg {
		return LoadedMsg{Err: c.Load(context.Background())}
	}
}

// refreshCmd starts a refresh session. Start returns once the stream is
// open; progress then arrives as StateChangedMsg.
func refreshCmd(c *dashboard.Controller) tea.Cmd {
	return func() tea.Msg {
		return RefreshStartedMsg{Err: c.Refresh(context.Background())}
	}
}

// exportCmd downloads the PDF report into dir.
func exportCmd(c *dashboard.Controller, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := c.ExportPDF(context.Background(), dir)
		return ExportedMsg{Path: path, Err: err}
	}
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// Sender is the part of tea.Program used to deliver external events.
type Sender interface {
	Send(tea.Msg)
}

// Bind forwards controller and trace changes into the program. Send runs on
// its own goroutine because changes may fire from inside Update.
func Bind(p Sender, c *dashboard.Controller, traces *trace.Manager) {
	c.OnChange(func() {
		go p.Send(StateChangedMsg{})
	})
	if traces != nil {
		traces.SetOnChange(func() {
			recent := traces.GetRecentTraces()
			go p.Send(TraceUpdateMsg{Traces: recent})
		})
	}
}
