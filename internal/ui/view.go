package ui

import tea "github.com/charmbracelet/bubbletea"

// View is the unit of composition: a screen, overlay or region with its own
// Elm-style init, update and render.
type View interface {
	Init() tea.Cmd
	Update(tea.Msg) (View, tea.Cmd)
	View() string
}
