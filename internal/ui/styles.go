package ui

import "github.com/charmbracelet/lipgloss"

// Theme colors used throughout the UI
const (
	ColorAccent    = "86"  // Cyan/green - titles, highlights
	ColorHighlight = "205" // Magenta - selected rows, borders
	ColorDanger    = "196" // Red - errors
	ColorMuted     = "241" // Gray - dimmed text, hints
	ColorText      = "252" // Light gray - normal text
	ColorWarning   = "208" // Orange - building, in progress
	ColorSuccess   = "42"  // Green - active, success
)

// Styles contains shared style definitions used across views.
var Styles = struct {
	Title    lipgloss.Style
	Box      lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Normal   lipgloss.Style
	Hint     lipgloss.Style
	Section  lipgloss.Style
	Empty    lipgloss.Style
	Banner   lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Section: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorHighlight)),
	Empty: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
	Banner: lipgloss.NewStyle().
		Foreground(lipgloss.Color("231")).
		Background(lipgloss.Color(ColorDanger)).
		Padding(0, 1),
}

// statusClassColors maps inventory.StatusClass buckets to colors.
var statusClassColors = map[string]string{
	"active":   ColorSuccess,
	"building": ColorWarning,
	"shutoff":  ColorMuted,
	"error":    ColorDanger,
}

// StatusStyle returns the foreground style of a status bucket.
func StatusStyle(class string) lipgloss.Style {
	c, ok := statusClassColors[class]
	if !ok {
		c = ColorText
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}
