package ui

import "osreport/internal/trace"

// StateChangedMsg is sent whenever the dashboard controller changes state.
// Views re-read the controller on receipt.
type StateChangedMsg struct{}

// LoadedMsg reports the end of a collection load. Failures are already on
// the controller's banner.
type LoadedMsg struct {
	Err error
}

// RefreshMsg starts a refresh session (SPC r).
type RefreshMsg struct{}

// RefreshStartedMsg reports whether the session opened its stream.
type RefreshStartedMsg struct {
	Err error
}

// CancelRefreshMsg discards the live session (c in the progress window).
type CancelRefreshMsg struct{}

// ExportMsg downloads the PDF report (SPC e).
type ExportMsg struct{}

// ExportedMsg reports a finished PDF export.
type ExportedMsg struct {
	Path string
	Err  error
}

// CycleFilterMsg advances the type filter (f).
type CycleFilterMsg struct{}

// CycleSortMsg advances the sort field (s).
type CycleSortMsg struct{}

// ToggleSortOrderMsg flips the sort direction (S).
type ToggleSortOrderMsg struct{}

// CycleGroupMsg advances the grouping mode (SPC g).
type CycleGroupMsg struct{}

// ChangePageMsg moves the table by Delta pages (n/p, right/left).
type ChangePageMsg struct {
	Delta int
}

// OpenDetailMsg opens the detail view of a resource (enter).
type OpenDetailMsg struct {
	ID string
}

// DismissBannerMsg clears the error banner (x, SPC x).
type DismissBannerMsg struct{}

// ShowTracesMsg opens the recent refresh traces (SPC t).
type ShowTracesMsg struct{}

// TraceUpdateMsg is sent when the trace manager changes.
type TraceUpdateMsg struct {
	Traces []*trace.Trace
}

// DismissModalMsg closes the top overlay.
type DismissModalMsg struct{}
