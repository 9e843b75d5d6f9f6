package ui

import (
	"strings"
	"testing"

	"osreport/internal/progress"
)

func applyAll(events ...progress.Event) progress.Model {
	m := progress.NewModel("session_1")
	for _, ev := range events {
		m, _ = progress.Apply(m, ev)
	}
	return m
}

func TestProgressWindow_RendersProjectsAndResources(t *testing.T) {
	m := applyAll(
		progress.Event{Type: progress.EventStart, Message: "Initializing OpenStack client..."},
		progress.Event{Type: progress.EventProjectStart, Project: "alpha", CurrentStep: 1, TotalSteps: 1},
		progress.Event{Type: progress.EventResourceComplete, Project: "alpha", ResourceType: "servers", Count: 3},
		progress.Event{Type: progress.EventResourceError, Project: "alpha", ResourceType: "volumes", Message: "quota exceeded"},
	)
	w := NewProgressWindow(m)

	out := w.View()
	for _, want := range []string{"Refreshing inventory", "c: cancel", "alpha", "3 found", "quota exceeded"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestProgressWindow_Keys(t *testing.T) {
	w := NewProgressWindow(applyAll(progress.Event{Type: progress.EventStart}))

	if _, cmd := w.Update(keyMsg("esc")); cmd != nil {
		t.Error("esc must not close a running session")
	}
	_, cmd := w.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("c should cancel a running session")
	}
	if _, ok := cmd().(CancelRefreshMsg); !ok {
		t.Errorf("expected CancelRefreshMsg, got %T", cmd())
	}

	w.SetModel(applyAll(progress.Event{Type: progress.EventComplete, Summary: map[string]int{"servers": 3}}))
	if _, cmd := w.Update(keyMsg("c")); cmd != nil {
		t.Error("c does nothing once terminal")
	}
	_, cmd = w.Update(keyMsg("esc"))
	if cmd == nil {
		t.Fatal("esc should close a finished session")
	}
	if _, ok := cmd().(DismissModalMsg); !ok {
		t.Errorf("expected DismissModalMsg, got %T", cmd())
	}

	out := w.View()
	if !strings.Contains(out, "Summary") || !strings.Contains(out, "Refresh complete") {
		t.Errorf("terminal view should show the summary:\n%s", out)
	}
}

func TestProgressWindow_Empty(t *testing.T) {
	w := NewProgressWindow(progress.NewModel(""))
	if !strings.Contains(w.View(), "Waiting for the server") {
		t.Errorf("empty view:\n%s", w.View())
	}
}
