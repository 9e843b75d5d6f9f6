// Package progress folds the refresh lifecycle event stream into a progress
// model. Apply is a pure reducer; callers own the Model they pass in.
package progress

import "maps"

// Status is the lifecycle state of a project or resource entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// IsTerminal reports whether no further event may change the status.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// ResourceProgress is the state of one resource type within a project.
type ResourceProgress struct {
	Status  Status
	Message string
}

// ProjectProgress is the state of one project.
type ProjectProgress struct {
	Status        Status
	Message       string
	Resources     map[string]ResourceProgress
	ResourceOrder []string // first-seen order of resource types
}

// Model is the progress view of one refresh session.
type Model struct {
	SessionID    string
	Percent      int
	Message      string
	Projects     map[string]*ProjectProgress
	ProjectOrder []string // first-seen order of projects
	Summary      map[string]int
	Terminal     bool
	Failed       bool
}

// NewModel returns the initial model of a session.
func NewModel(sessionID string) Model {
	return Model{
		SessionID: sessionID,
		Message:   "Initializing...",
		Projects:  make(map[string]*ProjectProgress),
	}
}

// Project returns the project entry, or nil.
func (m Model) Project(name string) *ProjectProgress {
	return m.Projects[name]
}

// Clone returns a deep copy safe to hand to another goroutine.
func (m Model) Clone() Model {
	out := m
	out.Projects = make(map[string]*ProjectProgress, len(m.Projects))
	for name, p := range m.Projects {
		out.Projects[name] = p.clone()
	}
	out.ProjectOrder = append([]string(nil), m.ProjectOrder...)
	if m.Summary != nil {
		out.Summary = maps.Clone(m.Summary)
	}
	return out
}

func (p *ProjectProgress) clone() *ProjectProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.Resources = maps.Clone(p.Resources)
	if out.Resources == nil {
		out.Resources = make(map[string]ResourceProgress)
	}
	out.ResourceOrder = append([]string(nil), p.ResourceOrder...)
	return &out
}

// Counts tallies projects by status.
func (m Model) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, p := range m.Projects {
		out[p.Status]++
	}
	return out
}
