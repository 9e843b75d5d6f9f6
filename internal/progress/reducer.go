package progress

import (
	"fmt"
	"math"
	"time"
)

// ReloadDelay is how long after a completed refresh the collection is reloaded.
const ReloadDelay = time.Second

// Fixed progress milestones of the lifecycle.
const (
	percentStart    = 5
	percentProgress = 10
	percentProjects = 80 // span covered by project_start steps, above percentProgress
	percentSummary  = 95
	percentDone     = 100
)

// IntentKind names a side effect requested by the reducer.
type IntentKind int

const (
	IntentCloseStream IntentKind = iota
	IntentScheduleReload
)

func (k IntentKind) String() string {
	switch k {
	case IntentCloseStream:
		return "close-stream"
	case IntentScheduleReload:
		return "schedule-reload"
	default:
		return "unknown"
	}
}

// Intent is a side effect the session controller must carry out.
type Intent struct {
	Kind  IntentKind
	Delay time.Duration // schedule-reload only
}

// Apply folds one event into m and returns the next model plus intents.
// m is not modified. Percent never decreases, terminal entries never change,
// and once the session is terminal every further event is ignored.
func Apply(m Model, ev Event) (Model, []Intent) {
	if m.Terminal {
		return m, nil
	}
	next := m.Clone()

	switch ev.Type {
	case EventStart:
		next.Message = ev.Message
		next.advance(percentStart)
	case EventProgress:
		next.Message = ev.Message
		next.advance(percentProgress)
	case EventProjectStart:
		if ev.TotalSteps > 0 {
			ratio := float64(ev.CurrentStep) / float64(ev.TotalSteps)
			next.advance(int(math.Round(ratio*percentProjects)) + percentProgress)
		}
		msg := ev.Message
		if msg == "" && ev.Project != "" {
			msg = "Processing " + ev.Project
		}
		next.Message = fmt.Sprintf("[%d/%d] %s", ev.CurrentStep, ev.TotalSteps, msg)
		if ev.Project != "" && next.Projects[ev.Project] == nil {
			p := next.ensureProject(ev.Project)
			p.Message = "Collecting data..."
		}
	case EventResourceStart:
		next.setResource(ev.Project, ev.ResourceType, StatusInProgress,
			fmt.Sprintf("Collecting %s...", ResourceTypeLabel(ev.ResourceType)))
	case EventResourceComplete:
		next.setResource(ev.Project, ev.ResourceType, StatusSuccess, fmt.Sprintf("%d found", ev.Count))
	case EventResourceError:
		next.setResource(ev.Project, ev.ResourceType, StatusError, failureMessage(ev))
	case EventProjectComplete:
		next.setProject(ev.Project, StatusSuccess, fmt.Sprintf("%d resources", ev.Count))
	case EventProjectError:
		next.setProject(ev.Project, StatusError, failureMessage(ev))
	case EventSummary:
		next.Message = ev.Message
		next.advance(percentSummary)
		next.attachSummary(ev.Summary)
	case EventComplete:
		next.Message = "Refresh complete"
		next.advance(percentDone)
		next.attachSummary(ev.Summary)
		next.Terminal = true
		return next, []Intent{
			{Kind: IntentCloseStream},
			{Kind: IntentScheduleReload, Delay: ReloadDelay},
		}
	case EventError:
		next.Message = "Error: " + ev.Message
		next.advance(percentDone)
		next.Terminal = true
		next.Failed = true
		return next, []Intent{{Kind: IntentCloseStream}}
	default:
		// Unknown event types are ignored for forward compatibility.
		return m, nil
	}
	return next, nil
}

func (m *Model) advance(percent int) {
	percent = min(percent, percentDone)
	if percent > m.Percent {
		m.Percent = percent
	}
}

func (m *Model) attachSummary(summary map[string]int) {
	if summary == nil {
		return
	}
	m.Summary = make(map[string]int, len(summary))
	for k, v := range summary {
		m.Summary[k] = v
	}
}

// ensureProject returns the project entry, creating it in progress if absent.
func (m *Model) ensureProject(name string) *ProjectProgress {
	if p, ok := m.Projects[name]; ok {
		return p
	}
	p := &ProjectProgress{
		Status:    StatusInProgress,
		Resources: make(map[string]ResourceProgress),
	}
	m.Projects[name] = p
	m.ProjectOrder = append(m.ProjectOrder, name)
	return p
}

func (m *Model) setProject(name string, status Status, message string) {
	if name == "" {
		return
	}
	p := m.ensureProject(name)
	if p.Status.IsTerminal() {
		return
	}
	p.Status = status
	p.Message = message
}

func (m *Model) setResource(project, resourceType string, status Status, message string) {
	if project == "" || resourceType == "" {
		return
	}
	p := m.ensureProject(project)
	current, seen := p.Resources[resourceType]
	if seen && current.Status.IsTerminal() {
		return
	}
	if !seen {
		p.ResourceOrder = append(p.ResourceOrder, resourceType)
	}
	p.Resources[resourceType] = ResourceProgress{Status: status, Message: message}
}

func failureMessage(ev Event) string {
	if ev.Message != "" {
		return ev.Message
	}
	return "Error"
}
