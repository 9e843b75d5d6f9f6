package trace

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"osreport/internal/progress"
	"osreport/internal/session"
)

// Span attribute keys.
const (
	AttrSession      = "session_id"
	AttrProject      = "project"
	AttrResourceType = "resource_type"
	AttrCount        = "count"
	AttrOutcome      = "outcome"
	AttrMessage      = "message"
)

type sessionSpans struct {
	traceID   string
	rootID    string
	projects  map[string]string // project -> span id
	resources map[string]string // project + "/" + type -> span id
	started   map[string]bool
	open      map[string]bool // started and not ended
	ended     bool
}

// Recorder turns progress events into span events for a Manager. It
// implements session.Observer.
type Recorder struct {
	manager *Manager
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionSpans
}

var _ session.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder feeding manager.
func NewRecorder(manager *Manager) *Recorder {
	return &Recorder{
		manager:  manager,
		now:      time.Now,
		sessions: make(map[string]*sessionSpans),
	}
}

// ObserveEvent records one applied progress event.
func (r *Recorder) ObserveEvent(sessionID string, ev progress.Event) {
	r.mu.Lock()
	s := r.session(sessionID)
	if s.ended {
		r.mu.Unlock()
		return
	}
	events := r.translate(sessionID, s, ev)
	r.mu.Unlock()

	for _, e := range events {
		r.manager.HandleEvent(e)
	}
}

// ObserveEnd closes every span still open when the session ends.
func (r *Recorder) ObserveEnd(sessionID string, final progress.Model, err error) {
	outcome := "complete"
	switch {
	case errors.Is(err, session.ErrCancelled):
		outcome = "cancelled"
	case err != nil:
		outcome = "interrupted"
	case final.Failed:
		outcome = "error"
	}

	r.mu.Lock()
	s := r.session(sessionID)
	if s.ended {
		delete(r.sessions, sessionID)
		r.mu.Unlock()
		return
	}
	events := r.closeAll(s, outcome, final.Message)
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	for _, e := range events {
		r.manager.HandleEvent(e)
	}
}

// session returns the span bookkeeping of sessionID. Must be called with
// r.mu held.
func (r *Recorder) session(sessionID string) *sessionSpans {
	if s, ok := r.sessions[sessionID]; ok {
		return s
	}
	s := &sessionSpans{
		traceID:   NewTraceID(),
		rootID:    NewSpanID(),
		projects:  make(map[string]string),
		resources: make(map[string]string),
		started:   make(map[string]bool),
		open:      make(map[string]bool),
	}
	r.sessions[sessionID] = s
	return s
}

// translate must be called with r.mu held.
func (r *Recorder) translate(sessionID string, s *sessionSpans, ev progress.Event) []SpanEvent {
	now := ev.Timestamp
	if now.IsZero() {
		now = r.now()
	}
	var out []SpanEvent
	start := func(typ EventType, spanID, parentID, name string, attrs map[string]string) {
		if s.started[spanID] {
			return
		}
		s.started[spanID] = true
		s.open[spanID] = true
		out = append(out, SpanEvent{
			TraceID: s.traceID, SpanID: spanID, ParentID: parentID,
			Type: typ, Name: name, Timestamp: now, Attributes: attrs,
		})
	}
	end := func(typ EventType, spanID string, attrs map[string]string) {
		if !s.open[spanID] {
			return
		}
		delete(s.open, spanID)
		out = append(out, SpanEvent{
			TraceID: s.traceID, SpanID: spanID, Type: typ, Timestamp: now, Attributes: attrs,
		})
	}

	start(EventSessionStart, s.rootID, "", sessionID, map[string]string{AttrSession: sessionID})

	projectSpan := func(name string) string {
		id, ok := s.projects[name]
		if !ok {
			id = NewSpanID()
			s.projects[name] = id
		}
		start(EventProjectStart, id, s.rootID, "project "+name, map[string]string{AttrProject: name})
		return id
	}

	switch ev.Type {
	case progress.EventProjectStart:
		if ev.Project != "" {
			projectSpan(ev.Project)
		}
	case progress.EventResourceStart, progress.EventResourceComplete, progress.EventResourceError:
		if ev.Project == "" || ev.ResourceType == "" {
			break
		}
		parent := projectSpan(ev.Project)
		key := ev.Project + "/" + ev.ResourceType
		id, ok := s.resources[key]
		if !ok {
			id = NewSpanID()
			s.resources[key] = id
		}
		start(EventResourceStart, id, parent, ev.ResourceType, map[string]string{
			AttrProject: ev.Project, AttrResourceType: ev.ResourceType,
		})
		switch ev.Type {
		case progress.EventResourceComplete:
			end(EventResourceEnd, id, map[string]string{AttrOutcome: "success", AttrCount: strconv.Itoa(ev.Count)})
		case progress.EventResourceError:
			end(EventResourceEnd, id, map[string]string{AttrOutcome: "error", AttrMessage: ev.Message})
		}
	case progress.EventProjectComplete, progress.EventProjectError:
		if ev.Project == "" {
			break
		}
		id := projectSpan(ev.Project)
		attrs := map[string]string{AttrOutcome: "success", AttrCount: strconv.Itoa(ev.Count)}
		if ev.Type == progress.EventProjectError {
			attrs = map[string]string{AttrOutcome: "error", AttrMessage: ev.Message}
		}
		end(EventProjectEnd, id, attrs)
	case progress.EventComplete, progress.EventError:
		outcome := "complete"
		if ev.Type == progress.EventError {
			outcome = "error"
		}
		out = append(out, r.closeAllAt(s, outcome, ev.Message, now)...)
	}
	return out
}

func (r *Recorder) closeAll(s *sessionSpans, outcome, message string) []SpanEvent {
	return r.closeAllAt(s, outcome, message, r.now())
}

// closeAllAt ends open resource and project spans, then the root.
func (r *Recorder) closeAllAt(s *sessionSpans, outcome, message string, at time.Time) []SpanEvent {
	var out []SpanEvent
	closeSpan := func(typ EventType, id string) {
		if !s.open[id] {
			return
		}
		delete(s.open, id)
		out = append(out, SpanEvent{
			TraceID: s.traceID, SpanID: id, Type: typ, Timestamp: at,
			Attributes: map[string]string{AttrOutcome: "unfinished"},
		})
	}
	for _, id := range s.resources {
		closeSpan(EventResourceEnd, id)
	}
	for _, id := range s.projects {
		closeSpan(EventProjectEnd, id)
	}
	if s.open[s.rootID] {
		delete(s.open, s.rootID)
		attrs := map[string]string{AttrOutcome: outcome}
		if message != "" {
			attrs[AttrMessage] = message
		}
		out = append(out, SpanEvent{
			TraceID: s.traceID, SpanID: s.rootID, Type: EventSessionEnd, Timestamp: at, Attributes: attrs,
		})
	}
	s.ended = true
	return out
}
