package trace

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Span is one node of a session trace. Duration is zero while open.
type Span struct {
	TraceID    string
	SpanID     string
	ParentID   string
	Name       string
	StartTime  time.Time
	Duration   time.Duration
	Attributes map[string]string
	Children   []*Span
}

// Trace is the span tree of one refresh session.
type Trace struct {
	ID        string
	SessionID string
	StartTime time.Time
	EndTime   time.Time
	RootSpan  *Span
	Status    string // "running" or "completed"
}

// Exporter ships a completed trace somewhere.
type Exporter interface {
	ExportTrace(ctx context.Context, t *Trace) error
	Shutdown(ctx context.Context) error
}

// Manager stores the span trees of recent sessions.
type Manager struct {
	mu            sync.RWMutex
	traces        map[string]*Trace     // traceID -> Trace
	pendingSpans  map[string]*SpanEvent // spanID -> start event (waiting for end)
	orphanedSpans map[string][]*Span    // parentID -> spans waiting for parent
	recentIDs     []string              // oldest first
	maxTraces     int
	onChange      func()
	exporter      Exporter
	logger        *slog.Logger
}

// NewManager creates a manager keeping at most maxTraces traces (default 10).
// exporter may be nil.
func NewManager(maxTraces int, exporter Exporter, logger *slog.Logger) *Manager {
	if maxTraces <= 0 {
		maxTraces = 10
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		traces:        make(map[string]*Trace),
		pendingSpans:  make(map[string]*SpanEvent),
		orphanedSpans: make(map[string][]*Span),
		recentIDs:     make([]string, 0, maxTraces),
		maxTraces:     maxTraces,
		exporter:      exporter,
		logger:        logger,
	}
}

// HandleEvent folds one span event into its trace and returns that trace.
// Start events create the span immediately so open spans are visible; end
// events fill in the duration.
func (m *Manager) HandleEvent(event SpanEvent) *Trace {
	m.mu.Lock()
	var (
		trace  *Trace
		export bool
	)
	switch {
	case event.Type.isStart():
		trace = m.handleStart(event)
	case event.Type.isEnd():
		trace, export = m.handleEnd(event)
	}
	onChange := m.onChange
	m.mu.Unlock()

	if export && m.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.exporter.ExportTrace(ctx, trace); err != nil {
			m.logger.Warn("trace export failed", "trace_id", trace.ID, "error", err)
		}
		cancel()
	}
	if trace != nil && onChange != nil {
		onChange()
	}
	return trace
}

// handleStart must be called with m.mu held.
func (m *Manager) handleStart(event SpanEvent) *Trace {
	m.pendingSpans[event.SpanID] = &event

	span := &Span{
		TraceID:    event.TraceID,
		SpanID:     event.SpanID,
		ParentID:   event.ParentID,
		Name:       event.Name,
		StartTime:  event.Timestamp,
		Attributes: maps.Clone(event.Attributes),
	}
	if span.Attributes == nil {
		span.Attributes = make(map[string]string)
	}

	trace, ok := m.traces[event.TraceID]
	if !ok {
		trace = &Trace{ID: event.TraceID, StartTime: event.Timestamp, Status: "running"}
		m.traces[event.TraceID] = trace
		m.addToRecentIDs(event.TraceID)
	}

	if event.Type == EventSessionStart {
		trace.StartTime = event.Timestamp
		trace.SessionID = event.Name
		trace.RootSpan = span
		m.attachOrphanedChildren(span)
		return trace
	}

	var parent *Span
	if trace.RootSpan != nil {
		parent = findSpanByID(trace.RootSpan, event.ParentID)
	}
	if parent != nil {
		parent.Children = append(parent.Children, span)
	} else {
		m.orphanedSpans[event.ParentID] = append(m.orphanedSpans[event.ParentID], span)
	}
	m.attachOrphanedChildren(span)
	return trace
}

// handleEnd must be called with m.mu held. It reports whether the trace is
// now complete and should be exported.
func (m *Manager) handleEnd(event SpanEvent) (*Trace, bool) {
	start, ok := m.pendingSpans[event.SpanID]
	if !ok {
		return nil, false
	}
	delete(m.pendingSpans, event.SpanID)

	trace := m.traces[event.TraceID]
	if trace == nil {
		return nil, false
	}

	span := findSpanByID(trace.RootSpan, event.SpanID)
	if span == nil {
		for _, orphans := range m.orphanedSpans {
			for _, o := range orphans {
				if o.SpanID == event.SpanID {
					span = o
				}
			}
		}
	}
	if span != nil {
		span.Duration = event.Timestamp.Sub(start.Timestamp)
		maps.Copy(span.Attributes, event.Attributes)
	}

	if event.Type != EventSessionEnd {
		return trace, false
	}
	trace.EndTime = event.Timestamp
	trace.Status = "completed"
	return trace, true
}

func findSpanByID(root *Span, spanID string) *Span {
	if root == nil {
		return nil
	}
	if root.SpanID == spanID {
		return root
	}
	for _, child := range root.Children {
		if found := findSpanByID(child, spanID); found != nil {
			return found
		}
	}
	return nil
}

// attachOrphanedChildren adopts spans that arrived before parent, recursively.
func (m *Manager) attachOrphanedChildren(parent *Span) {
	orphans, ok := m.orphanedSpans[parent.SpanID]
	if !ok {
		return
	}
	parent.Children = append(parent.Children, orphans...)
	delete(m.orphanedSpans, parent.SpanID)
	for _, child := range orphans {
		m.attachOrphanedChildren(child)
	}
}

// addToRecentIDs records traceID and evicts the oldest trace past maxTraces.
func (m *Manager) addToRecentIDs(traceID string) {
	m.recentIDs = append(m.recentIDs, traceID)
	if len(m.recentIDs) > m.maxTraces {
		oldest := m.recentIDs[0]
		m.recentIDs = m.recentIDs[1:]
		delete(m.traces, oldest)
	}
}

// GetTrace returns a trace by ID.
func (m *Manager) GetTrace(id string) *Trace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.traces[id]
}

// GetRecentTraces returns recent traces, newest first.
func (m *Manager) GetRecentTraces() []*Trace {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Trace, 0, len(m.recentIDs))
	for i := len(m.recentIDs) - 1; i >= 0; i-- {
		if trace, ok := m.traces[m.recentIDs[i]]; ok {
			result = append(result, trace)
		}
	}
	return result
}

// SetOnChange sets the callback run after every state change.
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Shutdown flushes pending exports and closes the exporter.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.exporter == nil {
		return nil
	}
	return m.exporter.Shutdown(ctx)
}
