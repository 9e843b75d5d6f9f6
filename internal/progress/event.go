package progress

import (
	"time"

	"osreport/internal/jsonutil"
)

// EventType is the discriminant of a refresh lifecycle event.
type EventType string

const (
	EventStart            EventType = "start"
	EventProgress         EventType = "progress"
	EventProjectStart     EventType = "project_start"
	EventResourceStart    EventType = "resource_start"
	EventResourceComplete EventType = "resource_complete"
	EventResourceError    EventType = "resource_error"
	EventProjectComplete  EventType = "project_complete"
	EventProjectError     EventType = "project_error"
	EventSummary          EventType = "summary"
	EventComplete         EventType = "complete"
	EventError            EventType = "error"
)

// Terminal reports whether the event ends a session.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event is one lifecycle event as streamed by the refresh operation.
type Event struct {
	Type         EventType      `json:"type"`
	Message      string         `json:"message,omitempty"`
	Project      string         `json:"project,omitempty"`
	ResourceType string         `json:"resource_type,omitempty"`
	CurrentStep  int            `json:"current_step,omitempty"`
	TotalSteps   int            `json:"total_steps,omitempty"`
	Count        int            `json:"count,omitempty"`
	Summary      map[string]int `json:"summary,omitempty"`
	Timestamp    time.Time      `json:"-"`
}

// DecodeEvent parses one JSON-encoded event.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := jsonutil.UnmarshalWithContext(data, &ev, "decode progress event"); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ChanEmitter emits events to a channel.
type ChanEmitter struct {
	Ch chan<- Event
}

// Emit sends the event to the channel (non-blocking; drops if full).
func (e *ChanEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.Ch <- ev:
	default:
		// Channel full; drop rather than stall the producer
	}
}

var resourceTypeLabels = map[string]string{
	"servers":         "Servers",
	"volumes":         "Volumes",
	"floating_ips":    "Floating IPs",
	"routers":         "Routers",
	"networks":        "Networks",
	"load_balancers":  "Load balancers",
	"vpn_connections": "VPN",
	"k8s_clusters":    "K8s clusters",
	"server":          "Servers",
	"volume":          "Volumes",
	"floating_ip":     "Floating IPs",
	"router":          "Routers",
	"network":         "Networks",
	"load_balancer":   "Load balancers",
	"vpn_service":     "VPN services",
	"cluster":         "K8s clusters",
}

// ResourceTypeLabel returns the display label of a stream resource-type key.
func ResourceTypeLabel(key string) string {
	if label, ok := resourceTypeLabels[key]; ok {
		return label
	}
	return key
}
