// Package inventory holds the resource collection served by the inventory API:
// resource records, their type-specific properties, and the report envelope.
package inventory

import (
	"encoding/json"
	"time"

	"osreport/internal/jsonutil"
)

// Type identifies the kind of an inventoried resource.
type Type string

const (
	TypeServer       Type = "server"
	TypeVolume       Type = "volume"
	TypeFloatingIP   Type = "floating_ip"
	TypeRouter       Type = "router"
	TypeNetwork      Type = "network"
	TypeLoadBalancer Type = "load_balancer"
	TypeVPNService   Type = "vpn_service"
	TypeCluster      Type = "cluster"
)

// Types returns every known resource type in display order.
func Types() []Type {
	return []Type{
		TypeServer,
		TypeVolume,
		TypeFloatingIP,
		TypeRouter,
		TypeNetwork,
		TypeLoadBalancer,
		TypeVPNService,
		TypeCluster,
	}
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Resource is one inventoried infrastructure item. Immutable once loaded.
type Resource struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Name        string     `json:"name,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	ProjectName string     `json:"project_name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Properties  Properties `json:"properties,omitempty"`
}

type wireResource struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Name        string          `json:"name"`
	ProjectID   string          `json:"project_id"`
	ProjectName string          `json:"project_name"`
	Status      string          `json:"status"`
	CreatedAt   json.RawMessage `json:"created_at"`
	UpdatedAt   json.RawMessage `json:"updated_at"`
	Properties  json.RawMessage `json:"properties"`
}

// UnmarshalJSON decodes a resource leniently: unparsable timestamps become zero
// and properties that do not fit the typed shape are kept as a raw map.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var w wireResource
	if err := jsonutil.UnmarshalWithContext(data, &w, "decode resource"); err != nil {
		return err
	}
	*r = Resource{
		ID:          w.ID,
		Type:        w.Type,
		Name:        w.Name,
		ProjectID:   w.ProjectID,
		ProjectName: w.ProjectName,
		Status:      w.Status,
		CreatedAt:   parseTime(w.CreatedAt),
		Properties:  decodeProperties(w.Type, w.Properties),
	}
	if ts := parseTime(w.UpdatedAt); !ts.IsZero() {
		r.UpdatedAt = &ts
	}
	return nil
}

// DisplayTitle returns the resource name, or a placeholder for unnamed resources.
func (r Resource) DisplayTitle() string {
	if r.Name == "" {
		return "(unnamed)"
	}
	return r.Name
}

// parseTime accepts the timestamp layouts the inventory emits. Anything else,
// including non-string JSON values, yields the zero time.
func parseTime(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Project is one tenant project known to the inventory.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DomainID    string `json:"domain_id,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Summary provides counts by resource type.
type Summary struct {
	TotalProjects      int `json:"total_projects"`
	TotalServers       int `json:"total_servers"`
	TotalVolumes       int `json:"total_volumes"`
	TotalLoadBalancers int `json:"total_load_balancers"`
	TotalFloatingIPs   int `json:"total_floating_ips"`
	TotalVPNServices   int `json:"total_vpn_services"`
	TotalClusters      int `json:"total_clusters"`
	TotalRouters       int `json:"total_routers"`
	TotalNetworks      int `json:"total_networks"`
}

// NetworkTotal sums every network-facing resource kind.
func (s Summary) NetworkTotal() int {
	return s.TotalNetworks + s.TotalFloatingIPs + s.TotalRouters + s.TotalLoadBalancers + s.TotalVPNServices
}

// Summarize counts resources by type and distinct project.
func Summarize(resources []Resource) Summary {
	var s Summary
	projects := make(map[string]bool)
	for _, r := range resources {
		if r.ProjectID != "" {
			projects[r.ProjectID] = true
		}
		switch r.Type {
		case TypeServer:
			s.TotalServers++
		case TypeVolume:
			s.TotalVolumes++
		case TypeLoadBalancer:
			s.TotalLoadBalancers++
		case TypeFloatingIP:
			s.TotalFloatingIPs++
		case TypeVPNService:
			s.TotalVPNServices++
		case TypeCluster:
			s.TotalClusters++
		case TypeRouter:
			s.TotalRouters++
		case TypeNetwork:
			s.TotalNetworks++
		}
	}
	s.TotalProjects = len(projects)
	return s
}

// Report is the payload of GET /api/resources.
type Report struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Projects    []Project  `json:"projects,omitempty"`
	Resources   []Resource `json:"resources"`
	Summary     Summary    `json:"summary"`
}

// Collection is the loaded resource set. It is replaced wholesale on reload.
type Collection struct {
	report *Report
	byID   map[string]int
}

// NewCollection indexes a report. A nil report yields an empty collection.
func NewCollection(report *Report) *Collection {
	c := &Collection{report: report, byID: make(map[string]int)}
	if report != nil {
		for i, r := range report.Resources {
			c.byID[r.ID] = i
		}
	}
	return c
}

// Loaded reports whether the collection holds a report.
func (c *Collection) Loaded() bool {
	return c != nil && c.report != nil
}

// Resources returns the resource slice; callers must not mutate it.
func (c *Collection) Resources() []Resource {
	if !c.Loaded() {
		return nil
	}
	return c.report.Resources
}

// Report returns the underlying report, or nil.
func (c *Collection) Report() *Report {
	if c == nil {
		return nil
	}
	return c.report
}

// Find returns the resource with the given id.
func (c *Collection) Find(id string) (Resource, bool) {
	if !c.Loaded() {
		return Resource{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Resource{}, false
	}
	return c.report.Resources[i], true
}
