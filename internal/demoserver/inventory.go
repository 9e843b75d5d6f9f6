package demoserver

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"osreport/internal/inventory"
)

var projectNames = []string{"infra", "web-frontend", "data-platform", "ml-research", "billing", "qa", "ops", "sandbox"}

// streamKeys are the resource-type keys used in progress events, in
// collection order.
var streamKeys = []struct {
	key string
	typ inventory.Type
}{
	{"servers", inventory.TypeServer},
	{"volumes", inventory.TypeVolume},
	{"floating_ips", inventory.TypeFloatingIP},
	{"routers", inventory.TypeRouter},
	{"networks", inventory.TypeNetwork},
	{"load_balancers", inventory.TypeLoadBalancer},
	{"vpn_connections", inventory.TypeVPNService},
	{"k8s_clusters", inventory.TypeCluster},
}

func stableID(parts ...string) string {
	name := ""
	for _, p := range parts {
		name += "/" + p
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Generate builds a deterministic inventory of n projects.
func Generate(n int, now time.Time) *inventory.Report {
	if n <= 0 {
		n = 1
	}
	report := &inventory.Report{GeneratedAt: now.UTC()}
	for i := range n {
		name := projectNames[i%len(projectNames)]
		if i >= len(projectNames) {
			name = fmt.Sprintf("%s-%d", name, i/len(projectNames)+1)
		}
		project := inventory.Project{
			ID:          stableID("project", name),
			Name:        name,
			Description: "Demo project " + name,
			DomainID:    "default",
			Enabled:     true,
		}
		report.Projects = append(report.Projects, project)
		report.Resources = append(report.Resources, projectResources(i, project, now)...)
	}
	report.Summary = inventory.Summarize(report.Resources)
	return report
}

func projectResources(i int, p inventory.Project, now time.Time) []inventory.Resource {
	created := now.Add(-time.Duration(24*(i+1)) * time.Hour).UTC()
	res := func(t inventory.Type, name, status string, props inventory.Properties) inventory.Resource {
		return inventory.Resource{
			ID:          stableID(p.Name, string(t), name),
			Type:        t,
			Name:        name,
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Status:      status,
			CreatedAt:   created,
			Properties:  props,
		}
	}

	netName := p.Name + "-net"
	var out []inventory.Resource
	for s := range 2 + i%3 {
		status := "ACTIVE"
		if s == 2 {
			status = "SHUTOFF"
		}
		name := fmt.Sprintf("%s-vm-%d", p.Name, s+1)
		out = append(out, res(inventory.TypeServer, name, status, inventory.ServerProps{
			FlavorName: []string{"m1.small", "m1.medium", "m1.large"}[s%3],
			Networks: map[string]string{
				netName:  fmt.Sprintf("10.%d.0.%d", i, 10+s),
				"public": fmt.Sprintf("203.0.113.%d", 10*i+s+1),
			},
		}))
		vol := inventory.VolumeProps{Size: 20 * (s + 1), VolumeType: "ssd", Bootable: s == 0, AttachedTo: name}
		out = append(out, res(inventory.TypeVolume, name+"-disk", "in-use", vol))
	}
	out = append(out,
		res(inventory.TypeVolume, p.Name+"-scratch", "available", inventory.VolumeProps{Size: 100, VolumeType: "hdd"}),
		res(inventory.TypeFloatingIP, "", "ACTIVE", inventory.FloatingIPProps{
			FloatingIP:           fmt.Sprintf("203.0.113.%d", 10*i+1),
			FixedIP:              fmt.Sprintf("10.%d.0.10", i),
			AttachedResourceName: p.Name + "-vm-1",
		}),
		res(inventory.TypeRouter, p.Name+"-router", "ACTIVE", nil),
		res(inventory.TypeNetwork, netName, "ACTIVE", inventory.NetworkProps{
			NetworkType: "vxlan",
			Subnets:     []inventory.Subnet{{ID: stableID(p.Name, "subnet"), CIDR: fmt.Sprintf("10.%d.0.0/24", i)}},
		}),
	)
	if i%2 == 0 {
		out = append(out, res(inventory.TypeLoadBalancer, p.Name+"-lb", "ACTIVE", inventory.LoadBalancerProps{
			VipAddress:         fmt.Sprintf("10.%d.0.100", i),
			ProvisioningStatus: "ACTIVE",
			OperatingStatus:    "ONLINE",
		}))
	}
	if i%3 == 0 {
		out = append(out, res(inventory.TypeVPNService, p.Name+"-vpn", "ACTIVE", inventory.VPNServiceProps{
			PeerAddress: fmt.Sprintf("198.51.100.%d", i+1),
			AuthMode:    "psk",
			IKEVersion:  "v2",
			MTU:         1500,
		}))
	}
	if i%4 == 1 {
		out = append(out, res(inventory.TypeCluster, p.Name+"-k8s", "CREATE_COMPLETE", inventory.RawProps{
			"node_count":   float64(3),
			"coe_version":  "v1.29.4",
			"master_count": float64(1),
		}))
	}
	return out
}

// countByProjectType counts the resources of one project and type.
func countByProjectType(report *inventory.Report, project string, t inventory.Type) int {
	n := 0
	for _, r := range report.Resources {
		if r.ProjectName == project && r.Type == t {
			n++
		}
	}
	return n
}

// typeSummary counts resources by type key, the shape of the complete event summary.
func typeSummary(resources []inventory.Resource) map[string]int {
	summary := make(map[string]int)
	for _, r := range resources {
		summary[string(r.Type)]++
	}
	return summary
}
