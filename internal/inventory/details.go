package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"osreport/internal/jsonutil"
)

var typeDisplayNames = map[Type]string{
	TypeServer:       "Virtual machine",
	TypeVolume:       "Volume",
	TypeFloatingIP:   "Floating IP",
	TypeRouter:       "Router",
	TypeNetwork:      "Network",
	TypeLoadBalancer: "Load balancer",
	TypeVPNService:   "VPN service",
	TypeCluster:      "Kubernetes cluster",
}

// DisplayName returns the human-readable name of a resource type.
func DisplayName(t Type) string {
	if name, ok := typeDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// StatusClass buckets a raw status into error, building, shutoff or active.
// An available volume is reported as error because nothing uses it.
func StatusClass(status string, t Type) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "error") || strings.Contains(s, "failed"):
		return "error"
	case strings.Contains(s, "building") || strings.Contains(s, "pending"):
		return "building"
	case strings.Contains(s, "shutoff") || strings.Contains(s, "down"):
		return "shutoff"
	case strings.Contains(s, "available") && t == TypeVolume:
		return "error"
	default:
		return "active"
	}
}

// Details renders the full resource as a markdown document.
func Details(r Resource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", r.DisplayTitle(), DisplayName(r.Type))
	b.WriteString("## General\n\n")
	fmt.Fprintf(&b, "- **ID:** `%s`\n", r.ID)
	fmt.Fprintf(&b, "- **Name:** %s\n", orDefault(r.Name, "not set"))
	fmt.Fprintf(&b, "- **Type:** %s\n", DisplayName(r.Type))
	fmt.Fprintf(&b, "- **Project:** %s\n", orDefault(r.ProjectName, "unknown"))
	fmt.Fprintf(&b, "- **Status:** %s\n", r.Status)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", r.CreatedAt.Local().Format(time.DateTime))
	}
	if r.UpdatedAt != nil {
		fmt.Fprintf(&b, "- **Updated:** %s\n", r.UpdatedAt.Local().Format(time.DateTime))
	}

	props := propertyLines(r.Properties)
	if len(props) > 0 {
		b.WriteString("\n## Properties\n\n")
		for _, line := range props {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func propertyLines(p Properties) []string {
	var lines []string
	add := func(label, value string) {
		lines = append(lines, fmt.Sprintf("- **%s:** %s", label, value))
	}
	addIf := func(label, value string) {
		if value != "" {
			add(label, value)
		}
	}

	switch props := p.(type) {
	case ServerProps:
		add("Flavor", orDefault(props.FlavorName, "Unknown"))
		addIf("Flavor ID", props.FlavorID)
		if len(props.Networks) > 0 {
			lines = append(lines, "- **Networks:**")
			names := make([]string, 0, len(props.Networks))
			for name := range props.Networks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				lines = append(lines, fmt.Sprintf("  - %s: %s", name, props.Networks[name]))
			}
		}
	case VolumeProps:
		add("Size", fmt.Sprintf("%d GB", props.Size))
		add("Type", orDefault(props.VolumeType, "unknown"))
		if props.Bootable {
			add("Bootable", "yes")
		} else {
			add("Bootable", "no")
		}
		addIf("Attached to", props.AttachedTo)
		if len(props.Attachments) > 0 {
			lines = append(lines, "- **Attachments:**")
			for _, a := range props.Attachments {
				line := "  - Server: " + orDefault(a.ServerName, a.ServerID)
				if a.Device != "" {
					line += " (" + a.Device + ")"
				}
				lines = append(lines, line)
			}
		}
	case FloatingIPProps:
		add("IP address", props.FloatingIP)
		add("Network", props.FloatingNetworkID)
		addIf("Fixed IP", props.FixedIP)
		addIf("Attached resource", props.AttachedResourceName)
	case VPNServiceProps:
		add("Description", orDefault(props.Description, "not set"))
		add("Router ID", props.RouterID)
		addIf("Subnet ID", props.SubnetID)
		addIf("Peer ID", props.PeerID)
		addIf("Peer address", props.PeerAddress)
		addIf("Auth mode", props.AuthMode)
		addIf("IKE version", props.IKEVersion)
		if props.MTU > 0 {
			add("MTU", fmt.Sprintf("%d", props.MTU))
		}
	case LoadBalancerProps:
		add("VIP address", props.VipAddress)
		addIf("Floating IP", props.FloatingIP)
		add("Provisioning status", props.ProvisioningStatus)
		add("Operating status", props.OperatingStatus)
	case NetworkProps:
		add("Shared", fmt.Sprintf("%t", props.Shared))
		add("External", fmt.Sprintf("%t", props.External))
		addIf("Network type", props.NetworkType)
		for _, s := range props.Subnets {
			lines = append(lines, "  - "+s.Label())
		}
	case RawProps:
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, jsonutil.ToString(props[k]))
		}
	}
	return lines
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
