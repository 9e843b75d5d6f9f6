package inventory

import (
	"fmt"
	"sort"
	"strings"
)

type subtitleFunc func(r Resource) string

// subtitles is the per-type projection used for the compact list line.
var subtitles = map[Type]subtitleFunc{
	TypeServer:       serverSubtitle,
	TypeVolume:       volumeSubtitle,
	TypeFloatingIP:   floatingIPSubtitle,
	TypeLoadBalancer: loadBalancerSubtitle,
	TypeNetwork:      networkSubtitle,
	TypeVPNService:   vpnSubtitle,
}

// Subtitle returns the one-line property summary shown under a resource name.
// Types without a projection fall back to the resource id.
func Subtitle(r Resource) string {
	if fn, ok := subtitles[r.Type]; ok {
		return fn(r)
	}
	return r.ID
}

func serverSubtitle(r Resource) string {
	props, _ := r.Properties.(ServerProps)
	flavor := props.FlavorName
	if flavor == "" {
		flavor = "Unknown Flavor"
	}
	ips := ""
	if addrs := sortedValues(props.Networks); len(addrs) > 0 {
		ips = ", " + strings.Join(addrs, ", ")
	}
	return "Flavor: " + flavor + ", IPs: " + ips
}

func volumeSubtitle(r Resource) string {
	props, _ := r.Properties.(VolumeProps)
	volType := props.VolumeType
	if volType == "" {
		volType = "?"
	}
	boot := "no"
	if props.Bootable {
		boot = "yes"
	}
	size := "?"
	if props.Size > 0 {
		size = fmt.Sprintf("%d", props.Size)
	}
	if target := props.AttachmentTarget(); target != "" {
		return fmt.Sprintf("Type: %s, Boot: %s, Attached To: %s, Size: %s GB", volType, boot, target, size)
	}
	return fmt.Sprintf("Type: %s, Boot: %s, Size: %s GB", volType, boot, size)
}

// AttachmentTarget names what the volume is attached to: attached_to first,
// then the first attachment's server name, then its server id.
func (p VolumeProps) AttachmentTarget() string {
	if p.AttachedTo != "" {
		return p.AttachedTo
	}
	for _, a := range p.Attachments {
		if a.ServerName != "" {
			return a.ServerName
		}
		if a.ServerID != "" {
			return a.ServerID
		}
	}
	return ""
}

func floatingIPSubtitle(r Resource) string {
	props, _ := r.Properties.(FloatingIPProps)
	if props.AttachedResourceName != "" {
		return "Attached to: " + props.AttachedResourceName
	}
	return "Not attached"
}

func loadBalancerSubtitle(r Resource) string {
	props, _ := r.Properties.(LoadBalancerProps)
	var ips []string
	if props.VipAddress != "" {
		ips = append(ips, props.VipAddress)
	}
	if props.FloatingIP != "" && props.FloatingIP != props.VipAddress {
		ips = append(ips, props.FloatingIP)
	}
	if len(ips) == 0 {
		return "No IP"
	}
	return strings.Join(ips, ", ")
}

func networkSubtitle(r Resource) string {
	props, _ := r.Properties.(NetworkProps)
	external := "internal"
	if props.External {
		external = "external"
	}
	shared := "private"
	if props.Shared {
		shared = "shared"
	}
	flags := external + "/" + shared
	if len(props.Subnets) == 0 {
		return "No subnets, " + flags
	}
	shown := props.Subnets
	if len(shown) > 2 {
		shown = shown[:2]
	}
	labels := make([]string, len(shown))
	for i, s := range shown {
		labels[i] = s.Label()
	}
	info := strings.Join(labels, ", ")
	if extra := len(props.Subnets) - 2; extra > 0 {
		info += fmt.Sprintf(" (+%d)", extra)
	}
	return "Subnets: " + info + ", " + flags
}

func vpnSubtitle(r Resource) string {
	props, _ := r.Properties.(VPNServiceProps)
	if props.PeerAddress == "" {
		return "No peer address"
	}
	return props.PeerAddress
}

// sortedValues returns map values ordered by key so output is deterministic.
func sortedValues(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
