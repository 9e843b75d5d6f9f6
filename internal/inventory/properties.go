package inventory

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"osreport/internal/jsonutil"
)

// Properties is the type-specific part of a resource.
type Properties interface {
	propertiesOf() Type
}

// ServerProps describes a compute instance.
type ServerProps struct {
	FlavorName string            `json:"flavor_name,omitempty"`
	FlavorID   string            `json:"flavor_id,omitempty"`
	Networks   map[string]string `json:"networks,omitempty"`
}

// VolumeAttachment is one server a volume is attached to.
type VolumeAttachment struct {
	ServerID   string `json:"server_id"`
	ServerName string `json:"server_name,omitempty"`
	Device     string `json:"device,omitempty"`
}

// VolumeProps describes a block storage volume.
type VolumeProps struct {
	Size        int                `json:"size"`
	VolumeType  string             `json:"volume_type,omitempty"`
	Bootable    FlexBool           `json:"bootable"`
	AttachedTo  string             `json:"attached_to,omitempty"`
	Attachments []VolumeAttachment `json:"attachments,omitempty"`
}

// FloatingIPProps describes a floating IP.
type FloatingIPProps struct {
	FloatingIP           string `json:"floating_ip"`
	FixedIP              string `json:"fixed_ip,omitempty"`
	PortID               string `json:"port_id,omitempty"`
	FloatingNetworkID    string `json:"floating_network_id,omitempty"`
	AttachedResourceName string `json:"attached_resource_name,omitempty"`
}

// LoadBalancerProps describes a load balancer.
type LoadBalancerProps struct {
	VipAddress         string `json:"vip_address,omitempty"`
	FloatingIP         string `json:"floating_ip,omitempty"`
	ProvisioningStatus string `json:"provisioning_status,omitempty"`
	OperatingStatus    string `json:"operating_status,omitempty"`
}

// Subnet is one subnet of a network.
type Subnet struct {
	ID   string `json:"id,omitempty"`
	CIDR string `json:"cidr,omitempty"`
}

// UnmarshalJSON accepts either a bare subnet id or an object.
func (s *Subnet) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*s = Subnet{ID: id}
		return nil
	}
	type plain Subnet
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Subnet(p)
	return nil
}

// Label is the CIDR when known, otherwise the id.
func (s Subnet) Label() string {
	if s.CIDR != "" {
		return s.CIDR
	}
	return s.ID
}

// NetworkProps describes a tenant network.
type NetworkProps struct {
	Shared      bool     `json:"shared"`
	External    bool     `json:"external"`
	NetworkType string   `json:"network_type,omitempty"`
	Subnets     []Subnet `json:"subnets,omitempty"`
}

// VPNServiceProps describes a VPN service and its peer.
type VPNServiceProps struct {
	Description string `json:"description,omitempty"`
	RouterID    string `json:"router_id,omitempty"`
	SubnetID    string `json:"subnet_id,omitempty"`
	PeerID      string `json:"peer_id,omitempty"`
	PeerAddress string `json:"peer_address,omitempty"`
	AuthMode    string `json:"auth_mode,omitempty"`
	IKEVersion  string `json:"ike_version,omitempty"`
	MTU         int    `json:"mtu,omitempty"`
}

// RawProps holds properties of types without a typed shape.
type RawProps map[string]any

func (ServerProps) propertiesOf() Type       { return TypeServer }
func (VolumeProps) propertiesOf() Type       { return TypeVolume }
func (FloatingIPProps) propertiesOf() Type   { return TypeFloatingIP }
func (LoadBalancerProps) propertiesOf() Type { return TypeLoadBalancer }
func (NetworkProps) propertiesOf() Type      { return TypeNetwork }
func (VPNServiceProps) propertiesOf() Type   { return TypeVPNService }
func (RawProps) propertiesOf() Type          { return "" }

// FlexBool decodes JSON booleans as well as "true"/"false" strings.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = FlexBool(v)
	return nil
}

type propertyDecoder func(data []byte) (Properties, error)

func typed[T Properties]() propertyDecoder {
	return func(data []byte) (Properties, error) {
		var v T
		if err := jsonutil.UnmarshalWithContext(data, &v, "decode properties"); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// propertyDecoders selects the property shape by resource type. Adding a type
// with typed properties is a single entry here.
var propertyDecoders = map[Type]propertyDecoder{
	TypeServer:       typed[ServerProps](),
	TypeVolume:       typed[VolumeProps](),
	TypeFloatingIP:   typed[FloatingIPProps](),
	TypeLoadBalancer: typed[LoadBalancerProps](),
	TypeNetwork:      typed[NetworkProps](),
	TypeVPNService:   typed[VPNServiceProps](),
}

func decodeProperties(t Type, data json.RawMessage) Properties {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if dec, ok := propertyDecoders[t]; ok {
		if p, err := dec(data); err == nil {
			return p
		}
	}
	var raw RawProps
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}
