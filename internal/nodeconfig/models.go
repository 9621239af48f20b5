package nodeconfig

import (
	"fmt"
	"strings"

	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// Mode names accepted in Fields.Mode.
const (
	ModeStation     = "station"
	ModeAccessPoint = "access-point"
)

// DefaultAccessPointSSID is uploaded when access point mode is selected with
// an empty SSID.
const DefaultAccessPointSSID = "ESP-DMX"

// Fields are the user-editable settings of a node, in the form they are
// typed or stored in a YAML file. Addresses are text and are converted when
// the upload packet is built.
type Fields struct {
	Mode           string         `yaml:"mode" json:"mode"`
	Flags          protocol.Flags `yaml:",inline" json:"flags"`
	SSID           string         `yaml:"ssid" json:"ssid"`
	Password       string         `yaml:"password,omitempty" json:"-"`
	NodeName       *string        `yaml:"node_name" json:"node_name"`
	APAddress      string         `yaml:"ap_address" json:"ap_address"`
	APGateway      string         `yaml:"ap_gateway" json:"ap_gateway"`
	APSubnet       string         `yaml:"ap_subnet" json:"ap_subnet"`
	StationAddress string         `yaml:"station_address" json:"station_address"`
	StationGateway string         `yaml:"station_gateway" json:"station_gateway"`
	StationSubnet  string         `yaml:"station_subnet" json:"station_subnet"`
	MulticastGroup string         `yaml:"multicast_group" json:"multicast_group"`
	InputAddress   string         `yaml:"input_address" json:"input_address"`
	SACNUniverse   int            `yaml:"sacn_universe" json:"sacn_universe"`
	ArtNetNet      int            `yaml:"artnet_net" json:"artnet_net"`
	ArtNetSubnet   int            `yaml:"artnet_subnet" json:"artnet_subnet"`
	ArtNetUniverse int            `yaml:"artnet_universe" json:"artnet_universe"`
	DeviceAddress  int            `yaml:"device_address" json:"device_address"`
}

// FieldsFromPacket loads a node's reported configuration into editable
// fields.
func FieldsFromPacket(p *protocol.ConfigPacket) Fields {
	name := p.NodeName
	mode := ModeAccessPoint
	if p.Mode == protocol.ModeStation {
		mode = ModeStation
	}
	return Fields{
		Mode:           mode,
		Flags:          p.Flags,
		SSID:           p.SSID,
		Password:       p.Password,
		NodeName:       &name,
		APAddress:      p.APAddress.String(),
		APGateway:      p.APGateway.String(),
		APSubnet:       p.APSubnet.String(),
		StationAddress: p.StationAddress.String(),
		StationGateway: p.StationGateway.String(),
		StationSubnet:  p.StationSubnet.String(),
		MulticastGroup: p.MulticastGroup.String(),
		InputAddress:   p.InputAddress.String(),
		SACNUniverse:   int(p.SACNUniverse),
		ArtNetNet:      int(p.ArtNetNet),
		ArtNetSubnet:   int(p.ArtNetSubnet),
		ArtNetUniverse: int(p.ArtNetUniverse),
		DeviceAddress:  int(p.DeviceAddress),
	}
}

// DefaultFields returns the factory configuration as fields.
func DefaultFields() Fields {
	return FieldsFromPacket(protocol.DefaultConfig())
}

// ParseMode converts a mode name into a protocol.WiFiMode.
func ParseMode(s string) (protocol.WiFiMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "station", "sta", "client":
		return protocol.ModeStation, nil
	case "access-point", "accesspoint", "ap":
		return protocol.ModeAccessPoint, nil
	default:
		return 0, NewValidationError("mode", fmt.Sprintf("mode must be 'station' or 'access-point', got %q", s))
	}
}

// StationMode reports whether the fields select station mode.
func (f *Fields) StationMode() bool {
	mode, err := ParseMode(f.Mode)
	return err == nil && mode == protocol.ModeStation
}

// Packet validates the fields and converts them into a configuration packet.
// Validation errors are reported before any address is converted, and no
// packet is returned unless every field is usable.
func (f *Fields) Packet() (*protocol.ConfigPacket, error) {
	if errs := ValidateFields(f); len(errs) > 0 {
		if len(errs) == 1 {
			return nil, errs[0]
		}
		combined := NewValidationError("", strings.TrimSpace(FormatValidationErrors(errs)))
		if first, ok := errs[0].(*NodeError); ok {
			combined.Field = first.Field
		}
		return nil, combined
	}

	mode, _ := ParseMode(f.Mode)
	ssid := f.SSID
	if ssid == "" && mode == protocol.ModeAccessPoint {
		ssid = DefaultAccessPointSSID
	}

	p := &protocol.ConfigPacket{
		Opcode:         protocol.OpcodeUpload,
		Version:        protocol.ConfigVersion,
		Mode:           mode,
		Flags:          f.Flags,
		SSID:           ssid,
		Password:       f.Password,
		NodeName:       *f.NodeName,
		SACNUniverse:   uint16(f.SACNUniverse),
		ArtNetNet:      byte(f.ArtNetNet),
		ArtNetSubnet:   byte(f.ArtNetSubnet),
		ArtNetUniverse: byte(f.ArtNetUniverse),
		DeviceAddress:  uint16(f.DeviceAddress),
	}

	addrs := []struct {
		field string
		text  string
		dst   *protocol.IPv4
	}{
		{"ap_address", f.APAddress, &p.APAddress},
		{"ap_gateway", f.APGateway, &p.APGateway},
		{"ap_subnet", f.APSubnet, &p.APSubnet},
		{"station_address", f.StationAddress, &p.StationAddress},
		{"station_gateway", f.StationGateway, &p.StationGateway},
		{"station_subnet", f.StationSubnet, &p.StationSubnet},
		{"multicast_group", f.MulticastGroup, &p.MulticastGroup},
		{"input_address", f.InputAddress, &p.InputAddress},
	}
	for _, a := range addrs {
		ip, err := protocol.ParseAddress(a.text)
		if err != nil {
			return nil, NewAddressError(a.field, err)
		}
		*a.dst = ip
	}

	return p, nil
}
