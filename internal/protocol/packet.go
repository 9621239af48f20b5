package protocol

import (
	"fmt"
	"net/netip"
	"strings"
)

// Network ports used by ESP-DMX nodes.
const (
	PortArtNet = 0x1936 // 6454
	PortSACN   = 0x15C0 // 5568
)

// Packet sizes.
const (
	PacketSize        = 232 // full configuration packet
	MinimalPacketSize = 9   // identifier, NUL, opcode
	CommandPacketSize = 107 // Art-Net ArtAddress
)

// Identifier is the ASCII tag at the start of every configuration packet.
// It is followed by a single NUL byte.
const Identifier = "ESP-DMX"

// ConfigVersion is the configuration struct version written into uploads.
// Nodes treat versions above InvalidConfigVersion as uninitialized storage.
const (
	ConfigVersion        = 1
	InvalidConfigVersion = 27
)

// Field widths, including the terminating NUL.
const (
	SSIDFieldSize     = 64
	PasswordFieldSize = 64
	NodeNameFieldSize = 32
)

// Byte offsets inside a configuration packet.
const (
	offsetOpcode         = 8
	offsetVersion        = 9
	offsetMode           = 10
	offsetFlags          = 11
	offsetSSID           = 12
	offsetPassword       = 76
	offsetAPAddress      = 140
	offsetAPGateway      = 144
	offsetAPSubnet       = 148
	offsetStationAddress = 152
	offsetStationGateway = 156
	offsetStationSubnet  = 160
	offsetMulticast      = 164
	offsetSACNUniverseLo = 168
	offsetArtNetNet      = 169
	offsetArtNetSubUni   = 170
	offsetSACNUniverseHi = 171
	offsetNodeName       = 172
	offsetInputAddress   = 204
	offsetDeviceAddress  = 208
	offsetSceneSlots     = 210
	offsetReserved       = 212
	reservedSize         = PacketSize - offsetReserved
)

// Opcode identifies the purpose of a configuration packet.
type Opcode byte

const (
	OpcodeData   Opcode = 0
	OpcodeQuery  Opcode = '?'
	OpcodeUpload Opcode = '!'
	OpcodeReset  Opcode = '^'
)

func (o Opcode) String() string {
	switch o {
	case OpcodeData:
		return "data"
	case OpcodeQuery:
		return "query"
	case OpcodeUpload:
		return "upload"
	case OpcodeReset:
		return "reset"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(o))
	}
}

// WiFiMode selects how a node joins the network.
type WiFiMode byte

const (
	ModeStation     WiFiMode = 0
	ModeAccessPoint WiFiMode = 1
)

func (m WiFiMode) String() string {
	switch m {
	case ModeStation:
		return "station"
	case ModeAccessPoint:
		return "access-point"
	default:
		return fmt.Sprintf("unknown(%d)", byte(m))
	}
}

// Protocol flag bits (byte 11).
const (
	flagSACN      = 1 << 0
	flagStatic    = 1 << 1
	flagMulticast = 1 << 2
	flagInput     = 1 << 3
	flagRDM       = 1 << 4
)

// Flags are the protocol options carried in byte 11. The zero value means
// Art-Net, DHCP, unicast, output from network, RDM off.
type Flags struct {
	SACN      bool `yaml:"sacn" json:"sacn"`
	Static    bool `yaml:"static" json:"static"`
	Multicast bool `yaml:"multicast" json:"multicast"`
	Input     bool `yaml:"input" json:"input"`
	RDM       bool `yaml:"rdm" json:"rdm"`
}

// FlagsFromByte unpacks a flags byte. Undefined bits are ignored.
func FlagsFromByte(b byte) Flags {
	return Flags{
		SACN:      b&flagSACN != 0,
		Static:    b&flagStatic != 0,
		Multicast: b&flagMulticast != 0,
		Input:     b&flagInput != 0,
		RDM:       b&flagRDM != 0,
	}
}

// Byte packs the flags into their wire representation.
func (f Flags) Byte() byte {
	var b byte
	if f.SACN {
		b |= flagSACN
	}
	if f.Static {
		b |= flagStatic
	}
	if f.Multicast {
		b |= flagMulticast
	}
	if f.Input {
		b |= flagInput
	}
	if f.RDM {
		b |= flagRDM
	}
	return b
}

func (f Flags) String() string {
	parts := []string{"Art-Net", "DHCP", "unicast", "output"}
	if f.SACN {
		parts[0] = "sACN"
	}
	if f.Static {
		parts[1] = "static"
	}
	if f.Multicast {
		parts[2] = "multicast"
	}
	if f.Input {
		parts[3] = "input"
	}
	if f.RDM {
		parts = append(parts, "RDM")
	}
	return strings.Join(parts, ", ")
}

// IPv4 is a four byte address in network order.
type IPv4 [4]byte

// Addr converts the address to a netip.Addr.
func (a IPv4) Addr() netip.Addr {
	return netip.AddrFrom4(a)
}

func (a IPv4) String() string {
	return a.Addr().String()
}

// IsZero reports whether the address is 0.0.0.0.
func (a IPv4) IsZero() bool {
	return a == IPv4{}
}

// MarshalText implements encoding.TextMarshaler.
func (a IPv4) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Only dotted-quad
// literals are accepted.
func (a *IPv4) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ConfigPacket is the decoded form of a 232 byte configuration packet.
//
// The layout is fixed by node firmware:
//
//	[0-7]     "ESP-DMX\0"
//	[8]       opcode
//	[9]       config version
//	[10]      wifi mode
//	[11]      protocol flags
//	[12-75]   SSID (NUL terminated)
//	[76-139]  password (NUL terminated)
//	[140-151] AP address, gateway, subnet
//	[152-163] station address, gateway, subnet
//	[164-167] multicast group
//	[168]     sACN universe low byte
//	[169]     Art-Net net
//	[170]     Art-Net subnet (high nibble) and universe (low nibble)
//	[171]     sACN universe high byte
//	[172-203] node name (NUL terminated)
//	[204-207] input mode target address
//	[208-209] DMX device address, LSB first
//	[210-211] scene slot count, LSB first
//	[212-231] reserved (RDM UID)
type ConfigPacket struct {
	Opcode   Opcode
	Version  byte
	Mode     WiFiMode
	Flags    Flags
	SSID     string
	Password string

	APAddress IPv4
	APGateway IPv4
	APSubnet  IPv4

	StationAddress IPv4
	StationGateway IPv4
	StationSubnet  IPv4

	MulticastGroup IPv4

	SACNUniverse   uint16
	ArtNetNet      byte // 0-127 is valid; other values are carried as received
	ArtNetSubnet   byte // 0-15
	ArtNetUniverse byte // 0-15

	NodeName      string
	InputAddress  IPv4
	DeviceAddress uint16

	// SceneSlots and Reserved are owned by the node. They are decoded so a
	// received packet re-encodes to the same bytes.
	SceneSlots uint16
	Reserved   [reservedSize]byte
}

// ArtNetPortAddress returns the 15 bit Art-Net port address formed by net,
// subnet and universe.
func (p *ConfigPacket) ArtNetPortAddress() uint16 {
	return uint16(p.ArtNetNet&0x7F)<<8 | uint16(p.ArtNetSubnet&0x0F)<<4 | uint16(p.ArtNetUniverse&0x0F)
}

// ActivePort is the UDP port the node listens on for its configured protocol.
func (p *ConfigPacket) ActivePort() int {
	if p.Flags.SACN {
		return PortSACN
	}
	return PortArtNet
}

// Clone returns a copy of the packet.
func (p *ConfigPacket) Clone() *ConfigPacket {
	c := *p
	return &c
}

func (p *ConfigPacket) String() string {
	name := p.NodeName
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s [%s, %s, %s]", name, p.Opcode, p.Mode, p.Flags)
}

// DefaultConfig returns the factory configuration a node starts with when its
// persistent storage is empty.
func DefaultConfig() *ConfigPacket {
	return &ConfigPacket{
		Opcode:         OpcodeData,
		Version:        ConfigVersion,
		Mode:           ModeAccessPoint,
		Flags:          Flags{Multicast: true},
		SSID:           "ESP-DMX-WiFi",
		Password:       "*****",
		APAddress:      IPv4{10, 110, 115, 10},
		APGateway:      IPv4{10, 110, 115, 10},
		APSubnet:       IPv4{255, 255, 255, 0},
		StationAddress: IPv4{10, 110, 115, 15},
		StationGateway: IPv4{192, 168, 1, 1},
		StationSubnet:  IPv4{255, 0, 0, 0},
		MulticastGroup: IPv4{239, 255, 0, 1},
		SACNUniverse:   1,
		NodeName:       "com.claudeheintzdesign.esp-dmx",
	}
}

// SACNMulticastGroup returns the E1.31 multicast group for a universe,
// 239.255.<hi>.<lo>.
func SACNMulticastGroup(universe uint16) IPv4 {
	return IPv4{239, 255, byte(universe >> 8), byte(universe)}
}
