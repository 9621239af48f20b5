package discovery

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// Record is a configuration reply received from a node.
type Record struct {
	// Packet is the decoded configuration
	Packet *protocol.ConfigPacket

	// Source is the address the reply came from. Records are keyed on it.
	Source netip.Addr

	// SourcePort is the UDP port the reply came from
	SourcePort uint16

	// ReceivedAt is when the reply arrived
	ReceivedAt time.Time
}

// NewRecord pairs a decoded packet with its sender.
func NewRecord(pkt *protocol.ConfigPacket, src netip.AddrPort) *Record {
	return &Record{
		Packet:     pkt,
		Source:     src.Addr().Unmap(),
		SourcePort: src.Port(),
		ReceivedAt: time.Now(),
	}
}

// Address returns the source address as text. This is the IP column of a
// node listing and the default upload target for the node.
func (r *Record) Address() string {
	return r.Source.String()
}

// NodeName returns the name the node reported.
func (r *Record) NodeName() string {
	if r.Packet == nil {
		return ""
	}
	return r.Packet.NodeName
}

// String returns a human-readable representation of the record
func (r *Record) String() string {
	name := r.NodeName()
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("ESP-DMX node %s at %s", name, r.Address())
}
