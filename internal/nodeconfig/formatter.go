package nodeconfig

import (
	"fmt"
	"strings"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// Summary returns a one-line summary of a discovered node
func Summary(rec *discovery.Record) string {
	p := rec.Packet
	return fmt.Sprintf("%s @ %s (%s, %s)", displayName(p.NodeName), rec.Address(), p.Mode, protocolName(p.Flags))
}

// FormatCompact returns a short, multi-line description of a discovered node
func FormatCompact(rec *discovery.Record) string {
	p := rec.Packet
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Node:     %s\n", displayName(p.NodeName)))
	b.WriteString(fmt.Sprintf("Address:  %s\n", rec.Address()))
	b.WriteString(fmt.Sprintf("WiFi:     %s %q\n", p.Mode, p.SSID))
	b.WriteString(fmt.Sprintf("Protocol: %s\n", FormatAddressing(p)))

	return b.String()
}

// FormatDetailed returns every field of a discovered node's configuration
func FormatDetailed(rec *discovery.Record) string {
	var b strings.Builder

	b.WriteString("=== Node ===\n")
	b.WriteString(fmt.Sprintf("Name:           %s\n", displayName(rec.NodeName())))
	b.WriteString(fmt.Sprintf("Address:        %s\n", rec.Address()))
	b.WriteString(fmt.Sprintf("Reply Port:     %d\n", rec.SourcePort))
	if !rec.ReceivedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Last Seen:      %s\n", rec.ReceivedAt.Format("2006-01-02 15:04:05")))
	}
	b.WriteString("\n")
	b.WriteString(FormatPacket(rec.Packet))

	return b.String()
}

// FormatPacket returns the WiFi, addressing and DMX sections for a packet
func FormatPacket(p *protocol.ConfigPacket) string {
	var b strings.Builder

	b.WriteString("=== WiFi ===\n")
	b.WriteString(fmt.Sprintf("Mode:           %s\n", p.Mode))
	b.WriteString(fmt.Sprintf("SSID:           %s\n", p.SSID))
	b.WriteString(fmt.Sprintf("Password:       %s\n", MaskPassword(p.Password)))
	b.WriteString(fmt.Sprintf("Addressing:     %s\n", dhcpOrStatic(p.Flags)))
	b.WriteString("\n")

	b.WriteString("=== Access Point ===\n")
	b.WriteString(fmt.Sprintf("Address:        %s\n", p.APAddress))
	b.WriteString(fmt.Sprintf("Gateway:        %s\n", p.APGateway))
	b.WriteString(fmt.Sprintf("Subnet:         %s\n", p.APSubnet))
	b.WriteString("\n")

	b.WriteString("=== Station ===\n")
	b.WriteString(fmt.Sprintf("Address:        %s\n", p.StationAddress))
	b.WriteString(fmt.Sprintf("Gateway:        %s\n", p.StationGateway))
	b.WriteString(fmt.Sprintf("Subnet:         %s\n", p.StationSubnet))
	b.WriteString("\n")

	b.WriteString("=== DMX ===\n")
	b.WriteString(fmt.Sprintf("Protocol:       %s\n", p.Flags))
	b.WriteString(fmt.Sprintf("sACN Universe:  %d\n", p.SACNUniverse))
	b.WriteString(fmt.Sprintf("Art-Net:        net %d, subnet %d, universe %d (port address %d)\n",
		p.ArtNetNet, p.ArtNetSubnet, p.ArtNetUniverse, p.ArtNetPortAddress()))
	b.WriteString(fmt.Sprintf("Multicast:      %s\n", p.MulticastGroup))
	b.WriteString(fmt.Sprintf("Input Target:   %s\n", p.InputAddress))
	b.WriteString(fmt.Sprintf("Device Address: %d\n", p.DeviceAddress))
	if p.SceneSlots > 0 {
		b.WriteString(fmt.Sprintf("Scene Slots:    %d\n", p.SceneSlots))
	}
	b.WriteString(fmt.Sprintf("Config Version: %d\n", p.Version))

	return b.String()
}

// FormatAddressing describes the universe the node is patched to in the
// terms of its active protocol.
func FormatAddressing(p *protocol.ConfigPacket) string {
	if p.Flags.SACN {
		return fmt.Sprintf("sACN universe %d", p.SACNUniverse)
	}
	return fmt.Sprintf("Art-Net %d:%d:%d", p.ArtNetNet, p.ArtNetSubnet, p.ArtNetUniverse)
}

// MaskPassword hides a password for display. The result starts with
// MaskedPasswordPrefix so it is rejected if uploaded unchanged.
func MaskPassword(password string) string {
	if password == "" {
		return "(none)"
	}
	return MaskedPasswordPrefix + "****"
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func protocolName(f protocol.Flags) string {
	if f.SACN {
		return "sACN"
	}
	return "Art-Net"
}

func dhcpOrStatic(f protocol.Flags) string {
	if f.Static {
		return "static"
	}
	return "DHCP"
}
