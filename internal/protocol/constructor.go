package protocol

import (
	"encoding/binary"
	"fmt"
)

// Packet constructors for traffic sent to ESP-DMX nodes.

// Art-Net ArtAddress constants.
const (
	ArtNetID              = "Art-Net"
	OpArtAddress          = 0x6000
	ArtNetProtocolVersion = 14

	offsetArtOpcode  = 8
	offsetArtVersion = 10
	offsetArtCommand = 106
)

// Command is an ArtAddress command byte.
type Command byte

const (
	CommandCancelMerge Command = 0x01
	CommandClearOutput Command = 0x90
)

func (c Command) String() string {
	switch c {
	case CommandCancelMerge:
		return "cancel-merge"
	case CommandClearOutput:
		return "clear-output"
	default:
		return fmt.Sprintf("command(0x%02x)", byte(c))
	}
}

// Encode serializes the packet into exactly PacketSize bytes.
//
// Text longer than its field is truncated so the field always keeps a
// terminating NUL. Bytes not covered by a field are zero.
func (p *ConfigPacket) Encode() []byte {
	buf := make([]byte, PacketSize)

	copy(buf, Identifier)
	buf[offsetOpcode] = byte(p.Opcode)
	buf[offsetVersion] = p.Version
	buf[offsetMode] = byte(p.Mode)
	buf[offsetFlags] = p.Flags.Byte()

	writeString(buf[offsetSSID:offsetSSID+SSIDFieldSize], p.SSID)
	writeString(buf[offsetPassword:offsetPassword+PasswordFieldSize], p.Password)

	copy(buf[offsetAPAddress:], p.APAddress[:])
	copy(buf[offsetAPGateway:], p.APGateway[:])
	copy(buf[offsetAPSubnet:], p.APSubnet[:])
	copy(buf[offsetStationAddress:], p.StationAddress[:])
	copy(buf[offsetStationGateway:], p.StationGateway[:])
	copy(buf[offsetStationSubnet:], p.StationSubnet[:])
	copy(buf[offsetMulticast:], p.MulticastGroup[:])

	// The universe high byte lives after the Art-Net fields for
	// compatibility with firmware that only had a one byte universe.
	buf[offsetSACNUniverseLo] = byte(p.SACNUniverse)
	buf[offsetSACNUniverseHi] = byte(p.SACNUniverse >> 8)
	buf[offsetArtNetNet] = p.ArtNetNet
	buf[offsetArtNetSubUni] = (p.ArtNetSubnet&0x0F)<<4 | p.ArtNetUniverse&0x0F

	writeString(buf[offsetNodeName:offsetNodeName+NodeNameFieldSize], p.NodeName)
	copy(buf[offsetInputAddress:], p.InputAddress[:])

	binary.LittleEndian.PutUint16(buf[offsetDeviceAddress:], p.DeviceAddress)
	binary.LittleEndian.PutUint16(buf[offsetSceneSlots:], p.SceneSlots)
	copy(buf[offsetReserved:], p.Reserved[:])

	return buf
}

// BuildUpload encodes p as an UPLOAD packet carrying the current config
// version. p itself is not modified.
func BuildUpload(p *ConfigPacket) []byte {
	up := p.Clone()
	up.Opcode = OpcodeUpload
	up.Version = ConfigVersion
	return up.Encode()
}

// BuildQuery returns the minimal packet that asks nodes to reply with their
// configuration.
//
//	[0-6]  "ESP-DMX"
//	[7]    0x00
//	[8]    '?'
func BuildQuery() []byte {
	return buildMinimal(OpcodeQuery)
}

// BuildReset returns the minimal packet that restores factory defaults.
func BuildReset() []byte {
	return buildMinimal(OpcodeReset)
}

func buildMinimal(op Opcode) []byte {
	buf := make([]byte, MinimalPacketSize)
	copy(buf, Identifier)
	buf[offsetOpcode] = byte(op)
	return buf
}

// EncodeCommand builds an Art-Net ArtAddress packet carrying cmd, stamped
// with the given protocol version. Callers normally pass
// ArtNetProtocolVersion.
//
// Packet Structure:
//
//	[0-7]    "Art-Net\0"
//	[8-9]    opcode 0x6000, little-endian
//	[10-11]  protocol version, big-endian
//	[12-105] zero (no name, address or switch changes)
//	[106]    command
func EncodeCommand(cmd Command, version uint16) []byte {
	buf := make([]byte, CommandPacketSize)
	copy(buf, ArtNetID)
	binary.LittleEndian.PutUint16(buf[offsetArtOpcode:], OpArtAddress)
	binary.BigEndian.PutUint16(buf[offsetArtVersion:], version)
	buf[offsetArtCommand] = byte(cmd)
	return buf
}

// writeString copies s into field, truncating so at least one NUL remains.
// field is assumed to be zeroed.
func writeString(field []byte, s string) {
	n := len(s)
	if n > len(field)-1 {
		n = len(field) - 1
	}
	copy(field, s[:n])
}
