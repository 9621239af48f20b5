package protocol

import (
	"bytes"
	"encoding/binary"
)

// Decode parses a received configuration packet.
//
// Only packets of at least PacketSize bytes that carry the ESP-DMX identifier
// and the DATA opcode are accepted. Queries and uploads from other tools on
// the same network are rejected with a DecodeError so they never reach the
// device registry. Field contents are not validated.
func Decode(data []byte) (*ConfigPacket, error) {
	if len(data) < PacketSize {
		return nil, &DecodeError{Reason: ReasonTooShort, Length: len(data)}
	}
	if !HasIdentifier(data) {
		return nil, &DecodeError{Reason: ReasonBadIdentifier, Length: len(data)}
	}
	if op := Opcode(data[offsetOpcode]); op != OpcodeData {
		return nil, &DecodeError{Reason: ReasonNotData, Length: len(data), Opcode: op}
	}

	p := &ConfigPacket{
		Opcode:   OpcodeData,
		Version:  data[offsetVersion],
		Mode:     WiFiMode(data[offsetMode]),
		Flags:    FlagsFromByte(data[offsetFlags]),
		SSID:     readString(data[offsetSSID : offsetSSID+SSIDFieldSize]),
		Password: readString(data[offsetPassword : offsetPassword+PasswordFieldSize]),

		APAddress:      readIPv4(data, offsetAPAddress),
		APGateway:      readIPv4(data, offsetAPGateway),
		APSubnet:       readIPv4(data, offsetAPSubnet),
		StationAddress: readIPv4(data, offsetStationAddress),
		StationGateway: readIPv4(data, offsetStationGateway),
		StationSubnet:  readIPv4(data, offsetStationSubnet),
		MulticastGroup: readIPv4(data, offsetMulticast),

		SACNUniverse:   uint16(data[offsetSACNUniverseHi])<<8 | uint16(data[offsetSACNUniverseLo]),
		ArtNetNet:      data[offsetArtNetNet],
		ArtNetSubnet:   data[offsetArtNetSubUni] >> 4,
		ArtNetUniverse: data[offsetArtNetSubUni] & 0x0F,

		NodeName:      readString(data[offsetNodeName : offsetNodeName+NodeNameFieldSize]),
		InputAddress:  readIPv4(data, offsetInputAddress),
		DeviceAddress: binary.LittleEndian.Uint16(data[offsetDeviceAddress:]),
		SceneSlots:    binary.LittleEndian.Uint16(data[offsetSceneSlots:]),
	}
	copy(p.Reserved[:], data[offsetReserved:PacketSize])

	return p, nil
}

// HasIdentifier reports whether data starts with "ESP-DMX". The byte after
// the tag is not checked; Encode writes a NUL there.
func HasIdentifier(data []byte) bool {
	if len(data) < len(Identifier) {
		return false
	}
	return bytes.Equal(data[:len(Identifier)], []byte(Identifier))
}

// readString returns the bytes of field up to the first NUL. A field with no
// terminator is read in full.
func readString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

func readIPv4(data []byte, offset int) IPv4 {
	var a IPv4
	copy(a[:], data[offset:offset+4])
	return a
}
