// Package protocol implements the ESP-DMX node configuration wire format.
//
// Nodes answer a small UDP protocol on the Art-Net (6454) or sACN (5568) port.
// Every packet starts with the ASCII tag "ESP-DMX" and a NUL, followed by an
// opcode byte:
//   - 0x00 data: a node reporting its configuration (232 bytes)
//   - '?'  query: ask nodes to report (9 bytes)
//   - '!'  upload: replace a node's configuration (232 bytes)
//   - '^'  reset: restore factory defaults (9 bytes)
//
// Node output can also be controlled with an Art-Net ArtAddress packet built by
// EncodeCommand.
//
// # Usage Example - Parsing
//
//	pkt, err := protocol.Decode(datagram)
//	if err != nil {
//	    // not a configuration reply; ignore
//	    return
//	}
//	fmt.Println(pkt.NodeName, pkt.SACNUniverse)
//
// # Usage Example - Construction
//
//	cfg := protocol.DefaultConfig()
//	cfg.Mode = protocol.ModeStation
//	cfg.SSID = "venue"
//	conn.WriteTo(protocol.BuildUpload(cfg), nodeAddr)
//
// The codec preserves two quirks of the firmware layout: the sACN universe is
// split across bytes 168 and 171, and the DMX device address is stored least
// significant byte first.
package protocol
