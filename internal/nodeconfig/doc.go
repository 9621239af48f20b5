// Package nodeconfig searches for ESP-DMX nodes and changes their
// configuration.
//
// A Client turns user intent into packets and hands them to a running
// discovery engine. It never reads the socket: replies arrive in the
// engine's registry, so a search succeeds when the registry grows, not when
// Search returns.
//
// # Editing a node
//
// Fields hold a node's settings in editable form. Load them from a
// discovered record, change what is needed, then upload:
//
//	fields := nodeconfig.FieldsFromPacket(rec.Packet)
//	fields.Flags.SACN = true
//	fields.SACNUniverse = 3
//	err := client.Upload(ctx, &fields, rec.Address(), protocol.PortArtNet)
//	if nodeconfig.IsValidationError(err) {
//	    fmt.Println(err)
//	}
//
// Station mode needs an SSID and a real password. A password that still
// starts with MaskedPasswordPrefix, as produced by MaskPassword for
// display, is rejected so a masked value is never stored on the node.
//
// # Commands
//
// Reset restarts a node and drops its network connection; callers confirm
// first. SendCommand sends Art-Net ArtAddress commands (cancel merge, clear
// output) to the Art-Net port regardless of the node's protocol.
package nodeconfig
