package protocol

import "fmt"

// DecodeReason says why a datagram was not a usable configuration packet.
type DecodeReason int

const (
	ReasonTooShort DecodeReason = iota
	ReasonBadIdentifier
	ReasonNotData
)

func (r DecodeReason) String() string {
	switch r {
	case ReasonTooShort:
		return "too short"
	case ReasonBadIdentifier:
		return "identifier mismatch"
	case ReasonNotData:
		return "not a data packet"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode for datagrams that are not ESP-DMX
// configuration data.
type DecodeError struct {
	Reason DecodeReason
	Length int
	Opcode Opcode
}

func (e *DecodeError) Error() string {
	switch e.Reason {
	case ReasonTooShort:
		return fmt.Sprintf("decode: packet too short: %d bytes (need %d)", e.Length, PacketSize)
	case ReasonNotData:
		return fmt.Sprintf("decode: opcode %s is not a data packet", e.Opcode)
	default:
		return fmt.Sprintf("decode: %s", e.Reason)
	}
}

// AddressError is returned when text cannot be turned into an IPv4 address.
type AddressError struct {
	Input string
	Err   error
}

func (e *AddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve address %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("cannot resolve address %q", e.Input)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}
