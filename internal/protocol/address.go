package protocol

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
)

// ParseAddress converts a dotted-quad literal into four bytes. IPv4-mapped
// IPv6 literals are unmapped; any other IPv6 address is an AddressError.
func ParseAddress(s string) (IPv4, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return IPv4{}, &AddressError{Input: s, Err: errors.New("empty address")}
	}
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return IPv4{}, &AddressError{Input: s, Err: err}
	}
	return fromAddr(s, addr)
}

// ResolveAddress is ParseAddress with a host name lookup fallback.
func ResolveAddress(ctx context.Context, s string) (IPv4, error) {
	if a, err := ParseAddress(s); err == nil {
		return a, nil
	}
	host := strings.TrimSpace(s)
	if host == "" {
		return IPv4{}, &AddressError{Input: s, Err: errors.New("empty address")}
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return IPv4{}, &AddressError{Input: s, Err: err}
	}
	if len(addrs) == 0 {
		return IPv4{}, &AddressError{Input: s, Err: errors.New("no IPv4 address")}
	}
	return fromAddr(s, addrs[0])
}

func fromAddr(input string, addr netip.Addr) (IPv4, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return IPv4{}, &AddressError{Input: input, Err: errors.New("not an IPv4 address")}
	}
	return IPv4(addr.As4()), nil
}
