package discovery

import (
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// BindSpec describes where the engine socket should listen.
type BindSpec struct {
	// Interface is a network interface name such as "en0" or "wlan0".
	// Empty means no interface search.
	Interface string

	// Address is the local address to bind. Empty, "any" and "0.0.0.0"
	// mean all addresses. It is also the fallback when Interface is not
	// found.
	Address string

	// Port is the local UDP port, normally the node's protocol port.
	Port int
}

// BindResult is the outcome of bind address resolution.
type BindResult struct {
	// Addr is the local address and port to bind.
	Addr netip.AddrPort

	// Interface is the interface matched by name, if any. Multicast
	// queries leave through it.
	Interface *net.Interface

	// Diagnostic lists the interfaces that were available when the
	// requested one was not found. Empty when no search was needed or the
	// search succeeded.
	Diagnostic string

	// Suggested is a non-loopback interface that could be used instead.
	Suggested string
}

// interfaceInfo is an interface with its IPv4 addresses.
type interfaceInfo struct {
	Iface net.Interface
	Addrs []netip.Addr
}

// systemInterfaces enumerates the host's interfaces.
func systemInterfaces() ([]interfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]interfaceInfo, 0, len(ifaces))
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			logging.Debug("Skipping interface",
				zap.String("interface", ifi.Name),
				zap.Error(err),
			)
			continue
		}
		info := interfaceInfo{Iface: ifi}
		for _, a := range addrs {
			prefix, err := netip.ParsePrefix(a.String())
			if err != nil {
				continue
			}
			if ip := prefix.Addr().Unmap(); ip.Is4() {
				info.Addrs = append(info.Addrs, ip)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// IsWildcard reports whether s names the wildcard bind address.
func IsWildcard(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "any", "0.0.0.0", "*":
		return true
	}
	return false
}

// ResolveBind turns spec into a concrete bind address using the host's
// interfaces.
func ResolveBind(spec BindSpec) (*BindResult, error) {
	return resolveBind(spec, systemInterfaces)
}

// resolveBind looks for spec.Interface by exact name and binds to its first
// IPv4 address. When the name is not found, every interface with an address
// is listed in the result's Diagnostic and spec.Address is used instead. If
// spec.Address is empty as well, the bind fails.
func resolveBind(spec BindSpec, list func() ([]interfaceInfo, error)) (*BindResult, error) {
	if spec.Port < 0 || spec.Port > 0xFFFF {
		return nil, &SocketBindError{Spec: spec, Err: fmt.Errorf("port %d out of range", spec.Port)}
	}
	port := uint16(spec.Port)

	if spec.Interface == "" {
		return bindToAddress(spec, port, &BindResult{})
	}

	ifaces, err := list()
	if err != nil {
		logging.Warn("Cannot enumerate network interfaces", zap.Error(err))
		res := &BindResult{Diagnostic: fmt.Sprintf("cannot list network interfaces: %v", err)}
		return bindToAddress(spec, port, res)
	}

	for i := range ifaces {
		info := ifaces[i]
		if info.Iface.Name != spec.Interface {
			continue
		}
		if len(info.Addrs) == 0 {
			break
		}
		logging.Info("Found address for interface",
			zap.String("interface", spec.Interface),
			zap.Stringer("addr", info.Addrs[0]),
		)
		ifi := info.Iface
		return &BindResult{
			Addr:      netip.AddrPortFrom(info.Addrs[0], port),
			Interface: &ifi,
		}, nil
	}

	res := &BindResult{}
	res.Diagnostic, res.Suggested = describeInterfaces(spec.Interface, ifaces)
	logging.Warn("Interface not found",
		zap.String("interface", spec.Interface),
		zap.String("suggested", res.Suggested),
	)
	return bindToAddress(spec, port, res)
}

func bindToAddress(spec BindSpec, port uint16, res *BindResult) (*BindResult, error) {
	if spec.Interface != "" && strings.TrimSpace(spec.Address) == "" {
		return res, &SocketBindError{
			Spec:       spec,
			Diagnostic: res.Diagnostic,
			Suggested:  res.Suggested,
			Err:        fmt.Errorf("interface %q not found and no bind address given", spec.Interface),
		}
	}
	if IsWildcard(spec.Address) {
		res.Addr = netip.AddrPortFrom(netip.IPv4Unspecified(), port)
		return res, nil
	}
	local, err := protocol.ParseAddress(spec.Address)
	if err != nil {
		return res, &SocketBindError{Spec: spec, Diagnostic: res.Diagnostic, Suggested: res.Suggested, Err: err}
	}
	res.Addr = netip.AddrPortFrom(local.Addr(), port)
	return res, nil
}

// describeInterfaces builds the "not found" report and picks a suggestion.
func describeInterfaces(want string, ifaces []interfaceInfo) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s not found. Did find:", want)

	sorted := make([]interfaceInfo, len(ifaces))
	copy(sorted, ifaces)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Iface.Name < sorted[j].Iface.Name })

	suggested := ""
	for _, info := range sorted {
		var addrs []string
		for _, a := range info.Addrs {
			if a.IsLoopback() {
				continue
			}
			addrs = append(addrs, a.String())
		}
		if len(addrs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n  %s %s", info.Iface.Name, strings.Join(addrs, ", "))
		if suggested == "" && info.Iface.Flags&net.FlagUp != 0 {
			suggested = info.Iface.Name
		}
	}
	if suggested != "" {
		fmt.Fprintf(&b, "\nPossibly use %s?", suggested)
	}
	return b.String(), suggested
}
