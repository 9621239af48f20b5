package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/lxdmxwifi/espdmx/internal/logging"
)

// PacketConn is the socket surface the engine loop uses.
type PacketConn interface {
	ReadFrom(b []byte) (int, netip.AddrPort, error)
	WriteTo(b []byte, dst netip.AddrPort) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() netip.AddrPort
	Close() error
}

// ListenFunc opens the engine socket for a bind spec. Tests replace it with
// an in-memory connection.
type ListenFunc func(ctx context.Context, spec BindSpec) (PacketConn, *BindResult, error)

// multicastTTL keeps multicast queries on the local segment.
const multicastTTL = 1

// udpConn is the production PacketConn.
type udpConn struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

// ListenUDP resolves spec and opens a UDP socket with address reuse and
// broadcast enabled. Multicast sends use TTL 1, leave through the matched
// interface, and are not looped back to this socket.
func ListenUDP(ctx context.Context, spec BindSpec) (PacketConn, *BindResult, error) {
	res, err := ResolveBind(spec)
	if err != nil {
		return nil, res, err
	}

	lc := net.ListenConfig{Control: controlSocket}
	pconn, err := lc.ListenPacket(ctx, "udp4", res.Addr.String())
	if err != nil {
		return nil, res, &SocketBindError{Spec: spec, Diagnostic: res.Diagnostic, Suggested: res.Suggested, Err: err}
	}
	conn, ok := pconn.(*net.UDPConn)
	if !ok {
		pconn.Close()
		return nil, res, &SocketBindError{Spec: spec, Err: fmt.Errorf("unexpected connection type %T", pconn)}
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		logging.Debug("Cannot set multicast TTL", zap.Error(err))
	}
	if err := pc.SetMulticastLoopback(false); err != nil {
		logging.Debug("Cannot disable multicast loopback", zap.Error(err))
	}
	if res.Interface != nil {
		if err := pc.SetMulticastInterface(res.Interface); err != nil {
			logging.Debug("Cannot set multicast interface",
				zap.String("interface", res.Interface.Name),
				zap.Error(err),
			)
		}
	}

	return &udpConn{conn: conn, pc: pc}, res, nil
}

func (c *udpConn) ReadFrom(b []byte) (int, netip.AddrPort, error) {
	return c.conn.ReadFromUDPAddrPort(b)
}

func (c *udpConn) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	return c.conn.WriteToUDPAddrPort(b, dst)
}

func (c *udpConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *udpConn) LocalAddr() netip.AddrPort {
	if a, ok := c.conn.LocalAddr().(*net.UDPAddr); ok {
		return a.AddrPort()
	}
	return netip.AddrPort{}
}

func (c *udpConn) Close() error {
	return c.conn.Close()
}
