package nodeconfig

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

const (
	// DefaultQueryInterval is the wait after each query for replies to arrive
	DefaultQueryInterval = 1 * time.Second

	// DefaultMulticastGroup is queried last when no group is configured
	DefaultMulticastGroup = "239.255.0.1"

	// AccessPointAddress is the node's own address in access point mode
	AccessPointAddress = "10.110.115.10"
)

// fallbackTargets are queried after the primary target, in order.
var fallbackTargets = []string{
	AccessPointAddress,
	"10.110.115.255",
	"10.255.255.255",
	"192.168.1.1",
	"192.168.1.255",
	"255.255.255.255",
}

// Submitter queues a datagram for sending. *discovery.Engine implements it.
type Submitter interface {
	Submit(ctx context.Context, out *discovery.Outbound) error
}

// Client builds query, upload, reset and command packets and hands them to
// the discovery engine. Replies are not returned; they show up in the
// engine's registry.
type Client struct {
	// QueryInterval is the wait after each search query
	QueryInterval time.Duration

	// MulticastGroup is queried at the end of the fallback list
	// (default: 239.255.0.1)
	MulticastGroup string

	// ExtraTargets are queried after the fallback list
	ExtraTargets []string

	submitter Submitter
	listener  discovery.Listener
	log       *zap.Logger

	resolve func(ctx context.Context, s string) (protocol.IPv4, error)
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client that submits through s and reports search
// progress to l. l may be nil.
func NewClient(s Submitter, l discovery.Listener) *Client {
	if l == nil {
		l = discovery.ListenerFuncs{}
	}
	return &Client{
		QueryInterval:  DefaultQueryInterval,
		MulticastGroup: DefaultMulticastGroup,
		submitter:      s,
		listener:       l,
		log:            logging.Named("nodeconfig"),
		resolve:        protocol.ResolveAddress,
		sleep:          sleepContext,
	}
}

// NewEngineClient creates a client for a running engine, reporting to the
// engine's own listener.
func NewEngineClient(e *discovery.Engine) *Client {
	return NewClient(e, e.Listener())
}

// FallbackTargets returns the search targets tried after the primary one.
// An empty multicast group selects DefaultMulticastGroup.
func FallbackTargets(multicast string) []string {
	if multicast == "" {
		multicast = DefaultMulticastGroup
	}
	targets := make([]string, 0, len(fallbackTargets)+1)
	targets = append(targets, fallbackTargets...)
	return append(targets, multicast)
}

// SearchTargets returns every target Search will query, in order. Entries
// textually equal to primary are skipped.
func (c *Client) SearchTargets(primary string) []string {
	targets := []string{primary}
	for _, t := range append(FallbackTargets(c.MulticastGroup), c.ExtraTargets...) {
		if t == primary {
			continue
		}
		targets = append(targets, t)
	}
	return targets
}

// Search queries primary, then every fallback and extra target, waiting
// QueryInterval after each query. Nodes that answer are added to the
// registry by the engine.
//
// A primary target that cannot be resolved aborts the search before anything
// is sent. Unresolvable fallback or extra targets are skipped.
func (c *Client) Search(ctx context.Context, primary string, port uint16) error {
	first, err := c.resolve(ctx, primary)
	if err != nil {
		return NewAddressError("target", err)
	}

	for i, target := range c.SearchTargets(primary) {
		c.listener.SearchProgress("searching: " + target)

		addr := first
		if i > 0 {
			addr, err = c.resolve(ctx, target)
			if err != nil {
				c.log.Warn("Skipping search target", zap.String("target", target), zap.Error(err))
				continue
			}
		}

		if err := c.submit(ctx, protocol.BuildQuery(), addr, port, false); err != nil {
			return err
		}
		c.log.Debug("Query sent", zap.String("target", target), zap.Uint16("port", port))

		if err := c.sleep(ctx, c.QueryInterval); err != nil {
			return err
		}
	}
	return nil
}

// Query sends a single query without waiting for replies.
func (c *Client) Query(ctx context.Context, target string, port uint16) error {
	addr, err := c.resolve(ctx, target)
	if err != nil {
		return NewAddressError("target", err)
	}
	return c.submit(ctx, protocol.BuildQuery(), addr, port, false)
}

// Upload validates f and sends the resulting configuration to target.
// Nothing is sent when validation or address conversion fails. Send failures
// are reported through the listener's SendFailed.
func (c *Client) Upload(ctx context.Context, f *Fields, target string, port uint16) error {
	pkt, err := f.Packet()
	if err != nil {
		return err
	}
	return c.UploadPacket(ctx, pkt, target, port)
}

// UploadPacket sends p as an upload to target.
func (c *Client) UploadPacket(ctx context.Context, p *protocol.ConfigPacket, target string, port uint16) error {
	addr, err := c.resolve(ctx, target)
	if err != nil {
		return NewAddressError("target", err)
	}

	c.log.Info("Uploading configuration",
		zap.String("target", target),
		zap.String("node", p.NodeName),
		zap.Stringer("mode", p.Mode),
	)
	return c.submit(ctx, protocol.BuildUpload(p), addr, port, true)
}

// Reset asks the node at target to restart. The node drops its current
// network connection, so callers confirm with the user first.
func (c *Client) Reset(ctx context.Context, target string, port uint16) error {
	addr, err := c.resolve(ctx, target)
	if err != nil {
		return NewAddressError("target", err)
	}

	c.log.Info("Resetting node", zap.String("target", target))
	return c.submit(ctx, protocol.BuildReset(), addr, port, false)
}

// SendCommand sends an ArtAddress command to target on the Art-Net port.
func (c *Client) SendCommand(ctx context.Context, target string, cmd protocol.Command) error {
	addr, err := c.resolve(ctx, target)
	if err != nil {
		return NewAddressError("target", err)
	}

	c.log.Info("Sending command", zap.String("target", target), zap.Stringer("command", cmd))
	return c.submit(ctx, protocol.EncodeCommand(cmd, protocol.ArtNetProtocolVersion), addr, protocol.PortArtNet, false)
}

func (c *Client) submit(ctx context.Context, data []byte, addr protocol.IPv4, port uint16, report bool) error {
	out := &discovery.Outbound{
		Data:          data,
		Dest:          netip.AddrPortFrom(addr.Addr(), port),
		ReportFailure: report,
	}
	if err := c.submitter.Submit(ctx, out); err != nil {
		return fmt.Errorf("submit to %s: %w", out.Dest, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
