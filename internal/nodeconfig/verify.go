package nodeconfig

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

// VerificationOptions configures how an upload is verified
type VerificationOptions struct {
	// MaxRetries is the maximum number of additional queries
	// Default: 3
	MaxRetries int

	// InitialDelay gives the node time to store and apply the configuration
	// Default: 2s
	InitialDelay time.Duration

	// RetryDelay is the wait for a reply after each query
	// Default: 1s
	RetryDelay time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		RetryDelay:   1 * time.Second,
	}
}

// VerificationResult contains the results of an upload verification
type VerificationResult struct {
	// Success indicates whether the node reported the expected configuration
	Success bool

	// Attempts is the number of queries sent
	Attempts int

	// Actual is the last record received from the node
	Actual *discovery.Record

	// Mismatches lists the fields that differ
	Mismatches []string

	// Error is any error that occurred during verification
	Error error
}

// Verify queries target until the registry holds a reply received after
// the call started that matches expected. Nodes that change network or
// address on upload cannot be verified from the old address.
func (c *Client) Verify(ctx context.Context, reg *discovery.Registry, expected *protocol.ConfigPacket, target string, port uint16, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}
	result := &VerificationResult{}

	addr, err := c.resolve(ctx, target)
	if err != nil {
		result.Error = NewAddressError("target", err)
		return result
	}
	source := addr.Addr()
	since := time.Now()

	if err := c.sleep(ctx, opts.InitialDelay); err != nil {
		result.Error = err
		return result
	}

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts++

		if err := c.submit(ctx, protocol.BuildQuery(), addr, port, false); err != nil {
			result.Error = err
			return result
		}
		if err := c.sleep(ctx, opts.RetryDelay); err != nil {
			result.Error = err
			return result
		}

		rec := freshRecord(reg, source, since)
		if rec == nil {
			result.Error = fmt.Errorf("attempt %d: no reply from %s", attempt+1, target)
			continue
		}

		result.Actual = rec
		result.Mismatches = CompareConfig(expected, rec.Packet)
		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return result
		}
		result.Error = fmt.Errorf("attempt %d: %s", attempt+1, formatMismatches(result.Mismatches))
	}

	c.log.Warn("Upload not verified",
		zap.String("target", target),
		zap.Int("attempts", result.Attempts),
		zap.Error(result.Error),
	)
	return result
}

// UploadAndVerify uploads f to target and verifies the node reports it back.
func (c *Client) UploadAndVerify(ctx context.Context, reg *discovery.Registry, f *Fields, target string, port uint16, opts *VerificationOptions) *VerificationResult {
	pkt, err := f.Packet()
	if err != nil {
		return &VerificationResult{Error: err}
	}
	if err := c.UploadPacket(ctx, pkt, target, port); err != nil {
		return &VerificationResult{Error: fmt.Errorf("upload failed: %w", err)}
	}
	return c.Verify(ctx, reg, pkt, target, port, opts)
}

func freshRecord(reg *discovery.Registry, source netip.Addr, since time.Time) *discovery.Record {
	rec := reg.Lookup(source)
	if rec == nil || rec.ReceivedAt.Before(since) {
		return nil
	}
	return rec
}

// CompareConfig lists the user-editable fields that differ between expected
// and actual. The password is not compared because nodes do not report it.
func CompareConfig(expected, actual *protocol.ConfigPacket) []string {
	var mismatches []string
	check := func(name string, want, got any) {
		if want != got {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", name, want, got))
		}
	}

	check("mode", expected.Mode, actual.Mode)
	check("flags", expected.Flags, actual.Flags)
	check("ssid", expected.SSID, actual.SSID)
	check("ap address", expected.APAddress, actual.APAddress)
	check("ap gateway", expected.APGateway, actual.APGateway)
	check("ap subnet", expected.APSubnet, actual.APSubnet)
	check("station address", expected.StationAddress, actual.StationAddress)
	check("station gateway", expected.StationGateway, actual.StationGateway)
	check("station subnet", expected.StationSubnet, actual.StationSubnet)
	check("multicast group", expected.MulticastGroup, actual.MulticastGroup)
	check("sacn universe", expected.SACNUniverse, actual.SACNUniverse)
	check("artnet net", expected.ArtNetNet, actual.ArtNetNet)
	check("artnet subnet", expected.ArtNetSubnet, actual.ArtNetSubnet)
	check("artnet universe", expected.ArtNetUniverse, actual.ArtNetUniverse)
	check("node name", truncate(expected.NodeName, protocol.NodeNameFieldSize-1), actual.NodeName)
	check("input address", expected.InputAddress, actual.InputAddress)
	check("device address", expected.DeviceAddress, actual.DeviceAddress)

	return mismatches
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// formatMismatches creates a human-readable summary of mismatches
func formatMismatches(mismatches []string) string {
	if len(mismatches) == 0 {
		return "none"
	}
	if len(mismatches) == 1 {
		return mismatches[0]
	}
	return fmt.Sprintf("%d mismatches: %s", len(mismatches), strings.Join(mismatches, "; "))
}
