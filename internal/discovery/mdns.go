package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/logging"
)

const (
	// ServiceType is the mDNS service ESP8266 and ESP32 boards advertise
	// while the ArduinoOTA responder is running
	ServiceType = "_arduino._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default mDNS browse duration
	DefaultScanTimeout = 3 * time.Second
)

// Host is an mDNS responder that may be an ESP-DMX node. Hosts are only
// query targets; a host becomes a Record once it answers a query.
type Host struct {
	// Hostname is the mDNS host name (e.g., "esp8266-1a2b3c.local.")
	Hostname string

	// Instance is the advertised service instance name
	Instance string

	// Addr is the first IPv4 address of the host
	Addr netip.Addr

	// Metadata contains the TXT record (board, tcp_check, ssh_upload, ...)
	Metadata map[string]string

	// DiscoveredAt is when the host was seen
	DiscoveredAt time.Time
}

func (h *Host) String() string {
	return fmt.Sprintf("%s (%s) at %s", h.Instance, h.Hostname, h.Addr)
}

// Scanner browses mDNS for candidate node addresses.
type Scanner struct {
	// Timeout is the browse duration
	Timeout time.Duration

	// Service overrides ServiceType when set
	Service string
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Service: ServiceType,
	}
}

// Scan browses for the scanner's timeout and returns each IPv4 host once.
func (s *Scanner) Scan(ctx context.Context) ([]*Host, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	service := s.Service
	if service == "" {
		service = ServiceType
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu    sync.Mutex
		seen  = make(map[netip.Addr]bool)
		hosts []*Host
	)
	go func() {
		for entry := range entries {
			h := parseServiceEntry(entry)
			if h == nil {
				continue
			}
			mu.Lock()
			if !seen[h.Addr] {
				seen[h.Addr] = true
				hosts = append(hosts, h)
				logging.Debug("mDNS host", zap.String("host", h.Hostname), zap.Stringer("addr", h.Addr))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	out := make([]*Host, len(hosts))
	copy(out, hosts)
	return out, nil
}

// Addresses returns the IPv4 addresses found by Scan as strings.
func (s *Scanner) Addresses(ctx context.Context) ([]string, error) {
	hosts, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.Addr.String())
	}
	return out, nil
}

// parseServiceEntry converts a zeroconf entry to a Host.
// Returns nil if the entry has no IPv4 address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Host {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return nil
	}

	addr, ok := netip.AddrFromSlice(entry.AddrIPv4[0].To4())
	if !ok {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Host{
		Hostname:     entry.HostName,
		Instance:     entry.Instance,
		Addr:         addr,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
