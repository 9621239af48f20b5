package main

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/config"
	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/nodeconfig"
)

// stopTimeout bounds how long closing a session waits for the engine loop.
const stopTimeout = 3 * time.Second

// session is a running discovery engine with a client bound to it.
type session struct {
	engine   *discovery.Engine
	registry *discovery.Registry
	client   *nodeconfig.Client
	port     uint16
}

// bindSpec returns the socket the engine should open for the given
// network preferences.
func bindSpec(n *config.NetworkPrefs) discovery.BindSpec {
	return discovery.BindSpec{
		Interface: n.Interface,
		Address:   n.BindAddress,
		Port:      n.Port,
	}
}

// openSession starts an engine on the configured socket. l receives engine
// and search notifications and may be nil.
func openSession(ctx context.Context, l discovery.Listener) (*session, error) {
	reg := discovery.NewRegistry()
	engine := discovery.NewEngine(reg, l, discovery.Options{})
	if err := engine.Start(ctx, bindSpec(cfg.Network)); err != nil {
		return nil, err
	}

	client := nodeconfig.NewEngineClient(engine)
	configureClient(client, cfg.Network)

	return &session{
		engine:   engine,
		registry: reg,
		client:   client,
		port:     uint16(cfg.Network.Port),
	}, nil
}

// configureClient applies search preferences to client.
func configureClient(client *nodeconfig.Client, n *config.NetworkPrefs) {
	if n.QueryInterval > 0 {
		client.QueryInterval = n.QueryInterval
	}
	if n.MulticastGroup != "" {
		client.MulticastGroup = n.MulticastGroup
	}
	client.ExtraTargets = append([]string(nil), n.ExtraTargets...)
}

// Close stops the engine and waits for its socket to close.
func (s *session) Close() {
	s.engine.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.engine.Wait(ctx); err != nil {
		logging.Warn("Engine did not stop in time", zap.Error(err))
	}
}

// addMDNSTargets browses mDNS and appends the hosts found to the client's
// extra targets.
func (s *session) addMDNSTargets(ctx context.Context, timeout time.Duration) []string {
	scanner := discovery.NewScanner()
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	addrs, err := scanner.Addresses(ctx)
	if err != nil {
		logging.Warn("mDNS sweep failed", zap.Error(err))
		return nil
	}
	s.client.ExtraTargets = append(s.client.ExtraTargets, addrs...)
	return addrs
}

// waitForRecord waits for a reply from addr received at or after since.
func waitForRecord(ctx context.Context, reg *discovery.Registry, addr netip.Addr, since time.Time) (*discovery.Record, error) {
	fresh := func(rec *discovery.Record) bool {
		return rec != nil && rec.Source == addr && !rec.ReceivedAt.Before(since)
	}

	found := make(chan *discovery.Record, 1)
	unsub := reg.Subscribe(func(ev discovery.RegistryEvent) {
		if fresh(ev.Record) {
			select {
			case found <- ev.Record:
			default:
			}
		}
	})
	defer unsub()

	if rec := reg.Lookup(addr); fresh(rec) {
		return rec, nil
	}

	select {
	case rec := <-found:
		return rec, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no reply from %s: %w", addr, ctx.Err())
	}
}

// queryNode asks target for its configuration and waits for the reply.
func (s *session) queryNode(ctx context.Context, target string, timeout time.Duration) (*discovery.Record, error) {
	addr, err := resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	since := time.Now()
	if err := s.client.Query(ctx, target, s.port); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return waitForRecord(waitCtx, s.registry, addr, since)
}

// rememberNodes records the nodes in reg in the config file. Failures are
// logged; they never fail the command.
func rememberNodes(reg *discovery.Registry) {
	recs := reg.List()
	if len(recs) == 0 {
		return
	}
	for _, rec := range recs {
		cfg.UpdateNodeLastSeen(rec.Address(), rec.NodeName())
	}
	if err := cfg.Save(configPath); err != nil {
		logging.Warn("Cannot save node list", zap.Error(err))
	}
}
