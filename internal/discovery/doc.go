// Package discovery finds ESP-DMX nodes and owns the UDP socket used to talk
// to them.
//
// An Engine binds one UDP socket and runs a single goroutine that either sends
// the pending outbound packet or waits up to a second for a datagram. Replies
// that decode as configuration data become Records in a Registry, keyed by the
// sender's address. Callers never touch the socket; they hand packets to the
// engine with Submit.
//
// # Usage Example
//
//	reg := discovery.NewRegistry()
//	eng := discovery.NewEngine(reg, discovery.ListenerFuncs{
//	    OnDeviceDiscovered: func(rec *discovery.Record) {
//	        fmt.Println("found", rec)
//	    },
//	}, discovery.Options{})
//
//	err := eng.Start(ctx, discovery.BindSpec{Interface: "wlan0", Address: "any", Port: protocol.PortArtNet})
//	if err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
// # Bind Address Resolution
//
// When BindSpec.Interface is set, the engine binds to that interface's first
// IPv4 address. If no interface has that name, the available interfaces are
// reported through Listener.BindDiagnostic and BindSpec.Address is used
// instead. With neither, Start fails with a SocketBindError.
//
// # mDNS
//
// Scanner browses for ESP boards that advertise an OTA service. The addresses
// it finds are only used as extra query targets.
package discovery
