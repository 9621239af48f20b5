package discovery

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	// ErrEngineNotRunning is returned when submitting to an engine that
	// has not started or is shutting down.
	ErrEngineNotRunning = errors.New("discovery engine is not running")

	// ErrSubmitTimeout is returned when the outbound slot stayed occupied
	// for the whole submit timeout.
	ErrSubmitTimeout = errors.New("timed out waiting for the outbound slot")

	// ErrAlreadyStarted is returned by Start on an engine that left Idle.
	ErrAlreadyStarted = errors.New("discovery engine already started")
)

// SocketBindError means the engine socket could not be opened.
type SocketBindError struct {
	Spec       BindSpec
	Diagnostic string
	Suggested  string
	Err        error
}

func (e *SocketBindError) Error() string {
	target := e.Spec.Address
	if target == "" {
		target = e.Spec.Interface
	}
	return fmt.Sprintf("cannot bind %s port %d: %v", target, e.Spec.Port, e.Err)
}

func (e *SocketBindError) Unwrap() error {
	return e.Err
}

// SendError is a failed datagram send inside the engine loop.
type SendError struct {
	Dest     netip.AddrPort
	Attempts int
	Dropped  bool
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed (attempt %d): %v", e.Dest, e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
