package discovery

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lxdmxwifi/espdmx/internal/logging"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

const (
	// DefaultReceiveTimeout bounds each socket read, and so the time Stop
	// takes to be observed.
	DefaultReceiveTimeout = time.Second

	// DefaultSubmitTimeout bounds how long Submit waits for the outbound
	// slot.
	DefaultSubmitTimeout = 10 * time.Second

	// DefaultMaxSendFailures is the number of consecutive failed sends
	// tolerated before the packet is dropped.
	DefaultMaxSendFailures = 3

	// receiveErrorBackoff is the pause after a read error that is neither a
	// timeout nor a closed socket. It never exceeds the receive timeout.
	receiveErrorBackoff = 100 * time.Millisecond

	receiveBufferSize = 2048
)

// EngineState is the lifecycle state of an Engine.
type EngineState int32

const (
	EngineIdle EngineState = iota
	EngineRunning
	EngineStopping
	EngineClosed
)

func (s EngineState) String() string {
	switch s {
	case EngineIdle:
		return "idle"
	case EngineRunning:
		return "running"
	case EngineStopping:
		return "stopping"
	case EngineClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outbound is a datagram waiting to be sent by the engine.
type Outbound struct {
	Data []byte
	Dest netip.AddrPort

	// ReportFailure asks for a SendFailed notification on the first
	// failed attempt.
	ReportFailure bool
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	ReceiveTimeout  time.Duration
	SubmitTimeout   time.Duration
	MaxSendFailures int
	Listen          ListenFunc
}

func (o Options) withDefaults() Options {
	if o.ReceiveTimeout <= 0 {
		o.ReceiveTimeout = DefaultReceiveTimeout
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = DefaultSubmitTimeout
	}
	if o.MaxSendFailures <= 0 {
		o.MaxSendFailures = DefaultMaxSendFailures
	}
	if o.Listen == nil {
		o.Listen = ListenUDP
	}
	return o
}

// Engine owns the UDP socket. A single goroutine alternates between sending
// the pending outbound packet and receiving node replies, which are decoded
// and added to the registry.
//
// Other goroutines hand packets to the loop through a one-slot mailbox. The
// slot stays taken until the loop has sent or dropped the packet, so at most
// one packet is outstanding and packets go out in submission order.
type Engine struct {
	registry *Registry
	listener Listener
	opts     Options
	log      *zap.Logger

	slot    chan struct{}
	mailbox chan *Outbound
	done    chan struct{}

	startMu  sync.Mutex
	state    atomic.Int32
	stopping atomic.Bool
	conn     PacketConn
	bind     *BindResult
}

// NewEngine creates an idle engine that feeds reg and notifies l.
// l may be nil.
func NewEngine(reg *Registry, l Listener, opts Options) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	if l == nil {
		l = ListenerFuncs{}
	}
	return &Engine{
		registry: reg,
		listener: l,
		opts:     opts.withDefaults(),
		log:      logging.Named("engine"),
		slot:     make(chan struct{}, 1),
		mailbox:  make(chan *Outbound, 1),
		done:     make(chan struct{}),
	}
}

// Registry returns the registry the engine feeds.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Listener returns the engine's listener.
func (e *Engine) Listener() Listener {
	return e.listener
}

// State returns the current lifecycle state.
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Bind returns the resolved bind result, or nil before Start.
func (e *Engine) Bind() *BindResult {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	return e.bind
}

// LocalAddr returns the bound socket address, or the zero value before Start.
func (e *Engine) LocalAddr() netip.AddrPort {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.conn == nil {
		return netip.AddrPort{}
	}
	return e.conn.LocalAddr()
}

// Start opens the socket and launches the loop. On failure the engine stays
// Idle and the error is a *SocketBindError.
func (e *Engine) Start(ctx context.Context, spec BindSpec) error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	if e.State() != EngineIdle {
		return ErrAlreadyStarted
	}

	conn, res, err := e.opts.Listen(ctx, spec)
	if res != nil && res.Diagnostic != "" {
		e.listener.BindDiagnostic(res.Diagnostic)
	}
	if err != nil {
		var bindErr *SocketBindError
		if !errors.As(err, &bindErr) {
			err = &SocketBindError{Spec: spec, Err: err}
		}
		e.log.Error("Cannot open discovery socket", zap.Error(err))
		return err
	}

	e.conn = conn
	e.bind = res
	e.state.Store(int32(EngineRunning))
	e.log.Info("Discovery engine started",
		zap.Stringer("local", conn.LocalAddr()),
		zap.String("interface", spec.Interface),
	)

	go e.run()
	return nil
}

// Stop asks the loop to exit. The socket is closed by the loop within one
// receive timeout; use Done or Wait to observe it. Stopping an engine that
// never started moves it straight to Closed.
func (e *Engine) Stop() {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	switch e.State() {
	case EngineIdle:
		e.state.Store(int32(EngineClosed))
		close(e.done)
	case EngineRunning:
		e.stopping.Store(true)
		e.state.Store(int32(EngineStopping))
		// Cut the current read short.
		_ = e.conn.SetReadDeadline(time.Now())
	}
}

// Done is closed when the engine reaches Closed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the engine is Closed or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit hands a packet to the loop. It blocks while an earlier packet is
// still waiting or being sent, for at most the configured submit timeout.
func (e *Engine) Submit(ctx context.Context, out *Outbound) error {
	if e.State() != EngineRunning {
		return ErrEngineNotRunning
	}

	timer := time.NewTimer(e.opts.SubmitTimeout)
	defer timer.Stop()

	select {
	case e.slot <- struct{}{}:
	case <-e.done:
		return ErrEngineNotRunning
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrSubmitTimeout
	}

	// The slot holder is the only sender, and the loop empties the mailbox
	// before it frees the slot.
	e.mailbox <- out
	// Wake the loop if it is blocked in a read.
	_ = e.conn.SetReadDeadline(time.Now())
	return nil
}

func (e *Engine) run() {
	defer func() {
		if err := e.conn.Close(); err != nil {
			e.log.Debug("Socket close", zap.Error(err))
		}
		e.state.Store(int32(EngineClosed))
		close(e.done)
		e.log.Info("Discovery engine stopped")
	}()

	buf := make([]byte, receiveBufferSize)
	var pending *Outbound
	failures := 0

	for !e.stopping.Load() {
		if pending == nil {
			select {
			case pending = <-e.mailbox:
			default:
			}
		}

		if pending != nil {
			if e.send(pending, &failures) {
				pending = nil
				<-e.slot
			}
			continue
		}

		if !e.receive(buf) {
			return
		}
	}
}

// send writes one packet and reports whether the slot should be cleared.
func (e *Engine) send(out *Outbound, failures *int) bool {
	_, err := e.conn.WriteTo(out.Data, out.Dest)
	if err == nil {
		*failures = 0
		logging.LogPacket("sent", out.Dest.String(), out.Data)
		return true
	}

	*failures++
	dropped := *failures > e.opts.MaxSendFailures
	sendErr := &SendError{Dest: out.Dest, Attempts: *failures, Dropped: dropped, Err: err}
	e.log.Warn("Send failed",
		zap.Stringer("dest", out.Dest),
		zap.Int("attempt", *failures),
		zap.Error(err),
	)

	if out.ReportFailure {
		out.ReportFailure = false
		e.listener.SendFailed(sendErr)
	}
	if dropped {
		e.log.Warn("Dropping packet after repeated send failures", zap.Stringer("dest", out.Dest))
		*failures = 0
		return true
	}
	return false
}

// receive performs one bounded read. It returns false when the socket is
// no longer usable.
func (e *Engine) receive(buf []byte) bool {
	if err := e.conn.SetReadDeadline(time.Now().Add(e.opts.ReceiveTimeout)); err != nil {
		e.log.Debug("Cannot set read deadline", zap.Error(err))
	}

	n, src, err := e.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || isTimeout(err) {
			return true
		}
		if errors.Is(err, net.ErrClosed) {
			e.log.Warn("Discovery socket closed")
			return false
		}
		e.log.Debug("Receive error", zap.Error(err))
		time.Sleep(min(receiveErrorBackoff, e.opts.ReceiveTimeout))
		return true
	}

	data := buf[:n]
	logging.LogPacket("received", src.String(), data)

	pkt, err := protocol.Decode(data)
	if err != nil {
		e.log.Debug("Ignoring datagram", zap.Stringer("src", src), zap.Error(err))
		return true
	}

	rec := NewRecord(pkt, src)
	e.registry.Add(rec)
	e.log.Info("Node discovered",
		zap.String("addr", rec.Address()),
		zap.String("name", rec.NodeName()),
	)
	e.listener.DeviceDiscovered(rec)
	return true
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
