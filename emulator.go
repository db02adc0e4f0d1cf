// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultMaxPacketSize is the largest UDP payload an [Emulator] relays by
// default, chosen to stay under the common internet path MTU after
// IPv4/UDP headers.
const DefaultMaxPacketSize = 508

// DefaultBufferBatchSize is the number of [Buffer] values a [Pool]
// allocates at once when it runs dry.
const DefaultBufferBatchSize = 16

// maxReadsPerTick bounds how many datagrams a single ingress step drains
// from the socket, so one very chatty instance cannot starve the other
// registered instances' turn on the shared reactor goroutine.
const maxReadsPerTick = 64

// Emulator relays UDP datagrams between exactly two peers through a
// single bound local socket, scheduling each delivery under a [Policy]
// and draining it once its deadline elapses. Construct with [New], then
// call [Emulator.Start] to bind the socket and join the shared reactor.
type Emulator struct {
	local         Endpoint
	peerA         Endpoint
	peerB         Endpoint
	maxPacketSize int
	rcvBuf        int

	pool    *Pool
	queue   *deliveryQueue
	policy  Policy
	logger  Logger
	trace   *PacketTrace
	scratch []int64

	conn    *net.UDPConn
	started bool
	stopped bool
}

// emulatorConfig accumulates [Option] values before [New] builds the
// [*Emulator], keeping the public option funcs separate from the private
// config struct they mutate.
type emulatorConfig struct {
	maxPacketSize int
	batchSize     int
	rcvBuf        int
	policy        Policy
	trace         *PacketTrace
	logger        Logger
}

// Option configures an [Emulator] at construction time.
type Option func(cfg *emulatorConfig)

// WithMaxPacketSize overrides [DefaultMaxPacketSize].
func WithMaxPacketSize(n int) Option {
	return func(cfg *emulatorConfig) { cfg.maxPacketSize = n }
}

// WithBufferBatchSize overrides [DefaultBufferBatchSize].
func WithBufferBatchSize(n int) Option {
	return func(cfg *emulatorConfig) { cfg.batchSize = n }
}

// WithReceiveBufferSize requests a kernel SO_RCVBUF size for the bound
// socket. Zero (the default) leaves the kernel's default in place.
func WithReceiveBufferSize(n int) Option {
	return func(cfg *emulatorConfig) { cfg.rcvBuf = n }
}

// WithPolicy sets the [Policy] used to compute delivery deadlines. The
// default is an immediate pass-through policy that neither delays,
// drops, nor duplicates anything; see the impair subpackage for richer
// policies such as loss/jitter/duplication and bandwidth modeling.
func WithPolicy(p Policy) Option {
	return func(cfg *emulatorConfig) { cfg.policy = p }
}

// WithPacketTrace attaches a [*PacketTrace] that captures every relayed
// datagram. Purely diagnostic; never consulted by the relay logic.
func WithPacketTrace(t *PacketTrace) Option {
	return func(cfg *emulatorConfig) { cfg.trace = t }
}

// WithLogger overrides the default apex/log-backed [Logger].
func WithLogger(l Logger) Option {
	return func(cfg *emulatorConfig) { cfg.logger = l }
}

// New constructs an [*Emulator] bound to local, relaying datagrams
// between exactly peerA and peerB. The socket is not opened until
// [Emulator.Start] is called.
func New(local, peerA, peerB Endpoint, opts ...Option) *Emulator {
	cfg := &emulatorConfig{
		maxPacketSize: DefaultMaxPacketSize,
		batchSize:     DefaultBufferBatchSize,
		logger:        defaultLogger,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.policy == nil {
		cfg.policy = passthroughPolicy{}
	}
	return &Emulator{
		local:         local,
		peerA:         peerA,
		peerB:         peerB,
		maxPacketSize: cfg.maxPacketSize,
		rcvBuf:        cfg.rcvBuf,
		pool:          NewPool(cfg.maxPacketSize, cfg.batchSize),
		queue:         newDeliveryQueue(),
		policy:        cfg.policy,
		logger:        cfg.logger,
		trace:         cfg.trace,
	}
}

// Start binds the local UDP socket, applies per-OS socket tuning, and
// registers the instance with the process-wide shared reactor. Calling
// Start more than once is a no-op; calling it after [Emulator.Stop]
// returns [ErrChannelClosed].
func (e *Emulator) Start() error {
	if e.stopped {
		return ErrChannelClosed
	}
	if e.started {
		return nil
	}
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(e.local))
	if err != nil {
		return fmt.Errorf("jnetemu: listen on %s: %w", e.local, err)
	}
	if err := tuneSocket(conn, e.rcvBuf); err != nil {
		e.logger.Warnf("jnetemu: socket tuning on %s failed: %v", e.local, err)
	}
	e.conn = conn
	e.started = true
	reactorRegister(e)
	e.logger.Debugf("jnetemu: instance registered on %s", e.local)
	return nil
}

// Stop deregisters the instance from the shared reactor and closes its
// socket (and its packet trace, if any). When this was the last registered
// instance it also blocks until the reactor goroutine has exited; otherwise
// it does not wait for the reactor. If ctx is done first it returns
// [ErrInterrupted]. Stop is
// idempotent; instances are not restartable after it returns.
func (e *Emulator) Stop(ctx context.Context) error {
	if !e.started || e.stopped {
		return nil
	}
	e.stopped = true
	reactorJoin := reactorUnregister(e)
	e.logger.Debugf("jnetemu: instance deregistered on %s", e.local)

	done := make(chan error, 1)
	go func() {
		err := e.conn.Close()
		if e.trace != nil {
			if terr := e.trace.Close(); terr != nil && err == nil {
				err = terr
			}
		}
		if reactorJoin != nil {
			<-reactorJoin
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrInterrupted
	}
}

// LocalAddr returns the endpoint actually bound by [Emulator.Start], which
// may differ from the endpoint passed to [New] when its port was 0.
// Before Start it returns that constructor argument unchanged.
func (e *Emulator) LocalAddr() Endpoint {
	if e.conn == nil {
		return e.local
	}
	return e.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// tick runs one ingress step followed by one egress step, both bounded by
// the same clock sample. Called by the shared reactor goroutine; never
// called concurrently for the same instance. A non-nil return is a fatal,
// non-benign I/O error: the reactor goroutine logs it and exits entirely,
// leaving every registered instance unserviced until stopped.
func (e *Emulator) tick(nowMS int64) error {
	if e.stopped || e.conn == nil {
		return nil
	}
	if err := e.ingress(e.conn, nowMS); err != nil {
		return err
	}
	return e.egress(e.conn, nowMS)
}

// ingress drains up to [maxReadsPerTick] datagrams from conn without
// blocking, scheduling each for delivery under the configured [Policy]. A
// benign race (nothing to read, or the socket closing mid-iteration) ends
// the drain normally; any other read error is returned as fatal.
func (e *Emulator) ingress(conn *net.UDPConn, nowMS int64) error {
	past := time.Unix(0, 0)
	for i := 0; i < maxReadsPerTick; i++ {
		buf := e.pool.Acquire()
		if err := conn.SetReadDeadline(past); err != nil {
			e.pool.Release(buf)
			if isBenignRace(err) {
				return nil
			}
			return fmt.Errorf("jnetemu: set read deadline on %s: %w", e.local, err)
		}
		n, addr, err := conn.ReadFromUDP(buf.v)
		if err != nil {
			e.pool.Release(buf)
			if isBenignRace(err) {
				return nil
			}
			return fmt.Errorf("jnetemu: read on %s: %w", e.local, err)
		}
		buf.setLen(n)
		e.schedule(buf, addr.AddrPort(), nowMS)
	}
	return nil
}

// schedule routes one ingress datagram to the peer it did not come from,
// consults the policy for its delivery deadline(s), and pushes the
// resulting entries onto the delivery queue. An empty policy result drops
// the datagram; more than one deadline duplicates it.
func (e *Emulator) schedule(buf *Buffer, src Endpoint, nowMS int64) {
	var dst Endpoint
	switch src {
	case e.peerA:
		dst = e.peerB
	case e.peerB:
		dst = e.peerA
	default:
		e.logger.Warnf("jnetemu: datagram from unregistered peer %s on %s", src, e.local)
		e.pool.Release(buf)
		return
	}

	pending := e.queue.snapshot()
	e.scratch = e.policy.Compute(nowMS, pending, e.scratch[:0])

	if len(e.scratch) == 0 {
		e.pool.Release(buf)
		return
	}

	dup := &dupCounter{n: len(e.scratch)}
	for _, deadline := range e.scratch {
		e.queue.push(&scheduled{
			deadlineMS:  deadline,
			source:      src,
			destination: dst,
			buf:         buf,
			dup:         dup,
		})
	}
}

// egress drains every entry whose deadline has elapsed by nowMS and
// writes it to its destination without blocking. A write that the kernel
// refuses (a benign race: a full send buffer surfaces as our past write
// deadline expiring, or the socket closing mid-iteration) keeps its place
// in the queue and is retried on a later tick; the drain stops there, so a
// later, later-deadline entry never jumps ahead of one still waiting to be
// sent. Any other write error is returned as fatal.
func (e *Emulator) egress(conn *net.UDPConn, nowMS int64) error {
	past := time.Unix(0, 0)
	if err := conn.SetWriteDeadline(past); err != nil {
		if isBenignRace(err) {
			return nil
		}
		return fmt.Errorf("jnetemu: set write deadline on %s: %w", e.local, err)
	}
	for {
		entry := e.queue.peek()
		if entry == nil || !entry.isReady(nowMS) {
			return nil
		}
		e.queue.pop()

		_, err := conn.WriteToUDP(entry.buf.Bytes(), net.UDPAddrFromAddrPort(entry.destination))
		if err != nil {
			if isBenignRace(err) {
				e.queue.push(entry)
				return nil
			}
			if entry.dup.release() {
				e.pool.Release(entry.buf)
			}
			return fmt.Errorf("jnetemu: write on %s: %w", e.local, err)
		}
		if e.trace != nil {
			e.trace.Dump(entry.buf.Bytes(), entry.source, entry.destination)
		}
		if entry.dup.release() {
			e.pool.Release(entry.buf)
		}
	}
}

// passthroughPolicy is the zero-configuration [Policy] used when [New] is
// not given one via [WithPolicy]: every packet is delivered exactly once,
// as soon as the reactor notices it, with no delay, loss, or duplication.
// It lives in this package (rather than in impair, alongside the richer
// policies) so the core has no default-policy import cycle on its own
// external-collaborator subpackage.
type passthroughPolicy struct{}

func (passthroughPolicy) Compute(nowMS int64, pending PendingView, out []int64) []int64 {
	return append(out, nowMS)
}
