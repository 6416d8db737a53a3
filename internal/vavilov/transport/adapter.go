package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vavilov/consensus/internal/vavilov/logger"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/timer"
	"github.com/vavilov/consensus/internal/vavilov/vaverr"
	"github.com/vavilov/consensus/internal/vavilov/wire"
)

var logTransport = logger.Named("transport")

// kindHandshake is a transport-internal frame kind, never seen by wire's
// signature verification: the first frame the dialing side (Connect) sends
// on a connection, announcing the sender's seqn.Host so the accepting side of a
// Listen/acceptLoop connection learns real peer identity instead of the
// ephemeral net.Conn.RemoteAddr() client port.
const kindHandshake wire.Kind = 0

// Handler is invoked once per inbound frame, after length-framing but
// before any signature check — C8 owns signature verification. host is the
// peer the frame arrived from.
type Handler func(kind wire.Kind, payload []byte, host seqn.Host)

// Adapter is the authenticated point-to-point channel adapter. It owns one
// long-lived net.Conn per peer. Dial retries a failed dial with exponential
// backoff; a connection that later goes Down is not re-dialed by the
// Adapter itself (ScheduleReconnect only arms a timer, see below).
type Adapter struct {
	mu      sync.Mutex
	conns   map[seqn.Host]*Connection
	self    seqn.Host
	cfg     Config
	handler Handler
	events  chan Event
	timers  *timer.Wheel
	limiter *RateLimiter
	ctx     context.Context
	cancel  context.CancelFunc

	listener net.Listener
}

// NewAdapter builds an Adapter. self is the identity this replica announces
// to peers over the connection handshake. handler receives every
// successfully framed inbound message; events receives Up/Down/Failed
// transitions for the engine's leader-liveness and reconnect bookkeeping.
func NewAdapter(cfg Config, self seqn.Host, handler Handler) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		conns:   make(map[seqn.Host]*Connection),
		self:    self,
		cfg:     cfg,
		handler: handler,
		events:  make(chan Event, 64),
		timers:  timer.New(64),
		limiter: NewRateLimiter(cfg.MaxMessagesPerSecond, cfg.RateLimitBurst),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the connection-lifecycle event channel.
func (a *Adapter) Events() <-chan Event { return a.events }

// Listen opens the inbound TCP listener, grounded on
// connection.Manager.Start/acceptConnections.
func (a *Adapter) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return vaverr.NewTransportError("listen", addr, err)
	}
	a.listener = l
	go a.acceptLoop(l)
	return nil
}

func (a *Adapter) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return
			default:
				logTransport.Warnw("accept failed", "err", err)
				continue
			}
		}
		go a.handleAccepted(conn)
	}
}

// handleAccepted reads the peer's identity handshake before the connection
// is usable, then registers it and hands it to the shared read loop. This
// is what makes readFrames' host argument the real sender instead of
// seqn.Host{} for every accepted connection.
func (a *Adapter) handleAccepted(conn net.Conn) {
	reader := bufio.NewReader(conn)
	host, err := readHandshake(reader)
	if err != nil {
		logTransport.Warnw("handshake read failed", "err", err, "remote", conn.RemoteAddr())
		conn.Close()
		return
	}
	a.register(host, conn, false)
	a.emit(Event{Kind: EventUp, Host: host})
	a.readFrames(reader, conn, host)
}

// Connect dials host, sends this replica's identity handshake, and
// registers the connection. It is the non-retrying primitive; Dial wraps it with backoff.
func (a *Adapter) Connect(host seqn.Host) error {
	dialer := &net.Dialer{Timeout: a.cfg.DialTimeout}
	conn, err := dialer.DialContext(a.ctx, "tcp", host.String())
	if err != nil {
		return vaverr.NewTransportError("connect", host.String(), err)
	}
	if _, err := conn.Write(wire.Envelope(kindHandshake, []byte(a.self.String()))); err != nil {
		conn.Close()
		return vaverr.NewTransportError("connect", host.String(), err)
	}
	a.register(host, conn, true)
	a.emit(Event{Kind: EventUp, Host: host})
	go a.handleInbound(conn, host)
	return nil
}

// readHandshake consumes the framed handshake sent by Connect (5-byte
// header, then the payload) and decodes the announced seqn.Host.
func readHandshake(reader *bufio.Reader) (seqn.Host, error) {
	header := make([]byte, 5)
	if _, err := readFull(reader, header); err != nil {
		return seqn.Host{}, err
	}
	kind := wire.Kind(header[0])
	if kind != kindHandshake {
		return seqn.Host{}, fmt.Errorf("expected handshake frame, got kind %s", kind)
	}
	n := binary.BigEndian.Uint32(header[1:5])
	payload := make([]byte, n)
	if _, err := readFull(reader, payload); err != nil {
		return seqn.Host{}, err
	}
	return seqn.ParseHost(string(payload))
}

// Dial connects with exponential backoff, sleeping CalculateBackoff's delay
// between failed attempts, grounded on
// connection.Manager.ConnectWithRetry/CalculateBackoff.
func (a *Adapter) Dial(host seqn.Host) {
	attempt := 0
	for {
		if err := a.Connect(host); err == nil {
			return
		}
		attempt++
		if a.cfg.MaxRetries > 0 && attempt >= a.cfg.MaxRetries {
			a.emit(Event{Kind: EventFailed, Host: host})
			return
		}
		delay := CalculateBackoff(attempt-1, a.cfg.ReconnectMin, a.cfg.ReconnectMax)
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// ScheduleReconnect arms a one-shot ReconnectTimer for host after
// RECONNECT_TIME, the action the engine takes on Down/Failed per §4.7. The
// firing is delivered on TimerFired only; nothing re-dials host when it
// fires.
func (a *Adapter) ScheduleReconnect(host seqn.Host, after time.Duration) timer.ID {
	return a.timers.ScheduleOnce("ReconnectTimer:"+host.String(), after)
}

// TimerFired returns the channel that delivers reconnect-timer firings.
func (a *Adapter) TimerFired() <-chan timer.Fired { return a.timers.Fired() }

func (a *Adapter) register(host seqn.Host, conn net.Conn, outgoing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conns[host] = &Connection{
		ID: newConnectionID(), Host: host, Conn: conn, State: StateConnected, Outgoing: outgoing,
		CreatedAt: time.Now(), LastSeen: time.Now(),
	}
}

func (a *Adapter) emit(ev Event) {
	select {
	case a.events <- ev:
	default:
		logTransport.Warnw("event channel full, dropping", "kind", ev.Kind, "host", ev.Host)
	}
}

// handleInbound reads length-framed messages off conn until it closes,
// dispatching each to Handler. On close it emits Down and drops the
// connection; the engine is responsible for calling ScheduleReconnect.
func (a *Adapter) handleInbound(conn net.Conn, host seqn.Host) {
	a.readFrames(bufio.NewReader(conn), conn, host)
}

// readFrames is the shared per-frame dispatch loop, entered directly by the
// dial side (handleInbound) and, after the handshake read, by the accept
// side (handleAccepted) — both paths now carry the real peer host.
func (a *Adapter) readFrames(reader *bufio.Reader, conn net.Conn, host seqn.Host) {
	connID := a.connID(host)
	defer a.limiter.Remove(connID)
	for {
		header := make([]byte, 5)
		if _, err := readFull(reader, header); err != nil {
			a.closeConn(host, conn)
			return
		}
		kind := wire.Kind(header[0])
		n := binary.BigEndian.Uint32(header[1:5])
		payload := make([]byte, n)
		if _, err := readFull(reader, payload); err != nil {
			a.closeConn(host, conn)
			return
		}
		if !a.limiter.Allow(connID) {
			logTransport.Warnw("rate limit exceeded, dropping frame", "host", host, "kind", kind)
			continue
		}
		if a.handler != nil {
			a.handler(kind, payload, host)
		}
	}
}

func (a *Adapter) connID(host seqn.Host) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.conns[host]; ok {
		return c.ID
	}
	return host.String()
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (a *Adapter) closeConn(host seqn.Host, conn net.Conn) {
	conn.Close()
	a.mu.Lock()
	delete(a.conns, host)
	a.mu.Unlock()
	a.emit(Event{Kind: EventDown, Host: host})
}

// Send writes a framed message to host's connection. Returns
// *vaverr.TransportError if no connection is currently established.
func (a *Adapter) Send(host seqn.Host, frame []byte) error {
	a.mu.Lock()
	c, ok := a.conns[host]
	a.mu.Unlock()
	if !ok || !c.IsUsable() {
		return vaverr.NewTransportError("send", host.String(), fmt.Errorf("no connection"))
	}
	if a.cfg.WriteTimeout > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
	}
	if _, err := c.Conn.Write(frame); err != nil {
		a.closeConn(host, c.Conn)
		return vaverr.NewTransportError("send", host.String(), err)
	}
	return nil
}

// Broadcast writes a framed message to every connected peer in hosts.
func (a *Adapter) Broadcast(hosts []seqn.Host, frame []byte) {
	for _, h := range hosts {
		if err := a.Send(h, frame); err != nil {
			logTransport.Warnw("broadcast send failed", "host", h, "err", err)
		}
	}
}

// IsUsable reports whether the connection is open for writes.
func (c *Connection) IsUsable() bool {
	return c != nil && c.Conn != nil && c.State == StateConnected
}

// Close shuts down the listener and every outstanding connection.
func (a *Adapter) Close() error {
	a.cancel()
	a.timers.Stop()
	a.limiter.Stop()
	if a.listener != nil {
		a.listener.Close()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.conns {
		c.Conn.Close()
	}
	return nil
}
