// Package transport implements C7: the authenticated point-to-point
// channel adapter the engine treats as an external collaborator (§1),
// grounded on internal/icenet/connection/{manager,types,rate_limiter}.go.
package transport

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/vavilov/consensus/internal/vavilov/seqn"
)

// State mirrors the teacher's ConnectionState enum.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// EventKind is the set of connection-lifecycle events C7 exposes per §4.7.
type EventKind int

const (
	EventUp EventKind = iota
	EventDown
	EventFailed
)

func (e EventKind) String() string {
	switch e {
	case EventUp:
		return "up"
	case EventDown:
		return "down"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to the engine's event loop on a connection transition.
type Event struct {
	Kind EventKind
	Host seqn.Host
}

// Connection is one authenticated point-to-point channel to a peer. ID
// replaces the teacher's ad hoc generateConnectionID() (fmt.Sprintf("conn_%d",
// time.Now().UnixNano())) with a uuid.New() value, the same identifier
// the rate limiter keys its per-connection bucket on.
type Connection struct {
	ID        string
	Host      seqn.Host
	Conn      net.Conn
	State     State
	Outgoing  bool
	CreatedAt time.Time
	LastSeen  time.Time
}

func newConnectionID() string {
	return uuid.New().String()
}

// Config carries the tunables the teacher exposes via
// connection.ConnectionConfig, trimmed to what C7 needs.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	MaxRetries   int

	// MaxMessagesPerSecond and RateLimitBurst feed RateLimiter, guarding
	// handleInbound's read loop against a Byzantine peer flooding frames.
	// Zero MaxMessagesPerSecond disables rate limiting.
	MaxMessagesPerSecond int
	RateLimitBurst       int
}

// DefaultConfig mirrors DefaultConnectionConfig's values where §6 does not
// override them via reconnect_time/leader_timeout.
func DefaultConfig() Config {
	return Config{
		DialTimeout:          10 * time.Second,
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         5 * time.Second,
		ReconnectMin:         time.Second,
		ReconnectMax:         30 * time.Second,
		MaxRetries:           0, // 0 = Dial retries indefinitely
		MaxMessagesPerSecond: 200,
		RateLimitBurst:       50,
	}
}

// CalculateBackoff is the exponential backoff calculation in
// internal/icenet/connection/manager.go, reused verbatim: base * 2^attempt,
// capped at max.
func CalculateBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
