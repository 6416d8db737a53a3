// Package seqn implements C2: the totally-ordered (counter, node) sequence
// identifier, following the value-type/Compare idiom of the teacher's
// common.Hash (BytesToHash/Compare/Hex) applied to a pair instead of a
// byte array.
package seqn

import (
	"fmt"
	"strconv"
	"strings"
)

// Host is the opaque replica identity pair: network address and port.
// Equality and a deterministic ordering are required so the initial leader
// and SeqN ordering are well defined across replicas.
type Host struct {
	Addr string
	Port int
}

func (h Host) String() string {
	return fmt.Sprintf("%s:%d", h.Addr, h.Port)
}

// Compare returns -1, 0, 1 the way common.Hash.Compare does, ordering first
// by address then by port.
func (h Host) Compare(o Host) int {
	if h.Addr != o.Addr {
		if h.Addr < o.Addr {
			return -1
		}
		return 1
	}
	switch {
	case h.Port < o.Port:
		return -1
	case h.Port > o.Port:
		return 1
	default:
		return 0
	}
}

// SeqN is the (counter, node) pair. Total order: lexicographic by counter
// then by node's deterministic order.
type SeqN struct {
	Counter uint32
	Node    Host
}

// Increment returns a new SeqN with Counter+1 stamped with node.
func (s SeqN) Increment(node Host) SeqN {
	return SeqN{Counter: s.Counter + 1, Node: node}
}

// Compare returns -1, 0, 1 per the total order defined in §3.
func (s SeqN) Compare(o SeqN) int {
	switch {
	case s.Counter < o.Counter:
		return -1
	case s.Counter > o.Counter:
		return 1
	default:
		return s.Node.Compare(o.Node)
	}
}

// Less reports whether s orders strictly before o.
func (s SeqN) Less(o SeqN) bool { return s.Compare(o) < 0 }

// Greater reports whether s orders strictly after o.
func (s SeqN) Greater(o SeqN) bool { return s.Compare(o) > 0 }

// Equal reports whether s and o denote the same sequence position.
func (s SeqN) Equal(o SeqN) bool { return s.Compare(o) == 0 }

func (s SeqN) String() string {
	return fmt.Sprintf("(%d,%s)", s.Counter, s.Node)
}

// ParseHost parses an "addr:port" pair into a Host. Shared by config's
// membership parsing and transport's connection-identity handshake so both
// sides of a Host<->string round trip agree on one implementation.
func ParseHost(hostport string) (Host, error) {
	idx := strings.LastIndex(hostport, ":")
	if idx < 0 {
		return Host{}, fmt.Errorf("missing port in %q", hostport)
	}
	port, err := strconv.Atoi(hostport[idx+1:])
	if err != nil {
		return Host{}, fmt.Errorf("invalid port in %q: %w", hostport, err)
	}
	return Host{Addr: hostport[:idx], Port: port}, nil
}
