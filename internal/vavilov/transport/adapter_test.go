package transport

import (
	"testing"
	"time"

	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/wire"
)

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	base := 100 * time.Millisecond
	max := 500 * time.Millisecond

	if got := CalculateBackoff(0, base, max); got != base {
		t.Fatalf("attempt 0: expected %v, got %v", base, got)
	}
	if got := CalculateBackoff(10, base, max); got != max {
		t.Fatalf("attempt 10: expected capped %v, got %v", max, got)
	}
}

func TestSendRoundTripOverLoopback(t *testing.T) {
	received := make(chan wire.Kind, 1)
	var receivedPayload []byte
	var receivedFrom seqn.Host

	serverHost := seqn.Host{Addr: "127.0.0.1", Port: 19321}
	clientHost := seqn.Host{Addr: "127.0.0.1", Port: 19322}
	server := NewAdapter(DefaultConfig(), serverHost, func(kind wire.Kind, payload []byte, from seqn.Host) {
		receivedPayload = payload
		receivedFrom = from
		received <- kind
	})
	defer server.Close()
	if err := server.Listen(serverHost.String()); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	client := NewAdapter(DefaultConfig(), clientHost, nil)
	defer client.Close()
	if err := client.Connect(serverHost); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	frame := wire.Envelope(wire.KindCommit, []byte("hello"))
	if err := client.Send(serverHost, frame); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case kind := <-received:
		if kind != wire.KindCommit {
			t.Fatalf("expected KindCommit, got %v", kind)
		}
		if string(receivedPayload) != "hello" {
			t.Fatalf("expected payload %q, got %q", "hello", receivedPayload)
		}
		if receivedFrom != clientHost {
			t.Fatalf("expected frame attributed to client's real host %v, got %v", clientHost, receivedFrom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive frame in time")
	}
}

func TestAcceptedConnectionEmitsEventUpWithRealHost(t *testing.T) {
	serverHost := seqn.Host{Addr: "127.0.0.1", Port: 19331}
	clientHost := seqn.Host{Addr: "127.0.0.1", Port: 19332}

	server := NewAdapter(DefaultConfig(), serverHost, nil)
	defer server.Close()
	if err := server.Listen(serverHost.String()); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	client := NewAdapter(DefaultConfig(), clientHost, nil)
	defer client.Close()
	if err := client.Connect(serverHost); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-server.Events():
			if ev.Kind == EventUp {
				if ev.Host != clientHost {
					t.Fatalf("expected EventUp for client's real host %v, got %v", clientHost, ev.Host)
				}
				return
			}
		case <-deadline:
			t.Fatal("server did not observe EventUp for the accepted connection in time")
		}
	}
}

func TestSendWithoutConnectionReturnsTransportError(t *testing.T) {
	a := NewAdapter(DefaultConfig(), seqn.Host{Addr: "127.0.0.1", Port: 19333}, nil)
	defer a.Close()
	err := a.Send(seqn.Host{Addr: "nowhere", Port: 1}, []byte("x"))
	if err == nil {
		t.Fatal("expected TransportError for a host with no connection")
	}
}
