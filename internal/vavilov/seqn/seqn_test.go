package seqn

import "testing"

func TestHostCompare(t *testing.T) {
	a := Host{Addr: "10.0.0.1", Port: 9000}
	b := Host{Addr: "10.0.0.1", Port: 9001}
	c := Host{Addr: "10.0.0.2", Port: 9000}

	if a.Compare(a) != 0 {
		t.Fatal("expected equal hosts to compare 0")
	}
	if a.Compare(b) != -1 {
		t.Fatal("expected a < b by port")
	}
	if b.Compare(a) != 1 {
		t.Fatal("expected b > a by port")
	}
	if a.Compare(c) != -1 {
		t.Fatal("expected a < c by address")
	}
}

func TestSeqNIncrement(t *testing.T) {
	h := Host{Addr: "a", Port: 1}
	s := SeqN{Counter: 0, Node: h}
	next := s.Increment(h)
	if next.Counter != 1 {
		t.Fatalf("expected counter 1, got %d", next.Counter)
	}
	if s.Counter != 0 {
		t.Fatal("Increment must not mutate the receiver")
	}
}

func TestSeqNOrdering(t *testing.T) {
	h1 := Host{Addr: "a", Port: 1}
	h2 := Host{Addr: "b", Port: 1}

	s1 := SeqN{Counter: 1, Node: h2}
	s2 := SeqN{Counter: 2, Node: h1}
	if !s1.Less(s2) {
		t.Fatal("expected lower counter to order first regardless of node")
	}

	tie1 := SeqN{Counter: 5, Node: h1}
	tie2 := SeqN{Counter: 5, Node: h2}
	if !tie1.Less(tie2) {
		t.Fatal("expected tie-break by node ordering")
	}
	if !tie1.Equal(tie1) {
		t.Fatal("expected a SeqN to equal itself")
	}
}

func TestParseHostRoundTrips(t *testing.T) {
	h := Host{Addr: "127.0.0.1", Port: 7401}
	got, err := ParseHost(h.String())
	if err != nil {
		t.Fatalf("ParseHost: %v", err)
	}
	if got != h {
		t.Fatalf("expected %v, got %v", h, got)
	}
}

func TestParseHostRejectsMissingPort(t *testing.T) {
	if _, err := ParseHost("127.0.0.1"); err == nil {
		t.Fatal("expected error for hostport missing a port")
	}
}

func TestParseHostRejectsNonNumericPort(t *testing.T) {
	if _, err := ParseHost("127.0.0.1:abc"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestSeqNMonotonicSequence(t *testing.T) {
	h := Host{Addr: "a", Port: 1}
	cur := SeqN{Counter: 0, Node: h}
	prev := cur
	for i := 0; i < 5; i++ {
		cur = cur.Increment(h)
		if !cur.Greater(prev) {
			t.Fatal("expected each increment to strictly increase the sequence")
		}
		prev = cur
	}
}
