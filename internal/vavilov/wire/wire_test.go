package wire

import (
	"testing"

	"github.com/vavilov/consensus/internal/vavilov/batch"
	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
)

type cryptoSuite struct {
	sign   func([]byte) ([]byte, error)
	verify func(data, sig []byte, name string) bool
}

func (s *cryptoSuite) Sign(data []byte) ([]byte, error) { return s.sign(data) }
func (s *cryptoSuite) Verify(data, sig []byte, name string) bool {
	return s.verify(data, sig, name)
}

func newTestSuite(t *testing.T) *cryptoSuite {
	t.Helper()
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return &cryptoSuite{
		sign: func(data []byte) ([]byte, error) { return cryptoutil.Sign(data, priv) },
		verify: func(data, sig []byte, name string) bool {
			return cryptoutil.Verify(data, sig, &priv.PublicKey)
		},
	}
}

func sampleKey() batch.BatchKey {
	return batch.BatchKey{
		OpsHash: cryptoutil.Hash([]byte("block-x")),
		SeqN:    seqn.SeqN{Counter: 1, Node: seqn.Host{Addr: "a", Port: 9000}},
		View:    1,
	}
}

func TestPrePrepareSignAndVerify(t *testing.T) {
	suite := newTestSuite(t)
	m, err := NewPrePrepare(sampleKey(), []byte("block-x"), "node-a", suite)
	if err != nil {
		t.Fatalf("NewPrePrepare: %v", err)
	}
	k, ok := VerifyPrePrepare(m, suite)
	if !ok {
		t.Fatal("expected signature to verify")
	}
	if k != sampleKey() {
		t.Fatalf("decoded batch key mismatch: got %+v want %+v", k, sampleKey())
	}
}

func TestPrePrepareForgedSignatureRejected(t *testing.T) {
	suite := newTestSuite(t)
	m, _ := NewPrePrepare(sampleKey(), []byte("block-x"), "node-a", suite)
	m.Signature = []byte("not a real signature")
	if _, ok := VerifyPrePrepare(m, suite); ok {
		t.Fatal("expected forged signature to fail verification")
	}
}

func TestPrepareCommitRoundTrip(t *testing.T) {
	suite := newTestSuite(t)
	k := sampleKey()

	prep, err := NewPrepare(k, "node-b", suite)
	if err != nil {
		t.Fatalf("NewPrepare: %v", err)
	}
	if _, ok := VerifyPrepare(prep, suite); !ok {
		t.Fatal("expected prepare signature to verify")
	}

	commit, err := NewCommit(k, "node-b", suite)
	if err != nil {
		t.Fatalf("NewCommit: %v", err)
	}
	if _, ok := VerifyCommit(commit, suite); !ok {
		t.Fatal("expected commit signature to verify")
	}
}

func TestEnvelopeCodecRoundTrip(t *testing.T) {
	suite := newTestSuite(t)
	m, _ := NewPrePrepare(sampleKey(), []byte("payload"), "node-a", suite)

	framed, err := EncodePrePrepare(m)
	if err != nil {
		t.Fatalf("EncodePrePrepare: %v", err)
	}
	kind, payload, err := SplitEnvelope(framed)
	if err != nil {
		t.Fatalf("SplitEnvelope: %v", err)
	}
	if kind != KindPrePrepare {
		t.Fatalf("expected kind PrePrepare, got %v", kind)
	}
	decoded, err := DecodePrePrepare(payload)
	if err != nil {
		t.Fatalf("DecodePrePrepare: %v", err)
	}
	if string(decoded.Operation) != "payload" {
		t.Fatalf("decoded operation mismatch: %q", decoded.Operation)
	}
	if _, ok := VerifyPrePrepare(decoded, suite); !ok {
		t.Fatal("expected decoded message signature to still verify")
	}
}

func TestSplitEnvelopeRejectsShortFrame(t *testing.T) {
	if _, _, err := SplitEnvelope([]byte{1, 2}); err == nil {
		t.Fatal("expected error for a too-short frame")
	}
}

func TestSplitEnvelopeRejectsLengthMismatch(t *testing.T) {
	frame := Envelope(KindCommit, []byte("hello"))
	frame[4] = 0xFF
	if _, _, err := SplitEnvelope(frame); err == nil {
		t.Fatal("expected error for a length-mismatched frame")
	}
}
