// Package wire implements C6: the three PBFT message records and their
// signed, canonical codec, grounded on internal/cerera/network/msg.go's
// header-prefixed envelope (ComposeMsg/SplitMsg) and on the
// VotingMessage.SignBytes pattern in internal/icenet/consensus/voting.go
// (clone the message, strip the signature, marshal that for sign/verify).
package wire

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vavilov/consensus/internal/vavilov/batch"
	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
)

// Kind is the message-id byte distinguishing the three wire records.
type Kind byte

const (
	KindPrePrepare Kind = 1
	KindPrepare    Kind = 2
	KindCommit     Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindPrePrepare:
		return "PrePrepare"
	case KindPrepare:
		return "Prepare"
	case KindCommit:
		return "Commit"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// batchKeyWire is the wire-level encoding of batch.BatchKey: fixed field
// order so canonical encoding is reproducible across replicas.
type batchKeyWire struct {
	OpsHash     string `json:"opsHash"`
	SeqCounter  uint32 `json:"seqCounter"`
	SeqNodeAddr string `json:"seqNodeAddr"`
	SeqNodePort int    `json:"seqNodePort"`
	View        uint32 `json:"view"`
}

func toWireKey(k batch.BatchKey) batchKeyWire {
	return batchKeyWire{
		OpsHash:     k.OpsHash.String(),
		SeqCounter:  k.SeqN.Counter,
		SeqNodeAddr: k.SeqN.Node.Addr,
		SeqNodePort: k.SeqN.Node.Port,
		View:        k.View,
	}
}

func (w batchKeyWire) toBatchKey() (batch.BatchKey, error) {
	raw, err := hex.DecodeString(w.OpsHash)
	if err != nil {
		return batch.BatchKey{}, fmt.Errorf("decode opsHash: %w", err)
	}
	var digest cryptoutil.Digest
	if len(raw) != len(digest) {
		return batch.BatchKey{}, fmt.Errorf("decode opsHash: expected %d bytes, got %d", len(digest), len(raw))
	}
	copy(digest[:], raw)
	return batch.BatchKey{
		OpsHash: digest,
		SeqN: seqn.SeqN{
			Counter: w.SeqCounter,
			Node:    seqn.Host{Addr: w.SeqNodeAddr, Port: w.SeqNodePort},
		},
		View: w.View,
	}, nil
}

// PrePrepareMsg carries the batch key and the operation payload, signed by
// the leader.
type PrePrepareMsg struct {
	BatchKey   batchKeyWire `json:"batchKey"`
	Operation  []byte       `json:"operation"`
	CryptoName string       `json:"cryptoName"`
	Signature  []byte       `json:"signature,omitempty"`
}

// PrepareMsg carries only the batch key; Reserved is always 0 per §6.
type PrepareMsg struct {
	BatchKey   batchKeyWire `json:"batchKey"`
	Reserved   uint32       `json:"reserved"`
	CryptoName string       `json:"cryptoName"`
	Signature  []byte       `json:"signature,omitempty"`
}

// CommitMsg carries only the batch key; Reserved is always 0 per §6.
type CommitMsg struct {
	BatchKey   batchKeyWire `json:"batchKey"`
	Reserved   uint32       `json:"reserved"`
	CryptoName string       `json:"cryptoName"`
	Signature  []byte       `json:"signature,omitempty"`
}

func (m *PrePrepareMsg) String() string { b, _ := json.MarshalIndent(m, "", "  "); return string(b) }
func (m *PrepareMsg) String() string    { b, _ := json.MarshalIndent(m, "", "  "); return string(b) }
func (m *CommitMsg) String() string     { b, _ := json.MarshalIndent(m, "", "  "); return string(b) }

// signBytes returns the canonical byte sequence to sign/verify: the JSON
// encoding of every field except Signature, in the struct's fixed
// declaration order.
func signBytesPrePrepare(m PrePrepareMsg) []byte {
	m.Signature = nil
	b, _ := json.Marshal(m)
	return b
}

func signBytesPrepare(m PrepareMsg) []byte {
	m.Signature = nil
	b, _ := json.Marshal(m)
	return b
}

func signBytesCommit(m CommitMsg) []byte {
	m.Signature = nil
	b, _ := json.Marshal(m)
	return b
}

// NewPrePrepare builds and signs a PrePrepare for k carrying operation.
func NewPrePrepare(k batch.BatchKey, operation []byte, cryptoName string, priv Signer) (*PrePrepareMsg, error) {
	m := PrePrepareMsg{BatchKey: toWireKey(k), Operation: operation, CryptoName: cryptoName}
	sig, err := priv.Sign(signBytesPrePrepare(m))
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return &m, nil
}

// NewPrepare builds and signs a Prepare for k.
func NewPrepare(k batch.BatchKey, cryptoName string, priv Signer) (*PrepareMsg, error) {
	m := PrepareMsg{BatchKey: toWireKey(k), Reserved: 0, CryptoName: cryptoName}
	sig, err := priv.Sign(signBytesPrepare(m))
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return &m, nil
}

// NewCommit builds and signs a Commit for k.
func NewCommit(k batch.BatchKey, cryptoName string, priv Signer) (*CommitMsg, error) {
	m := CommitMsg{BatchKey: toWireKey(k), Reserved: 0, CryptoName: cryptoName}
	sig, err := priv.Sign(signBytesCommit(m))
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return &m, nil
}

// Signer abstracts the C1 signing operation so the wire package does not
// import crypto.PrivateKey types directly.
type Signer interface {
	Sign(data []byte) ([]byte, error)
}

// Verifier abstracts the C1 verification + truststore lookup used to
// authenticate an inbound message.
type Verifier interface {
	Verify(data, sig []byte, cryptoName string) bool
}

// VerifyPrePrepare checks m's signature and returns its decoded BatchKey.
func VerifyPrePrepare(m *PrePrepareMsg, v Verifier) (batch.BatchKey, bool) {
	k, err := m.BatchKey.toBatchKey()
	if err != nil {
		return batch.BatchKey{}, false
	}
	ok := v.Verify(signBytesPrePrepare(*m), m.Signature, m.CryptoName)
	return k, ok
}

// VerifyPrepare checks m's signature and returns its decoded BatchKey.
func VerifyPrepare(m *PrepareMsg, v Verifier) (batch.BatchKey, bool) {
	k, err := m.BatchKey.toBatchKey()
	if err != nil {
		return batch.BatchKey{}, false
	}
	ok := v.Verify(signBytesPrepare(*m), m.Signature, m.CryptoName)
	return k, ok
}

// VerifyCommit checks m's signature and returns its decoded BatchKey.
func VerifyCommit(m *CommitMsg, v Verifier) (batch.BatchKey, bool) {
	k, err := m.BatchKey.toBatchKey()
	if err != nil {
		return batch.BatchKey{}, false
	}
	ok := v.Verify(signBytesCommit(*m), m.Signature, m.CryptoName)
	return k, ok
}

// Envelope composes a header-prefixed wire frame: a 1-byte kind, a 4-byte
// big-endian payload length, then the JSON payload — the same
// length-prefixed shape as ComposeMsg/SplitMsg in the teacher's
// internal/cerera/network/msg.go, simplified to a fixed 5-byte header since
// the signature already travels inside the JSON payload here.
func Envelope(kind Kind, payload []byte) []byte {
	header := make([]byte, 5)
	header[0] = byte(kind)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	return append(header, payload...)
}

// SplitEnvelope reverses Envelope, returning the kind and payload.
func SplitEnvelope(frame []byte) (Kind, []byte, error) {
	if len(frame) < 5 {
		return 0, nil, fmt.Errorf("envelope too short: %d bytes", len(frame))
	}
	kind := Kind(frame[0])
	n := binary.BigEndian.Uint32(frame[1:5])
	if int(n) != len(frame)-5 {
		return 0, nil, fmt.Errorf("envelope length mismatch: header says %d, have %d", n, len(frame)-5)
	}
	return kind, frame[5:], nil
}

// EncodePrePrepare marshals m to a framed envelope ready for transport.
func EncodePrePrepare(m *PrePrepareMsg) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Envelope(KindPrePrepare, b), nil
}

// DecodePrePrepare unmarshals a PrePrepareMsg from a JSON payload (post
// SplitEnvelope).
func DecodePrePrepare(payload []byte) (*PrePrepareMsg, error) {
	var m PrePrepareMsg
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodePrepare marshals m to a framed envelope ready for transport.
func EncodePrepare(m *PrepareMsg) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Envelope(KindPrepare, b), nil
}

// DecodePrepare unmarshals a PrepareMsg from a JSON payload.
func DecodePrepare(payload []byte) (*PrepareMsg, error) {
	var m PrepareMsg
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeCommit marshals m to a framed envelope ready for transport.
func EncodeCommit(m *CommitMsg) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Envelope(KindCommit, b), nil
}

// DecodeCommit unmarshals a CommitMsg from a JSON payload.
func DecodeCommit(payload []byte) (*CommitMsg, error) {
	var m CommitMsg
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
