// Package batch implements C5: the per-slot prepare/commit ledger keyed by
// BatchKey = (opsHash, seqN, view), grounded on the RoundState/RoundKey
// pattern in the teacher's internal/icenet/consensus/state.go — but
// deliberately NOT deduplicated by sender. §9 note 1 marks that dedup as a
// known, inherited-from-source defect this spec specifies observably rather
// than silently fixing: a Byzantine replica sending multiple Prepares for
// the same slot will inflate prepareCount here.
package batch

import (
	"fmt"
	"sync"

	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/vaverr"
)

// BatchKey identifies a consensus slot.
type BatchKey struct {
	OpsHash cryptoutil.Digest
	SeqN    seqn.SeqN
	View    uint32
}

func (k BatchKey) String() string {
	return fmt.Sprintf("%s/%s/v%d", k.OpsHash, k.SeqN, k.View)
}

// Hash returns the content-addressing digest of the key, the value the
// ledger is actually keyed on (hash(BatchKey) per §3).
func (k BatchKey) Hash() cryptoutil.Digest {
	counterBytes := []byte{
		byte(k.SeqN.Counter >> 24), byte(k.SeqN.Counter >> 16),
		byte(k.SeqN.Counter >> 8), byte(k.SeqN.Counter),
	}
	viewBytes := []byte{byte(k.View >> 24), byte(k.View >> 16), byte(k.View >> 8), byte(k.View)}
	return cryptoutil.Hash(k.OpsHash[:], counterBytes, []byte(k.SeqN.Node.String()), viewBytes)
}

// Entry is a slot ledger entry. Once Committed is set it is never mutated
// again; destruction/GC of decided slots is out of scope (§3).
type Entry struct {
	PrepareCount uint32
	CommitCount  uint32
	PrepareSent  bool
	CommitSent   bool
	Committed    bool
}

// MessageBatch maps hash(BatchKey) -> slot ledger entry.
type MessageBatch struct {
	mu    sync.Mutex
	slots map[cryptoutil.Digest]*Entry
}

// New builds an empty MessageBatch.
func New() *MessageBatch {
	return &MessageBatch{slots: make(map[cryptoutil.Digest]*Entry)}
}

// AddMessage opens a slot for k. Fails with *vaverr.DuplicateSlot if already
// present.
func (b *MessageBatch) AddMessage(k BatchKey) (*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := k.Hash()
	if _, ok := b.slots[h]; ok {
		return nil, &vaverr.DuplicateSlot{BatchKey: k.String()}
	}
	e := &Entry{}
	b.slots[h] = e
	return e, nil
}

// AddPrepareMessage increments prepareCount for an already-open slot and
// returns the new count. Fails with *vaverr.UnknownSlot if the slot has not
// been opened by a PrePrepare yet (§9 note 4: this is a permanent drop, not
// a buffered retry, in the base ledger itself).
func (b *MessageBatch) AddPrepareMessage(k BatchKey) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.slots[k.Hash()]
	if !ok {
		return 0, &vaverr.UnknownSlot{BatchKey: k.String()}
	}
	e.PrepareCount++
	return e.PrepareCount, nil
}

// AddCommitMessage increments commitCount for an already-open slot and
// returns the new count. Fails with *vaverr.UnknownSlot otherwise.
func (b *MessageBatch) AddCommitMessage(k BatchKey) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.slots[k.Hash()]
	if !ok {
		return 0, &vaverr.UnknownSlot{BatchKey: k.String()}
	}
	e.CommitCount++
	return e.CommitCount, nil
}

// ContainsMessage is a boolean probe for k's slot presence.
func (b *MessageBatch) ContainsMessage(k BatchKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.slots[k.Hash()]
	return ok
}

// Get returns the slot entry for k, for the engine to inspect/mutate the
// sent/committed flags under its own single-threaded handler discipline.
func (b *MessageBatch) Get(k BatchKey) (*Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.slots[k.Hash()]
	return e, ok
}
