// Package opsmap implements C4: the content-addressed operation store,
// grounded on the teacher's RequestPool (map[string]*message.Request in
// internal/gigea/gigea/pbft.go) but made append-only and idempotent per
// §4.4 rather than a pending-request queue.
package opsmap

import (
	"bytes"
	"sync"

	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/vaverr"
)

// OpsMap maps opsHash -> payload bytes. It is append-only for the lifetime
// of the engine: addOp is idempotent on an identical (hash, payload) pair
// and fails with DuplicateOp when the same hash is installed with different
// bytes, which is how a second identical client ProposeRequest is absorbed
// while true hash collisions/replays are rejected.
type OpsMap struct {
	mu  sync.RWMutex
	ops map[cryptoutil.Digest][]byte
}

// New builds an empty OpsMap.
func New() *OpsMap {
	return &OpsMap{ops: make(map[cryptoutil.Digest][]byte)}
}

// AddOp installs payload under hash. Idempotent if hash is already present
// with identical bytes; otherwise returns *vaverr.DuplicateOp.
func (m *OpsMap) AddOp(hash cryptoutil.Digest, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.ops[hash]; ok {
		if bytes.Equal(existing, payload) {
			return nil
		}
		return &vaverr.DuplicateOp{OpsHash: hash.String()}
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.ops[hash] = stored
	return nil
}

// GetOp returns the payload stored under hash, or *vaverr.UnknownOp.
func (m *OpsMap) GetOp(hash cryptoutil.Digest) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.ops[hash]
	if !ok {
		return nil, &vaverr.UnknownOp{OpsHash: hash.String()}
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// ContainsOp is a boolean probe for hash's presence.
func (m *OpsMap) ContainsOp(hash cryptoutil.Digest) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ops[hash]
	return ok
}
