// Package upcall implements C10: the three notifications the engine
// delivers to the application, grounded on the onBlockFinalized callback
// wiring in internal/icenet/consensus/manager.go (NewManager takes a
// callback rather than requiring the application to implement an
// interface, so composition stays a plain struct of funcs).
package upcall

import (
	"github.com/vavilov/consensus/internal/vavilov/seqn"
)

// Surface is the set of upcalls the engine fires into the application.
// Any field left nil is a no-op; the engine never requires all three.
type Surface struct {
	// InitialNotification fires once after the channel is open.
	InitialNotification func(self seqn.Host, channelID string)

	// ViewChange fires once at init ("install first view") and again on
	// every successful view installation. View-change recovery itself is
	// out of scope (§9 note 3); this upcall only reports the installed
	// view.
	ViewChange func(members []seqn.Host, viewNumber uint32)

	// CommittedNotification fires in commit order for a single slot; it
	// does not guarantee cross-slot ordering (§9 note 5).
	CommittedNotification func(payload []byte, signatureOverPayload []byte)
}

func (s Surface) fireInitial(self seqn.Host, channelID string) {
	if s.InitialNotification != nil {
		s.InitialNotification(self, channelID)
	}
}

func (s Surface) fireViewChange(members []seqn.Host, viewNumber uint32) {
	if s.ViewChange != nil {
		s.ViewChange(members, viewNumber)
	}
}

func (s Surface) fireCommitted(payload, sig []byte) {
	if s.CommittedNotification != nil {
		s.CommittedNotification(payload, sig)
	}
}

// FireInitial is the exported entry point engine.Engine uses to emit
// InitialNotification; kept as a thin wrapper so the engine package never
// needs to check s.InitialNotification for nil itself.
func (s Surface) FireInitial(self seqn.Host, channelID string) { s.fireInitial(self, channelID) }

// FireViewChange emits ViewChange.
func (s Surface) FireViewChange(members []seqn.Host, viewNumber uint32) {
	s.fireViewChange(members, viewNumber)
}

// FireCommitted emits CommittedNotification.
func (s Surface) FireCommitted(payload, sig []byte) { s.fireCommitted(payload, sig) }
