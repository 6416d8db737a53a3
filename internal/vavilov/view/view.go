// Package view implements C3: the ordered replica membership plus view
// number and deterministic leader selection, grounded on the
// Primary/Replicas handling in the teacher's internal/gigea/gigea/pbft.go
// (NewPBFTNode sets Primary = replicas[0]; handlers index
// Replicas[ViewID % len(Replicas)]).
package view

import "github.com/vavilov/consensus/internal/vavilov/seqn"

// View is the ordered members list plus the mutable view number.
type View struct {
	members    []seqn.Host
	viewNumber uint32
}

// New builds a View over members with the given starting view number.
// |members| >= 3f+1 holds for any membership size, since f is derived as
// (|members|-1)/3; the member count itself is not validated.
func New(members []seqn.Host, viewNumber uint32) *View {
	cp := make([]seqn.Host, len(members))
	copy(cp, members)
	return &View{members: cp, viewNumber: viewNumber}
}

// Members returns the ordered membership list (read-only).
func (v *View) Members() []seqn.Host {
	out := make([]seqn.Host, len(v.members))
	copy(out, v.members)
	return out
}

// Size returns the number of members.
func (v *View) Size() int { return len(v.members) }

// F returns the maximum tolerated Byzantine replica count, f = (n-1)/3.
func (v *View) F() int {
	return (len(v.members) - 1) / 3
}

// ViewNumber returns the current view number.
func (v *View) ViewNumber() uint32 { return v.viewNumber }

// Leader returns members[viewNumber mod |members|].
func (v *View) Leader() seqn.Host {
	return v.members[int(v.viewNumber)%len(v.members)]
}

// LeaderAt returns the leader for an arbitrary view number, using the same
// indexing Leader() uses for the current one.
func (v *View) LeaderAt(viewNumber uint32) seqn.Host {
	return v.members[int(viewNumber)%len(v.members)]
}

// IsLeader reports whether h is the leader of the current view.
func (v *View) IsLeader(h seqn.Host) bool {
	return v.Leader().Compare(h) == 0
}

// IsLeaderAt reports whether h is the leader of the given view number.
func (v *View) IsLeaderAt(h seqn.Host, viewNumber uint32) bool {
	return v.LeaderAt(viewNumber).Compare(h) == 0
}

// IncrementViewNumber advances the view number by one. The engine does not
// call it: a detected leader timeout only logs and counts the suspicion.
func (v *View) IncrementViewNumber() {
	v.viewNumber++
}

// AddMember appends a member to the view. Supported but, per §4.3, not used
// by the core after initialization.
func (v *View) AddMember(h seqn.Host) {
	v.members = append(v.members, h)
}
