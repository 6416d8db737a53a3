// Package peerscore implements a supplemental peer misbehavior score,
// grounded on icenet/peers/scoring.go's AdjustScore/RecordMisbehavior
// pattern but keyed on seqn.Host (this spec has no libp2p peer.ID) and
// without that scorer's Manager/PeerInfo dependency, since C8 has no
// separate peer-registry component of its own.
package peerscore

import (
	"math"
	"sync"
	"time"

	"github.com/vavilov/consensus/internal/vavilov/logger"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
)

var log = logger.Named("peerscore")

const (
	// InitialScore is the starting score for a host not yet seen.
	InitialScore = 100.0
	// MaxScore caps a host's score.
	MaxScore = 200.0
	// MinScore floors a host's score.
	MinScore = 0.0
	// BanThreshold is the score at or below which a host is banned.
	BanThreshold = 10.0
	// BanDuration is how long a banned host stays banned.
	BanDuration = time.Hour

	// ScoreMisbehavior is applied on a SignatureError or equivocation from
	// a host (§7's SignatureError policy: drop the message; this package
	// additionally tracks repeat offenders).
	ScoreMisbehavior = -15.0
	// ScoreConsensusHelp is applied when a host's vote contributes to a
	// slot reaching quorum.
	ScoreConsensusHelp = 3.0
	// ScoreDisconnect is applied on an unexpected connection Down/Failed.
	ScoreDisconnect = -2.0
)

// Reason names why a score changed, for logging/history.
type Reason string

const (
	ReasonMisbehavior  Reason = "misbehavior"
	ReasonConsensusHelp Reason = "consensus_help"
	ReasonDisconnect   Reason = "disconnect"
)

type entry struct {
	score    float64
	bannedAt time.Time
	banned   bool
}

// Scorer tracks a running misbehavior/helpfulness score per host and bans
// hosts whose score drops to or below BanThreshold.
type Scorer struct {
	mu    sync.Mutex
	hosts map[seqn.Host]*entry
}

// New builds an empty Scorer.
func New() *Scorer {
	return &Scorer{hosts: make(map[seqn.Host]*entry)}
}

func (s *Scorer) adjust(host seqn.Host, delta float64, reason Reason) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.hosts[host]
	if !ok {
		e = &entry{score: InitialScore}
		s.hosts[host] = e
	}
	e.score = math.Max(MinScore, math.Min(MaxScore, e.score+delta))
	if e.score <= BanThreshold && !e.banned {
		e.banned = true
		e.bannedAt = time.Now()
		log.Warnw("banning peer", "host", host, "score", e.score, "reason", reason)
	}
	return e.score
}

// RecordMisbehavior penalizes host for a protocol violation (forged
// signature, equivocation).
func (s *Scorer) RecordMisbehavior(host seqn.Host) float64 {
	return s.adjust(host, ScoreMisbehavior, ReasonMisbehavior)
}

// RecordConsensusHelp rewards host for a vote that contributed to quorum.
func (s *Scorer) RecordConsensusHelp(host seqn.Host) float64 {
	return s.adjust(host, ScoreConsensusHelp, ReasonConsensusHelp)
}

// RecordDisconnect penalizes host for an unexpected Down/Failed transport
// event.
func (s *Scorer) RecordDisconnect(host seqn.Host) float64 {
	return s.adjust(host, ScoreDisconnect, ReasonDisconnect)
}

// Score returns host's current score, or InitialScore if unseen.
func (s *Scorer) Score(host seqn.Host) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.hosts[host]; ok {
		return e.score
	}
	return InitialScore
}

// IsBanned reports whether host is currently banned; a ban expires after
// BanDuration and is lazily lifted (score reset to BanThreshold) on the
// next query past expiry.
func (s *Scorer) IsBanned(host seqn.Host) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.hosts[host]
	if !ok || !e.banned {
		return false
	}
	if time.Since(e.bannedAt) > BanDuration {
		e.banned = false
		e.score = BanThreshold
		return false
	}
	return true
}
