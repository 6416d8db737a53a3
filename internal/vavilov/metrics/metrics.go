// Package metrics exposes the engine's prometheus gauges/counters,
// grounded on the package-level promauto declarations in
// internal/icenet/metrics/metrics.go (Namespace: "icenet").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vavilov"

var (
	// SlotsOpened counts every slot opened by a PrePrepare (self-issued or
	// accepted from the leader).
	SlotsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slots_opened_total",
		Help:      "Total consensus slots opened by a PrePrepare.",
	})

	// CommittedSlots counts every slot that reached commit quorum and fired
	// CommittedNotification.
	CommittedSlots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slots_committed_total",
		Help:      "Total consensus slots that reached commit quorum.",
	})

	// PrepareVotes is the most recent prepareCount observed across slots;
	// a gauge rather than a per-slot vector to keep cardinality bounded,
	// mirroring UpdateConsensusVoters in internal/icenet/metrics/consensus.go.
	PrepareVotes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "prepare_votes",
		Help:      "Most recent prepare vote count observed for any slot.",
	})

	// CommitVotes is the most recent commitCount observed across slots.
	CommitVotes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "commit_votes",
		Help:      "Most recent commit vote count observed for any slot.",
	})

	// SignatureFailures counts every message dropped for failing
	// verification (§7 SignatureError policy).
	SignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signature_failures_total",
		Help:      "Total inbound messages dropped for failing signature verification.",
	})

	// LeaderTimeouts counts every suspect-leader trigger fired by the
	// LeaderTimer (§4.8).
	LeaderTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leader_timeouts_total",
		Help:      "Total times this replica suspected the leader of silence.",
	})

	// ViewNumber mirrors the replica's current view number.
	ViewNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "view_number",
		Help:      "Current view number of this replica.",
	})
)
