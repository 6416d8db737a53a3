package engine

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vavilov/consensus/internal/vavilov/batch"
	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/metrics"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/transport"
	"github.com/vavilov/consensus/internal/vavilov/upcall"
	"github.com/vavilov/consensus/internal/vavilov/wire"
)

// node bundles one replica's engine, transport adapter and the channel its
// CommittedNotification upcall feeds, the way miner_test.go bundles a
// miner with a mockTxPool rather than standing up the whole app.
type node struct {
	host      seqn.Host
	engine    *Engine
	transport *transport.Adapter
	committed chan []byte
}

// buildCluster wires n replicas over loopback TCP starting at basePort,
// connects every ordered pair, and starts each engine's event loop. The
// initial view number is 1 per §4.8, so the initial leader is
// members[1 % n] — the test computes this instead of assuming index 0, to
// avoid baking an assumption about the leader-selection formula's offset
// into the harness itself.
func buildCluster(t *testing.T, n int, basePort int) ([]*node, int) {
	t.Helper()

	hosts := make([]seqn.Host, n)
	privs := make([]*ecdsa.PrivateKey, n)
	truststore := cryptoutil.NewTruststore()

	for i := 0; i < n; i++ {
		hosts[i] = seqn.Host{Addr: "127.0.0.1", Port: basePort + i}
		priv, err := cryptoutil.GenerateKey()
		require.NoError(t, err)
		privs[i] = priv
		truststore.Add(cryptoName(i), &priv.PublicKey)
	}

	nodes := make([]*node, n)
	for i := 0; i < n; i++ {
		i := i
		var eng *Engine
		committed := make(chan []byte, 16)

		adapter := transport.NewAdapter(transport.DefaultConfig(), hosts[i], func(kind wire.Kind, payload []byte, from seqn.Host) {
			eng.HandleInboundFrame(kind, payload, from)
		})

		cfg := Config{
			Self:          hosts[i],
			Members:       hosts,
			CryptoName:    cryptoName(i),
			PrivateKey:    privs[i],
			Truststore:    truststore,
			ReconnectTime: 200 * time.Millisecond,
			LeaderTimeout: 2 * time.Second,
			ChannelID:     "test-channel",
		}

		up := upcall.Surface{
			CommittedNotification: func(payload, sig []byte) {
				committed <- payload
			},
		}

		eng = New(cfg, adapter, up)
		require.NoError(t, adapter.Listen(hosts[i].String()))
		nodes[i] = &node{host: hosts[i], engine: eng, transport: adapter, committed: committed}
	}

	// give listeners a moment to be accepting before dialing
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			require.NoError(t, nodes[i].transport.Connect(hosts[j]))
		}
	}

	for _, nd := range nodes {
		go nd.engine.Run()
	}

	leaderIndex := 1 % n
	return nodes, leaderIndex
}

func cryptoName(i int) string {
	return "node-" + string(rune('a'+i))
}

func teardown(nodes []*node) {
	for _, nd := range nodes {
		nd.engine.Stop()
		nd.transport.Close()
	}
}

func awaitCommit(t *testing.T, ch chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for CommittedNotification")
		return nil
	}
}

func assertNoCommit(t *testing.T, ch chan []byte, wait time.Duration) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("did not expect a commit, got %q", p)
	case <-time.After(wait):
	}
}

// S1 happy path: a ProposeRequest on the leader results in every replica
// committing the same payload exactly once for that slot.
func TestS1HappyPath(t *testing.T) {
	nodes, leader := buildCluster(t, 4, 19500)
	defer teardown(nodes)

	nodes[leader].engine.SubmitPropose([]byte("x"), 1)

	for _, nd := range nodes {
		payload := awaitCommit(t, nd.committed, 3*time.Second)
		assert.Equal(t, "x", string(payload))
	}

	for _, nd := range nodes {
		assertNoCommit(t, nd.committed, 200*time.Millisecond)
	}
}

// S2 duplicate request: two identical ProposeRequests collapse to exactly
// one CommittedNotification per replica for that opsHash.
func TestS2DuplicateRequestDeduped(t *testing.T) {
	nodes, leader := buildCluster(t, 4, 19510)
	defer teardown(nodes)

	nodes[leader].engine.SubmitPropose([]byte("dup"), 42)
	nodes[leader].engine.SubmitPropose([]byte("dup"), 42)

	for _, nd := range nodes {
		payload := awaitCommit(t, nd.committed, 3*time.Second)
		assert.Equal(t, "dup", string(payload))
	}
	for _, nd := range nodes {
		assertNoCommit(t, nd.committed, 300*time.Millisecond)
	}
}

// S3 non-leader proposal: a ProposeRequest submitted at a backup produces
// no PrePrepare and no notifications anywhere.
func TestS3NonLeaderProposalDropped(t *testing.T) {
	nodes, leader := buildCluster(t, 4, 19520)
	defer teardown(nodes)

	backup := (leader + 1) % len(nodes)
	nodes[backup].engine.SubmitPropose([]byte("should not commit"), 1)

	for _, nd := range nodes {
		assertNoCommit(t, nd.committed, 500*time.Millisecond)
	}
}

// S5 forged signature: a PrePrepare with random signature bytes produces no
// slot/commit progress and is counted as a signature failure.
func TestS5ForgedSignatureRejected(t *testing.T) {
	nodes, _ := buildCluster(t, 4, 19530)
	defer teardown(nodes)

	before := testutil.ToFloat64(metrics.SignatureFailures)

	forged := &wire.PrePrepareMsg{
		Operation:  []byte("forged"),
		CryptoName: cryptoName(0),
		Signature:  []byte("not a real signature at all"),
	}
	frame, err := wire.EncodePrePrepare(forged)
	require.NoError(t, err)
	kind, payload, err := wire.SplitEnvelope(frame)
	require.NoError(t, err)

	nodes[1].engine.HandleInboundFrame(kind, payload, nodes[0].host)

	assertNoCommit(t, nodes[1].committed, 500*time.Millisecond)
	after := testutil.ToFloat64(metrics.SignatureFailures)
	assert.Greater(t, after, before)
}

// A PrePrepare for a (seqN, view) this replica already accepted one for,
// but carrying a different opsHash, is equivocation and must be rejected
// rather than opened as a second slot (§3's no-equivocation invariant).
func TestPrePrepareEquivocationRejected(t *testing.T) {
	leaderPriv, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	backupPriv, err := cryptoutil.GenerateKey()
	require.NoError(t, err)

	truststore := cryptoutil.NewTruststore()
	truststore.Add("leader", &leaderPriv.PublicKey)
	truststore.Add("backup", &backupPriv.PublicKey)

	leaderHost := seqn.Host{Addr: "127.0.0.1", Port: 19600}
	backupHost := seqn.Host{Addr: "127.0.0.1", Port: 19601}

	eng := New(Config{
		Self:          backupHost,
		Members:       []seqn.Host{leaderHost, backupHost},
		CryptoName:    "backup",
		PrivateKey:    backupPriv,
		Truststore:    truststore,
		ReconnectTime: time.Second,
		LeaderTimeout: time.Second,
		ChannelID:     "test-channel",
	}, nil, upcall.Surface{})

	leaderSigner := &signerAdapter{priv: leaderPriv}
	k := batch.BatchKey{
		OpsHash: cryptoutil.Hash([]byte("first")),
		SeqN:    seqn.SeqN{Counter: 1, Node: leaderHost},
		View:    eng.view.ViewNumber(),
	}
	first, err := wire.NewPrePrepare(k, []byte("first"), "leader", leaderSigner)
	require.NoError(t, err)
	eng.handlePrePrepareMsg(first, leaderHost)

	entry, ok := eng.mb.Get(k)
	require.True(t, ok)
	assert.True(t, entry.PrepareSent)

	conflicting := batch.BatchKey{
		OpsHash: cryptoutil.Hash([]byte("second")),
		SeqN:    k.SeqN,
		View:    k.View,
	}
	second, err := wire.NewPrePrepare(conflicting, []byte("second"), "leader", leaderSigner)
	require.NoError(t, err)
	eng.handlePrePrepareMsg(second, leaderHost)

	_, opened := eng.mb.Get(conflicting)
	assert.False(t, opened, "conflicting PrePrepare must not open a second slot")
}

// buildFourWayNoNetwork wires a 4-node (f=1) truststore and a single
// transportless Engine for member index `self`, for tests that drive the
// handler methods directly instead of routing real TCP frames — the same
// shape buildCluster/ uses, but without goroutines or sockets, so a test
// can observe exactly the votes it feeds in.
func buildFourWayNoNetwork(t *testing.T, self int) (*Engine, []seqn.Host, []*signerAdapter) {
	t.Helper()

	n := 4
	hosts := make([]seqn.Host, n)
	signers := make([]*signerAdapter, n)
	truststore := cryptoutil.NewTruststore()
	for i := 0; i < n; i++ {
		hosts[i] = seqn.Host{Addr: "127.0.0.1", Port: 19700 + i}
		priv, err := cryptoutil.GenerateKey()
		require.NoError(t, err)
		signers[i] = &signerAdapter{priv: priv}
		truststore.Add(cryptoName(i), &priv.PublicKey)
	}

	eng := New(Config{
		Self:          hosts[self],
		Members:       hosts,
		CryptoName:    cryptoName(self),
		PrivateKey:    signers[self].priv,
		Truststore:    truststore,
		ReconnectTime: time.Second,
		LeaderTimeout: time.Second,
		ChannelID:     "test-channel",
	}, nil, upcall.Surface{})

	return eng, hosts, signers
}

// S4 selective Prepare drop: with n=4 (f=1), the commit-phase quorum is
// 2f+1=3 prepare votes. If one backup never sends its Prepare, the
// remaining two votes never reach quorum and no Commit is broadcast; once
// the missing vote finally arrives, quorum is reached and exactly one
// Commit fires.
func TestS4SelectivePrepareDropBlocksQuorum(t *testing.T) {
	// self = backup index 0; the initial view (viewNumber=1) makes index 1
	// the leader, so hosts[1]/signers[1] play that role here.
	eng, hosts, signers := buildFourWayNoNetwork(t, 0)
	require.False(t, eng.view.IsLeader(hosts[0]))

	k := batch.BatchKey{
		OpsHash: cryptoutil.Hash([]byte("payload")),
		SeqN:    seqn.SeqN{Counter: 1, Node: hosts[1]},
		View:    eng.view.ViewNumber(),
	}
	pp, err := wire.NewPrePrepare(k, []byte("payload"), cryptoName(1), signers[1])
	require.NoError(t, err)
	eng.handlePrePrepareMsg(pp, hosts[1])

	entry, ok := eng.mb.Get(k)
	require.True(t, ok)
	require.True(t, entry.PrepareSent) // self's own implicit prepare vote, count=1

	// backup index 2 prepares; backup index 3 (the "dropped" one) never does.
	p2, err := wire.NewPrepare(k, cryptoName(2), signers[2])
	require.NoError(t, err)
	eng.handlePrepareMsg(p2, hosts[2])

	assert.False(t, entry.CommitSent, "quorum (3) not yet reached with only 2 prepare votes")

	// the missing vote arrives late; quorum is now reached.
	p3, err := wire.NewPrepare(k, cryptoName(3), signers[3])
	require.NoError(t, err)
	eng.handlePrepareMsg(p3, hosts[3])

	assert.True(t, entry.CommitSent, "quorum (3) reached once the third prepare vote arrives")
}

// S6 leader silence: a backup that has not observed leader activity for
// longer than LEADER_TIMEOUT enters suspect-leader state and records a
// LeaderTimeouts metric increment; the leader itself never suspects.
func TestS6LeaderSilenceTriggersSuspect(t *testing.T) {
	eng, hosts, _ := buildFourWayNoNetwork(t, 0) // self = backup (leader is index 1)
	require.False(t, eng.view.IsLeader(hosts[0]))

	before := testutil.ToFloat64(metrics.LeaderTimeouts)

	eng.lastLeaderOpMu.Lock()
	eng.lastLeaderOp = time.Now().Add(-2 * eng.cfg.LeaderTimeout)
	eng.lastLeaderOpMu.Unlock()

	eng.onLeaderTimer()

	after := testutil.ToFloat64(metrics.LeaderTimeouts)
	assert.Greater(t, after, before)

	status := eng.Status()
	assert.True(t, status.SuspectLeader)
}
