// Package raft is the contract-only Raft surface spec §1/§4.5 asks for:
// the {term, leader, index} consensus header, log-index-ordered commit,
// and a snapshot-policy counter. Leader election and log replication are
// an external collaborator (no Byzantine-safety proof is in scope); this
// package only has to satisfy consensus.Backend against a log a test or
// an embedding node supplies.
package raft

import (
	"context"
	"sync"

	"github.com/slimchain/slimchain/internal/consensus"
	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

var _ consensus.Backend = (*Backend)(nil)

// Entry is one committed log position: a block plus the Raft metadata it
// was agreed on under.
type Entry struct {
	Index  uint64
	Term   uint64
	Leader types.Address
	Block  *types.Block
}

// Log is the external collaborator's view into the replicated log: this
// package neither elects leaders nor replicates entries, it only reads
// and appends through this interface.
type Log interface {
	// IsLeader reports whether this node may propose right now, and if
	// so the current term.
	IsLeader() (term uint64, leader types.Address, ok bool)
	// Append adds an entry at the next log index, returning it.
	Append(term uint64, leader types.Address, block *types.Block) (Entry, error)
	// LastCommitted returns the highest committed index, or ok=false if
	// the log is empty.
	LastCommitted() (Entry, bool)
}

// Backend implements consensus.Backend over a Log: block assembly is the
// same pipeline.Propose the PoW backend uses, the only difference is how
// the consensus header gets stamped and what "ready to propose" means.
type Backend struct {
	Log      Log
	Pool     *pipeline.Pool
	Policy   pipeline.AssemblyPolicy
	Check    pipeline.ConflictCheck
	Partial  *state.PartialState
	Parent   types.Hash
	NowUnixS func() int64

	mu                 sync.Mutex
	snapshotEvery      uint64
	snapshotsSinceLast uint64
}

func New(log Log, pool *pipeline.Pool, policy pipeline.AssemblyPolicy, check pipeline.ConflictCheck, partial *state.PartialState, snapshotEvery uint64, nowUnixS func() int64) *Backend {
	return &Backend{Log: log, Pool: pool, Policy: policy, Check: check, Partial: partial, snapshotEvery: snapshotEvery, NowUnixS: nowUnixS}
}

// Propose assembles a block from the mempool and appends it to the log at
// the next index, only if this node currently holds leadership; it
// returns (nil, nil) otherwise, per consensus.Backend's contract.
func (b *Backend) Propose(_ context.Context) (*types.Block, error) {
	term, leader, ok := b.Log.IsLeader()
	if !ok {
		return nil, nil
	}
	lastIndex, headHash, _ := b.Head()
	cc := pipeline.ConflictContext{HeadHeight: lastIndex, HeadRoot: b.Partial.Root(), Partial: b.Partial}
	parent := b.Parent
	if lastIndex > 0 {
		parent = headHash
	}
	block, err := pipeline.Propose(b.Pool, b.Policy, b.Check, cc, b.Partial, lastIndex+1, parent, b.NowUnixS(), types.ConsensusHeader{Kind: types.ConsensusRaft})
	if err != nil {
		return nil, err
	}
	entry, err := b.Log.Append(term, leader, block)
	if err != nil {
		return nil, err
	}
	block.Header = types.ConsensusHeader{
		Kind: types.ConsensusRaft,
		Raft: types.RaftHeader{Term: entry.Term, Leader: entry.Leader, Index: entry.Index},
	}
	return block, nil
}

// Verify checks only that block carries a well-formed Raft header; log
// consistency (is this index/term actually committed) is the external
// replication layer's job, not this package's.
func (b *Backend) Verify(block *types.Block) error {
	if block.Header.Kind != types.ConsensusRaft {
		return errs.ErrProofInvalid
	}
	return nil
}

// Commit advances the snapshot counter — spec's
// snapshot_policy_logs_since_last.
func (b *Backend) Commit(block *types.Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshotsSinceLast++
	return nil
}

// SnapshotDue reports whether snapshotEvery commits have accumulated
// since the last reset, and resets the counter if so.
func (b *Backend) SnapshotDue() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshotEvery == 0 || b.snapshotsSinceLast < b.snapshotEvery {
		return false
	}
	b.snapshotsSinceLast = 0
	return true
}

func (b *Backend) Head() (uint64, types.Hash, types.Hash) {
	entry, ok := b.Log.LastCommitted()
	if !ok {
		return 0, types.Hash{}, types.Hash{}
	}
	return entry.Index, entry.Block.Hash(), entry.Block.StateRoot
}
