package raft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

type fakeLog struct {
	leader  types.Address
	term    uint64
	isLeader bool
	entries []Entry
}

func (f *fakeLog) IsLeader() (uint64, types.Address, bool) { return f.term, f.leader, f.isLeader }

func (f *fakeLog) Append(term uint64, leader types.Address, block *types.Block) (Entry, error) {
	e := Entry{Index: uint64(len(f.entries)) + 1, Term: term, Leader: leader, Block: block}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeLog) LastCommitted() (Entry, bool) {
	if len(f.entries) == 0 {
		return Entry{}, false
	}
	return f.entries[len(f.entries)-1], true
}

func TestProposeSkippedWhenNotLeader(t *testing.T) {
	log := &fakeLog{isLeader: false}
	b := New(log, pipeline.NewPool(0), pipeline.AssemblyPolicy{MaxTxs: 1, MinTxs: 1}, pipeline.OCC{}, state.NewPartialState(trie.EmptyRoot), 10, func() int64 { return 0 })
	block, err := b.Propose(context.Background())
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestProposeAppliesUnderLeadership(t *testing.T) {
	fs := state.NewFullState(trie.NewMemStore(), state.NewMemCodeStore())
	var addr types.Address
	addr[19] = 3
	root0, err := fs.Apply(trie.EmptyRoot, types.WriteSet{Accounts: []types.AccountDelta{{Addr: addr, Nonce: 0}}})
	require.NoError(t, err)

	reader := fs.StateAt(root0)
	readSet := []types.ReadKey{{Addr: addr}}
	rp, err := reader.GetReadProof(readSet)
	require.NoError(t, err)

	prop := &types.TxProposal{
		ReqHash:       types.Hash{7: 7},
		StateRootSeen: root0,
		ReadSet:       readSet,
		Writes:        types.WriteSet{Accounts: []types.AccountDelta{{Addr: addr, Nonce: 1}}},
		ReadProof:     *rp,
	}
	pool := pipeline.NewPool(0)
	pool.Submit(prop)

	log := &fakeLog{isLeader: true, term: 1, leader: addr}
	b := New(log, pool, pipeline.AssemblyPolicy{MaxTxs: 1, MinTxs: 1}, pipeline.OCC{}, state.NewPartialState(root0), 10, func() int64 { return 0 })
	b.Parent = root0

	block, err := b.Propose(context.Background())
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, types.ConsensusRaft, block.Header.Kind)
	require.Equal(t, uint64(1), block.Header.Raft.Index)

	height, hash, root := b.Head()
	require.Equal(t, uint64(1), height)
	require.Equal(t, block.Hash(), hash)
	require.Equal(t, block.StateRoot, root)
}

func TestSnapshotDueResetsCounter(t *testing.T) {
	log := &fakeLog{}
	b := New(log, pipeline.NewPool(0), pipeline.AssemblyPolicy{}, pipeline.OCC{}, state.NewPartialState(trie.EmptyRoot), 2, func() int64 { return 0 })
	require.NoError(t, b.Commit(nil))
	require.False(t, b.SnapshotDue())
	require.NoError(t, b.Commit(nil))
	require.True(t, b.SnapshotDue())
	require.False(t, b.SnapshotDue()) // reset after firing once
}
