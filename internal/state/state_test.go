package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func TestFullStateApplyAndRead(t *testing.T) {
	fs := NewFullState(trie.NewMemStore(), NewMemCodeStore())

	a1 := addr(1)
	key := types.Hash{1: 0xaa}
	val := types.Hash{1: 0xbb}

	ws := types.WriteSet{
		Accounts: []types.AccountDelta{{Addr: a1, Nonce: 1}},
		Storage:  []types.StorageWrite{{Addr: a1, Key: key, Value: val}},
	}
	root, err := fs.Apply(trie.EmptyRoot, ws)
	require.NoError(t, err)
	require.NotEqual(t, trie.EmptyRoot, root)

	r := fs.StateAt(root)
	nonce, err := r.GetNonce(a1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	got, err := r.GetValue(a1, key)
	require.NoError(t, err)
	require.Equal(t, val, got)
}

func TestPartialStateApplyMatchesFullState(t *testing.T) {
	fs := NewFullState(trie.NewMemStore(), NewMemCodeStore())
	a1 := addr(7)
	root1, err := fs.Apply(trie.EmptyRoot, types.WriteSet{
		Accounts: []types.AccountDelta{{Addr: a1, Nonce: 1}},
	})
	require.NoError(t, err)

	r := fs.StateAt(root1)
	key := types.Hash{2: 0x05}
	readSet := []types.ReadKey{{Addr: a1}}
	proof, err := r.GetReadProof(readSet)
	require.NoError(t, err)

	prop := &types.TxProposal{
		StateRootSeen: root1,
		ReadSet:       readSet,
		Writes: types.WriteSet{
			Accounts: []types.AccountDelta{{Addr: a1, Nonce: 2}},
			Storage:  []types.StorageWrite{{Addr: a1, Key: key, Value: types.Hash{3: 0x09}}},
		},
		ReadProof: *proof,
	}

	ps := NewPartialState(root1)
	newRoot, err := ps.Apply(prop)
	require.NoError(t, err)

	fullRoot2, err := fs.Apply(root1, prop.Writes)
	require.NoError(t, err)
	require.Equal(t, fullRoot2, newRoot)
}

func TestPartialStateApplyRejectsWrongRoot(t *testing.T) {
	ps := NewPartialState(types.Hash{9: 1})
	prop := &types.TxProposal{StateRootSeen: types.Hash{9: 2}}
	_, err := ps.Apply(prop)
	require.Error(t, err)
}

func TestTempStateRollingWindowRoundTrip(t *testing.T) {
	fs := NewFullState(trie.NewMemStore(), NewMemCodeStore())
	ts := NewTempState(fs, 0, trie.EmptyRoot, 2)

	a1 := addr(1)
	r1, err := ts.Commit(1, []types.WriteSet{{Accounts: []types.AccountDelta{{Addr: a1, Nonce: 1}}}})
	require.NoError(t, err)
	r2, err := ts.Commit(2, []types.WriteSet{{Accounts: []types.AccountDelta{{Addr: a1, Nonce: 2}}}})
	require.NoError(t, err)
	r3, err := ts.Commit(3, []types.WriteSet{{Accounts: []types.AccountDelta{{Addr: a1, Nonce: 3}}}})
	require.NoError(t, err)

	require.True(t, ts.Contains(r2))
	require.True(t, ts.Contains(r3))
	require.True(t, ts.Contains(r1))            // delta 1 merged into base: r1 is the base root
	require.False(t, ts.Contains(trie.EmptyRoot)) // evicted: window limit is 2

	reader, err := ts.Reader(r3)
	require.NoError(t, err)
	nonce, err := reader.GetNonce(a1)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)
}

func TestTempStateRollbackBeyondWindowDiverges(t *testing.T) {
	fs := NewFullState(trie.NewMemStore(), NewMemCodeStore())
	ts := NewTempState(fs, 10, trie.EmptyRoot, 4)
	err := ts.Rollback(0)
	require.Error(t, err)
}
