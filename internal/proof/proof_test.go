package proof

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

func TestVerifyAcceptsValidProposal(t *testing.T) {
	fs := state.NewFullState(trie.NewMemStore(), state.NewMemCodeStore())
	var addr types.Address
	addr[19] = 7
	root0, err := fs.Apply(trie.EmptyRoot, types.WriteSet{Accounts: []types.AccountDelta{{Addr: addr, Nonce: 3}}})
	require.NoError(t, err)

	reader := fs.StateAt(root0)
	readSet := []types.ReadKey{{Addr: addr}}
	rp, err := reader.GetReadProof(readSet)
	require.NoError(t, err)

	prop := &types.TxProposal{
		StateRootSeen: root0,
		ReadSet:       readSet,
		Writes:        types.WriteSet{Accounts: []types.AccountDelta{{Addr: addr, Nonce: 4}}},
		ReadProof:     *rp,
	}

	require.NoError(t, Verify(root0, prop))

	newRoot, err := Replay(root0, prop)
	require.NoError(t, err)
	require.NotEqual(t, root0, newRoot)
}

func TestVerifyRejectsWrongRoot(t *testing.T) {
	prop := &types.TxProposal{StateRootSeen: types.Hash{1: 1}}
	err := Verify(types.Hash{2: 2}, prop)
	require.ErrorIs(t, err, errs.ErrOutdated)
}

func TestVerifyAcceptsAbsenceProof(t *testing.T) {
	fs := state.NewFullState(trie.NewMemStore(), state.NewMemCodeStore())
	var present, missing types.Address
	present[19] = 1
	missing[19] = 2
	root0, err := fs.Apply(trie.EmptyRoot, types.WriteSet{Accounts: []types.AccountDelta{{Addr: present, Nonce: 1}}})
	require.NoError(t, err)

	reader := fs.StateAt(root0)
	readSet := []types.ReadKey{{Addr: missing}}
	rp, err := reader.GetReadProof(readSet)
	require.NoError(t, err)

	prop := &types.TxProposal{
		StateRootSeen: root0,
		ReadSet:       readSet,
		ReadProof:     *rp,
	}
	require.NoError(t, Verify(root0, prop))
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	fs := state.NewFullState(trie.NewMemStore(), state.NewMemCodeStore())
	var addr types.Address
	addr[19] = 9
	root0, err := fs.Apply(trie.EmptyRoot, types.WriteSet{Accounts: []types.AccountDelta{{Addr: addr, Nonce: 1}}})
	require.NoError(t, err)

	reader := fs.StateAt(root0)
	readSet := []types.ReadKey{{Addr: addr}}
	rp, err := reader.GetReadProof(readSet)
	require.NoError(t, err)
	require.NotEmpty(t, rp.Nodes)
	rp.Nodes[0][0] ^= 0xFF

	prop := &types.TxProposal{
		StateRootSeen: root0,
		ReadSet:       readSet,
		ReadProof:     *rp,
	}
	require.Error(t, Verify(root0, prop))
}
