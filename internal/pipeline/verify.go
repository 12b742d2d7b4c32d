package pipeline

import (
	"errors"
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

// KnownParent reports whether parent is a block hash this node already
// holds (and at what height), letting Verify check "parent known" before
// doing any proof work.
type KnownParent interface {
	BlockByHash(h types.Hash) (height uint64, stateRoot types.Hash, ok bool)
}

// Verify implements spec §4.5's `verify(block) -> ok | error`: header
// well-formed, parent known, state_root reproduces locally, and every
// proposal's read-proof verifies against the state it was seen at.
func Verify(block *types.Block, known KnownParent) error {
	parentHeight, parentRoot, ok := known.BlockByHash(block.Parent)
	if !ok {
		return fmt.Errorf("%w: parent %s unknown", errs.ErrProofInvalid, block.Parent)
	}
	if block.Height != parentHeight+1 {
		return fmt.Errorf("%w: height %d does not follow parent height %d", errs.ErrProofInvalid, block.Height, parentHeight)
	}

	partial := state.NewPartialState(parentRoot)
	root := parentRoot
	for i := range block.TxList {
		prop := &block.TxList[i]
		if err := verifyReadProof(prop); err != nil {
			return fmt.Errorf("%w: tx %s: %v", errs.ErrProofInvalid, prop.ReqHash, err)
		}
		newRoot, err := partial.Apply(prop)
		if err != nil {
			if errors.Is(err, errs.ErrProofInvalid) {
				return err
			}
			return fmt.Errorf("%w: tx %s: %v", errs.ErrProofInvalid, prop.ReqHash, err)
		}
		root = newRoot
	}
	if root != block.StateRoot {
		return fmt.Errorf("%w: computed root %s, header declares %s", errs.ErrProofInvalid, root, block.StateRoot)
	}
	return nil
}

// verifyReadProof checks that every (addr,key) in a proposal's read_set
// authenticates against state_root_seen using only that proposal's own
// read_proof — the leaf-level half of spec §4.5's "all proofs verify",
// independent of whether it can also be applied against the current head.
func verifyReadProof(prop *types.TxProposal) error {
	for _, rk := range prop.ReadSet {
		acctKeyBytes := accountTrieKey(rk.Addr)
		tr := trie.OpenFromProof(prop.StateRootSeen, &prop.ReadProof)
		acctBytes, found, err := tr.Get(acctKeyBytes)
		if err != nil {
			return fmt.Errorf("account %s not authenticated: %w", rk.Addr, err)
		}
		if rk.Key == nil || !found {
			continue
		}
		acct, ok := types.DecodeAccount(acctBytes)
		if !ok {
			return fmt.Errorf("undecodable account %s", rk.Addr)
		}
		storageTr := trie.OpenFromProof(acct.StorageRoot, &prop.ReadProof)
		if _, _, err := storageTr.Get(storageTrieKeyBytes(*rk.Key)); err != nil {
			return fmt.Errorf("storage %s/%s not authenticated: %w", rk.Addr, rk.Key, err)
		}
	}
	return nil
}

func accountTrieKey(a types.Address) []byte {
	h := types.Keccak256(a[:])
	return h[:]
}

func storageTrieKeyBytes(k types.Hash) []byte {
	h := types.Keccak256(k[:])
	return h[:]
}
