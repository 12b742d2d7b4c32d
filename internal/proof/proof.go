// Package proof implements spec §4.6's standalone check: given a state
// root and a transaction proposal, verify that every read the proposal
// claims is authenticated by that root, then replay the proposal's writes
// and confirm they are consistent with the same root. It is the single-
// proposal primitive; internal/pipeline does not call it, and checks whole
// blocks with its own read-proof verification plus PartialState.Apply.
package proof

import (
	"errors"
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

// Verify implements spec §4.6's `verify(state_root, proposal) -> error`:
// every entry in proposal.ReadSet must resolve against state_root using
// proposal.ReadProof — including the required case of an absence proof
// for an account or storage slot the proposal claims doesn't exist — and
// replaying proposal.Writes on top of state_root must succeed.
func Verify(stateRoot types.Hash, proposal *types.TxProposal) error {
	if proposal.StateRootSeen != stateRoot {
		return fmt.Errorf("%w: proposal seen at %s, asked to verify against %s", errs.ErrOutdated, proposal.StateRootSeen, stateRoot)
	}

	ps := state.NewPartialState(stateRoot)
	ps.LoadProof(proposal.ReadProof)
	for _, rk := range proposal.ReadSet {
		if _, _, err := ps.Get(rk.Addr, rk.Key); err != nil {
			if errors.Is(err, errs.ErrStorageCorruption) {
				return fmt.Errorf("%w: read proof does not authenticate %s/%v", errs.ErrProofInvalid, rk.Addr, rk.Key)
			}
			return err
		}
		// A not-found result here (found == false) is a valid absence
		// proof: ps.Get only returns ErrStorageCorruption when the proof
		// is insufficient to resolve the path at all.
	}

	if _, err := Replay(stateRoot, proposal); err != nil {
		return err
	}
	return nil
}

// Replay recomputes the root that applying proposal.Writes on top of
// stateRoot produces, using only the nodes in proposal.ReadProof — the
// "replay writes and recompute root" half of spec §4.6. It operates on an
// isolated partial trie seeded from the proof and never touches any
// durable store.
func Replay(stateRoot types.Hash, proposal *types.TxProposal) (types.Hash, error) {
	ps := state.NewPartialState(stateRoot)
	root, err := ps.Apply(proposal)
	if err != nil {
		return types.Hash{}, err
	}
	return root, nil
}
