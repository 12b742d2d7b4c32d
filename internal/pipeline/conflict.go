package pipeline

import (
	"bytes"
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

// ConflictContext is the miner-side state a ConflictCheck needs: where the
// proposal's own execution sat, where the window/head currently sit, and
// (for OCC) the miner's live partial trie to re-read current values from.
type ConflictContext struct {
	HeightSeen      uint64
	HeadHeight      uint64
	WindowMinHeight uint64
	HeadRoot        types.Hash
	// Partial is the miner's own live partial trie, already sitting at
	// HeadRoot. OCC re-reads each proposal's keys against it directly —
	// a proposal's own ReadProof only authenticates its reads against
	// StateRootSeen, an older root, and a Merkle trie's root hash changes
	// whenever any key anywhere is written, so the proof's node bytes
	// cannot be resolved against HeadRoot on their own (see Check).
	Partial *state.PartialState
}

// ConflictCheck is spec §4.4's chain.conflict_check policy: decide whether
// a proposal executed at state_root_seen may still be included.
type ConflictCheck interface {
	Check(proposal *types.TxProposal, cc ConflictContext) error
}

// SSI (snapshot-serializable) validates a proposal against the per-height
// write-index: valid iff none of its read keys were modified by any block
// in (heightSeen, headHeight].
type SSI struct {
	Index *WriteIndex
}

func (c SSI) Check(proposal *types.TxProposal, cc ConflictContext) error {
	if cc.HeightSeen < cc.WindowMinHeight {
		return fmt.Errorf("%w: state_root_seen at height %d is outside the retained window", errs.ErrOutdated, cc.HeightSeen)
	}
	for _, rk := range proposal.ReadSet {
		if c.Index.ModifiedSince(cc.HeightSeen, cc.HeadHeight, rk.Addr, rk.Key) {
			return fmt.Errorf("%w: (%s,%v) modified since height %d", errs.ErrConflict, rk.Addr, rk.Key, cc.HeightSeen)
		}
	}
	return nil
}

// OCC (optimistic concurrency) validates a proposal by comparing the value
// it actually read at StateRootSeen against the value the miner's live
// partial trie holds for the same key right now at HeadRoot: valid iff
// they're identical. A proposal's own ReadProof only authenticates its
// reads against StateRootSeen, an older root — since a Merkle trie's root
// hash changes whenever any key anywhere is written, those proof node
// bytes can never resolve against the live HeadRoot on their own (the
// proof's root-level node hashes to StateRootSeen, not HeadRoot). So
// Check instead opens a throwaway trie at StateRootSeen seeded with just
// this proposal's proof to recover what it read, merges that same proof
// into the miner's live cache (harmless and additive, same as Apply), and
// re-reads the key from cc.Partial, which is already sitting at HeadRoot.
type OCC struct{}

func (c OCC) Check(proposal *types.TxProposal, cc ConflictContext) error {
	if cc.Partial == nil {
		return fmt.Errorf("%w: OCC requires the miner's live partial state", errs.ErrConflict)
	}

	seenAt := state.NewPartialState(proposal.StateRootSeen)
	seenAt.LoadProof(proposal.ReadProof)
	cc.Partial.LoadProof(proposal.ReadProof)

	for _, rk := range proposal.ReadSet {
		wantBytes, wantFound, err := seenAt.Get(rk.Addr, rk.Key)
		if err != nil {
			return fmt.Errorf("%w: proposal's own read proof does not authenticate (%s,%v): %v", errs.ErrConflict, rk.Addr, rk.Key, err)
		}
		gotBytes, gotFound, err := cc.Partial.Get(rk.Addr, rk.Key)
		if err != nil {
			return fmt.Errorf("%w: (%s,%v) unresolvable against current head, may have changed: %v", errs.ErrConflict, rk.Addr, rk.Key, err)
		}
		if wantFound != gotFound || !bytes.Equal(wantBytes, gotBytes) {
			return fmt.Errorf("%w: (%s,%v) changed since height %d", errs.ErrConflict, rk.Addr, rk.Key, cc.HeightSeen)
		}
	}
	return nil
}
