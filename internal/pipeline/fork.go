package pipeline

import (
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

// Reorg implements spec §4.4's fork handling for PoW: the heaviest chain
// wins, and switching to it means rolling the temp-state back to the
// common ancestor and replaying the winning fork's blocks. forkPoint is
// the common ancestor height; winning is the new chain's blocks above it,
// in height order. A rollback deeper than the temp-state window surfaces
// TempState.Rollback's ErrDivergence unchanged — the caller (consensus
// adapter) is expected to halt the node on that error, per spec §4.4:
// "Outside the window, a reorg is rejected ... the node logs a fatal
// divergence and halts."
func Reorg(ts *state.TempState, forkPoint uint64, winning []*types.Block) error {
	if err := ts.Rollback(forkPoint); err != nil {
		return err
	}
	return ts.Replay(winning)
}
