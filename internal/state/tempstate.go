package state

import (
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/types"
)

// delta is one committed block's effect on state: spec §3's TempState
// entry, `{ state_root, delta: map[A→Account changes] + map[(A,K)→V] }`.
type delta struct {
	height    uint64
	stateRoot types.Hash
	writes    types.WriteSet
}

// TempState is the rolling window of spec §3/§4.3: the base state at
// height H_committed-L plus an ordered list of per-block deltas, with the
// latest state always `base + Σ deltas_in_window`. L is `chain.state_len`.
type TempState struct {
	full       *FullState
	baseHeight uint64
	baseRoot   types.Hash
	window     []delta // oldest first
	limit      int
}

// NewTempState opens a window of capacity limit rooted at (baseHeight,
// baseRoot) — typically genesis, or wherever a node last checkpointed.
func NewTempState(full *FullState, baseHeight uint64, baseRoot types.Hash, limit int) *TempState {
	return &TempState{full: full, baseHeight: baseHeight, baseRoot: baseRoot, limit: limit}
}

// Head returns the latest height and state root the window has committed.
func (ts *TempState) Head() (uint64, types.Hash) {
	if len(ts.window) == 0 {
		return ts.baseHeight, ts.baseRoot
	}
	last := ts.window[len(ts.window)-1]
	return last.height, last.stateRoot
}

// Contains reports whether root is still reachable within the window (the
// base root, or the state_root of some retained delta).
func (ts *TempState) Contains(root types.Hash) bool {
	if root == ts.baseRoot {
		return true
	}
	for _, d := range ts.window {
		if d.stateRoot == root {
			return true
		}
	}
	return false
}

// Commit applies block height H's transactions' write sets, in order, on
// top of the current head, evicting the oldest retained delta into base
// once the window exceeds its limit — spec §3's "(1) append delta_H; (2)
// if ring exceeds L, merge delta_{H−L} into base." Every write set passed
// in is applied; Replay is what leaves out reverted proposals.
func (ts *TempState) Commit(height uint64, txWrites []types.WriteSet) (types.Hash, error) {
	_, head := ts.Head()
	root := head
	merged := types.WriteSet{}
	for _, ws := range txWrites {
		newRoot, err := ts.full.Apply(root, ws)
		if err != nil {
			return types.Hash{}, err
		}
		root = newRoot
		merged.Accounts = append(merged.Accounts, ws.Accounts...)
		merged.Storage = append(merged.Storage, ws.Storage...)
	}
	ts.window = append(ts.window, delta{height: height, stateRoot: root, writes: merged})
	if len(ts.window) > ts.limit {
		evicted := ts.window[0]
		ts.window = ts.window[1:]
		ts.baseHeight = evicted.height
		ts.baseRoot = evicted.stateRoot
	}
	return root, nil
}

// Rollback undoes, in LIFO order, every delta above height (the delta at
// height itself is kept), for the losing side of a reorg — spec §3's "Reorgs within the
// window roll back deltas in LIFO order". Rolling back past the base (a
// reorg deeper than state_len) is ErrDivergence: the node halts rather than
// silently replaying from state it no longer holds.
func (ts *TempState) Rollback(toHeight uint64) error {
	if toHeight < ts.baseHeight {
		return fmt.Errorf("%w: rollback to height %d, base at %d", errs.ErrDivergence, toHeight, ts.baseHeight)
	}
	for len(ts.window) > 0 && ts.window[len(ts.window)-1].height > toHeight {
		ts.window = ts.window[:len(ts.window)-1]
	}
	return nil
}

// Replay re-commits the winning fork's blocks on top of whatever Rollback
// left behind — the second half of reorg handling, spec §8 scenario 4.
func (ts *TempState) Replay(blocks []*types.Block) error {
	for _, b := range blocks {
		var writes []types.WriteSet
		for _, prop := range b.TxList {
			if prop.Reverted {
				continue
			}
			writes = append(writes, prop.Writes)
		}
		if _, err := ts.Commit(b.Height, writes); err != nil {
			return err
		}
	}
	return nil
}

// Reader returns a full-state reader at root, which must still be within
// the window (or exactly the base root).
func (ts *TempState) Reader(root types.Hash) (*Reader, error) {
	if !ts.Contains(root) {
		return nil, fmt.Errorf("%w: root %s outside temp-state window", errs.ErrOutdated, root)
	}
	return ts.full.StateAt(root), nil
}
