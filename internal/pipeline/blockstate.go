package pipeline

import "fmt"

// BlockState is spec §4.4's per-block state machine:
// proposed -> verified -> committed -> finalized, with rejected as the
// only terminal failure state reachable from any of the first three.
type BlockState int

const (
	BlockProposed BlockState = iota
	BlockVerified
	BlockCommitted
	BlockFinalized
	BlockRejected
)

func (s BlockState) String() string {
	switch s {
	case BlockProposed:
		return "proposed"
	case BlockVerified:
		return "verified"
	case BlockCommitted:
		return "committed"
	case BlockFinalized:
		return "finalized"
	case BlockRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// transitions enumerates the only state pairs §4.4 allows; anything else is
// a programming error in the pipeline, not a data-dependent outcome.
var transitions = map[BlockState]map[BlockState]bool{
	BlockProposed:  {BlockVerified: true, BlockRejected: true},
	BlockVerified:  {BlockCommitted: true, BlockRejected: true},
	BlockCommitted: {BlockFinalized: true, BlockRejected: true},
	BlockFinalized: {},
	BlockRejected:  {},
}

// BlockRecord tracks one block's progress through the state machine.
type BlockRecord struct {
	State BlockState
}

func NewBlockRecord() *BlockRecord { return &BlockRecord{State: BlockProposed} }

// Advance transitions the record to next, returning an error if that
// transition is not one §4.4 allows from the current state.
func (r *BlockRecord) Advance(next BlockState) error {
	allowed, ok := transitions[r.State]
	if !ok || !allowed[next] {
		return fmt.Errorf("pipeline: illegal block transition %s -> %s", r.State, next)
	}
	r.State = next
	return nil
}
