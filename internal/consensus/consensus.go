// Package consensus defines the capability boundary between the block
// pipeline and whatever agrees on block order (spec §4.5). A Backend
// proposes candidate blocks, verifies blocks from peers, commits accepted
// blocks, and reports the current head — nothing else in the node talks
// to PoW or Raft machinery directly.
package consensus

import (
	"context"

	"github.com/slimchain/slimchain/internal/types"
)

// Backend is spec §4.5's ConsensusBackend capability interface.
type Backend interface {
	// Propose attempts to produce the next block on top of the current
	// head. It returns (nil, nil) when no block is ready yet (e.g. PoW
	// hasn't found a nonce, Raft isn't leader).
	Propose(ctx context.Context) (*types.Block, error)

	// Verify checks a block received from a peer for consensus validity
	// (header well-formedness, difficulty/term rules) — it does not
	// replay transactions; that is internal/pipeline.Verify's job.
	Verify(block *types.Block) error

	// Commit accepts block as the new head.
	Commit(block *types.Block) error

	// Head returns the current head's height, block hash and state root.
	Head() (height uint64, blockHash types.Hash, stateRoot types.Hash)
}
