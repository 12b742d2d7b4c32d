// Package pow implements spec §4.5's PoW consensus backend: header
// validity (`H(block_without_nonce || nonce) <= target(difficulty)`),
// periodic difficulty retarget, and a cancellable mining loop.
package pow

import (
	"context"
	"encoding/binary"
	"math/big"

	"golang.org/x/time/rate"

	"github.com/slimchain/slimchain/internal/consensus"
	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

var _ consensus.Backend = (*Backend)(nil)

// RetargetWindow is W from spec §9 open question (b): difficulty is
// recomputed every 2048 blocks against the actual average block time over
// the window, which is long enough to average out single-block variance
// without letting a sustained hash-rate swing go uncorrected for long.
const RetargetWindow = 2048

// TargetBlockTimeSeconds is the block interval difficulty retargets
// toward.
const TargetBlockTimeSeconds = 15

// clampMin/clampMax bound how much a single retarget can move difficulty,
// per spec §8 scenario 5: a 4x-slower actual rate halves difficulty twice
// (1/4), and the clamp itself is exercised at 8x.
const (
	clampMin = 0.25
	clampMax = 4.0
)

var maxTarget = new(big.Int).Lsh(big.NewInt(1), 256)

// target returns the hash ceiling a valid nonce must not exceed: higher
// difficulty means a smaller (harder to hit) target.
func target(difficulty uint64) *big.Int {
	if difficulty == 0 {
		difficulty = 1
	}
	return new(big.Int).Div(maxTarget, new(big.Int).SetUint64(difficulty))
}

// ValidNonce reports whether block's PoW header satisfies its own
// difficulty: H(block_without_nonce || nonce) <= target(difficulty).
func ValidNonce(block *types.Block) bool {
	h := powHash(block)
	n := new(big.Int).SetBytes(h[:])
	return n.Cmp(target(block.Header.PoW.Difficulty)) <= 0
}

// powHash computes H(block_without_nonce || nonce).
func powHash(block *types.Block) types.Hash {
	h := block.HashWithoutNonce()
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], block.Header.PoW.Nonce)
	return types.Keccak256(h[:], nonce[:])
}

// ChainReader is the minimal view of block history the retarget
// computation and header verification need.
type ChainReader interface {
	BlockByHeight(height uint64) (*types.Block, bool)
	Head() (height uint64, block *types.Block)
}

// NextDifficulty computes the difficulty for the block following head,
// retargeting every RetargetWindow blocks against the actual average
// block time over the window and clamping the multiplier to
// [clampMin, clampMax].
func NextDifficulty(chain ChainReader) uint64 {
	headHeight, head := chain.Head()
	if head == nil || headHeight < RetargetWindow || (headHeight+1)%RetargetWindow != 0 {
		if head == nil {
			return 1
		}
		return head.Header.PoW.Difficulty
	}

	windowStart, ok := chain.BlockByHeight(headHeight - RetargetWindow + 1)
	if !ok {
		return head.Header.PoW.Difficulty
	}
	actualSeconds := float64(head.TimestampS-windowStart.TimestampS) / float64(RetargetWindow)
	if actualSeconds <= 0 {
		actualSeconds = 1
	}
	ratio := float64(TargetBlockTimeSeconds) / actualSeconds
	if ratio < clampMin {
		ratio = clampMin
	}
	if ratio > clampMax {
		ratio = clampMax
	}
	next := float64(head.Header.PoW.Difficulty) * ratio
	if next < 1 {
		next = 1
	}
	return uint64(next)
}

// yieldEvery bounds how many hash attempts Mine tries between context
// cancellation checks — the §9 "cooperative task" requirement.
const yieldEvery = 1 << 16

// Mine searches for a nonce satisfying candidate's difficulty, checking
// ctx for cancellation every yieldEvery attempts. limiter, when non-nil,
// caps the hash attempt rate by waiting on it before every attempt.
func Mine(ctx context.Context, candidate *types.Block, limiter *rate.Limiter) error {
	t := target(candidate.Header.PoW.Difficulty)
	for nonce := uint64(0); ; nonce++ {
		if nonce%yieldEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		candidate.Header.PoW.Nonce = nonce
		h := powHash(candidate)
		n := new(big.Int).SetBytes(h[:])
		if n.Cmp(t) <= 0 {
			return nil
		}
	}
}

// Backend implements consensus.Backend for PoW. Assembly/conflict-check
// logic lives in internal/pipeline; Backend only adds the consensus
// header, mines it, and enforces chain-selection (heaviest = longest,
// ties broken lexicographically by block hash per spec §4.5).
type Backend struct {
	Chain    ChainReader
	Pool     *pipeline.Pool
	Policy   pipeline.AssemblyPolicy
	Check    pipeline.ConflictCheck
	Partial  *state.PartialState
	// Parent is the parent hash to propose against when Chain is empty —
	// genesis's bootstrap parent link, since an empty ChainReader has no
	// head block to derive one from.
	Parent   types.Hash
	Limiter  *rate.Limiter
	NowUnixS func() int64
}

func New(chain ChainReader, pool *pipeline.Pool, policy pipeline.AssemblyPolicy, check pipeline.ConflictCheck, partial *state.PartialState, nowUnixS func() int64) *Backend {
	return &Backend{Chain: chain, Pool: pool, Policy: policy, Check: check, Partial: partial, NowUnixS: nowUnixS}
}

func (b *Backend) Propose(ctx context.Context) (*types.Block, error) {
	headHeight, head := b.Chain.Head()
	parent := b.Parent
	difficulty := uint64(1)
	if head != nil {
		parent = head.Hash()
		difficulty = NextDifficulty(b.Chain)
	}
	cc := pipeline.ConflictContext{HeadHeight: headHeight, HeadRoot: b.Partial.Root(), Partial: b.Partial}
	block, err := pipeline.Propose(b.Pool, b.Policy, b.Check, cc, b.Partial, headHeight+1, parent, b.NowUnixS(), types.ConsensusHeader{
		Kind: types.ConsensusPoW,
		PoW:  types.PoWHeader{Difficulty: difficulty},
	})
	if err != nil {
		return nil, err
	}
	if err := Mine(ctx, block, b.Limiter); err != nil {
		return nil, err
	}
	return block, nil
}

func (b *Backend) Verify(block *types.Block) error {
	if block.Header.Kind != types.ConsensusPoW {
		return errs.ErrProofInvalid
	}
	if !ValidNonce(block) {
		return errs.ErrProofInvalid
	}
	return nil
}

func (b *Backend) Commit(block *types.Block) error {
	return nil
}

func (b *Backend) Head() (uint64, types.Hash, types.Hash) {
	height, head := b.Chain.Head()
	if head == nil {
		return 0, types.Hash{}, types.Hash{}
	}
	return height, head.Hash(), head.StateRoot
}

// HeavierChain implements spec §4.5's fork-choice rule: prefer the longer
// chain, breaking ties lexicographically by tip hash.
func HeavierChain(aHeight uint64, aHash types.Hash, bHeight uint64, bHash types.Hash) bool {
	if aHeight != bHeight {
		return aHeight > bHeight
	}
	for i := range aHash {
		if aHash[i] != bHash[i] {
			return aHash[i] > bHash[i]
		}
	}
	return false
}
