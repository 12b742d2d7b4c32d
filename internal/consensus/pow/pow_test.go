package pow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

type fakeChain struct {
	blocks map[uint64]*types.Block
	head   uint64
}

func (f *fakeChain) BlockByHeight(h uint64) (*types.Block, bool) {
	b, ok := f.blocks[h]
	return b, ok
}

func (f *fakeChain) Head() (uint64, *types.Block) {
	return f.head, f.blocks[f.head]
}

func blockAt(height uint64, ts int64, difficulty uint64) *types.Block {
	return &types.Block{
		Height:     height,
		TimestampS: ts,
		Header:     types.ConsensusHeader{Kind: types.ConsensusPoW, PoW: types.PoWHeader{Difficulty: difficulty}},
	}
}

func TestNextDifficultyHoldsBetweenRetargets(t *testing.T) {
	chain := &fakeChain{blocks: map[uint64]*types.Block{5: blockAt(5, 100, 1000)}, head: 5}
	require.Equal(t, uint64(1000), NextDifficulty(chain))
}

func TestNextDifficultySlowdownLowersDifficulty(t *testing.T) {
	headHeight := 2*uint64(RetargetWindow) - 1
	windowStartHeight := headHeight - RetargetWindow + 1
	start := int64(0)
	end := start + int64(RetargetWindow)*TargetBlockTimeSeconds*4 // actual rate 4x slower than target
	chain := &fakeChain{
		blocks: map[uint64]*types.Block{
			windowStartHeight: blockAt(windowStartHeight, start, 1000),
			headHeight:        blockAt(headHeight, end, 1000),
		},
		head: headHeight,
	}
	next := NextDifficulty(chain)
	require.Equal(t, uint64(250), next) // clamp to 1/4, not 1/4 further
}

func TestNextDifficultyClampsExtremeSlowdown(t *testing.T) {
	headHeight := 2*uint64(RetargetWindow) - 1
	windowStartHeight := headHeight - RetargetWindow + 1
	start := int64(0)
	end := start + int64(RetargetWindow)*TargetBlockTimeSeconds*8 // 8x slower: would be 1/8 unclamped
	chain := &fakeChain{
		blocks: map[uint64]*types.Block{
			windowStartHeight: blockAt(windowStartHeight, start, 1000),
			headHeight:        blockAt(headHeight, end, 1000),
		},
		head: headHeight,
	}
	next := NextDifficulty(chain)
	require.Equal(t, uint64(250), next) // clamped at 1/4, never drops to 1/8
}

func TestMineProducesValidNonce(t *testing.T) {
	b := blockAt(1, 0, 4) // trivial difficulty, resolves fast
	require.NoError(t, Mine(context.Background(), b, nil))
	require.True(t, ValidNonce(b))
}

func TestProposeBootstrapsGenesisAgainstEmptyChain(t *testing.T) {
	chain := &fakeChain{blocks: map[uint64]*types.Block{}}
	partial := state.NewPartialState(trie.EmptyRoot)
	b := New(chain, pipeline.NewPool(0), pipeline.AssemblyPolicy{MaxTxs: 10, MinTxs: 0, MaxBlockInterval: time.Millisecond}, pipeline.OCC{}, partial, func() int64 { return 0 })

	block, err := b.Propose(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.Height)
	require.Equal(t, types.Hash{}, block.Parent)
	require.Equal(t, uint64(1), block.Header.PoW.Difficulty)
	require.True(t, ValidNonce(block))
}

func TestHeavierChainPrefersLongerThenLexicographicTip(t *testing.T) {
	require.True(t, HeavierChain(10, types.Hash{1}, 9, types.Hash{0xFF}))
	require.False(t, HeavierChain(9, types.Hash{1}, 10, types.Hash{0xFF}))

	a := types.Hash{0x02}
	b := types.Hash{0x01}
	require.True(t, HeavierChain(5, a, 5, b))
	require.False(t, HeavierChain(5, b, 5, a))
}
