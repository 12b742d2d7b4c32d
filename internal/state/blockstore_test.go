package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/types"
)

func openTestBlockStore(t *testing.T) *BlockStore {
	t.Helper()
	bs, err := OpenBlockStore(filepath.Join(t.TempDir(), "blocks"))
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestBlockStorePutAndByHash(t *testing.T) {
	bs := openTestBlockStore(t)

	block := &types.Block{Height: 1, StateRoot: types.Hash{1: 1}}
	require.NoError(t, bs.Put(block))

	got, ok, err := bs.ByHash(block.Hash())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, block.Height, got.Height)
	require.Equal(t, block.StateRoot, got.StateRoot)
}

func TestBlockStoreByHashMissReportsNotFound(t *testing.T) {
	bs := openTestBlockStore(t)

	_, ok, err := bs.ByHash(types.Hash{9: 9})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBlockStoreBlockByHeight(t *testing.T) {
	bs := openTestBlockStore(t)

	block := &types.Block{Height: 3, StateRoot: types.Hash{3: 3}}
	require.NoError(t, bs.Put(block))

	got, ok := bs.BlockByHeight(3)
	require.True(t, ok)
	require.Equal(t, block.StateRoot, got.StateRoot)

	_, ok = bs.BlockByHeight(4)
	require.False(t, ok)
}

func TestBlockStoreHeadAdvancesWithHigherBlocks(t *testing.T) {
	bs := openTestBlockStore(t)

	b1 := &types.Block{Height: 1, StateRoot: types.Hash{1: 1}}
	b2 := &types.Block{Height: 2, StateRoot: types.Hash{2: 2}}
	require.NoError(t, bs.Put(b1))
	require.NoError(t, bs.Put(b2))

	height, head := bs.Head()
	require.Equal(t, uint64(2), height)
	require.Equal(t, b2.StateRoot, head.StateRoot)
}

func TestBlockStoreHeadDoesNotRegressOnLowerBlock(t *testing.T) {
	bs := openTestBlockStore(t)

	b2 := &types.Block{Height: 2, StateRoot: types.Hash{2: 2}}
	b1 := &types.Block{Height: 1, StateRoot: types.Hash{1: 1}}
	require.NoError(t, bs.Put(b2))
	require.NoError(t, bs.Put(b1))

	height, head := bs.Head()
	require.Equal(t, uint64(2), height)
	require.Equal(t, b2.StateRoot, head.StateRoot)
}

func TestBlockStoreBlockByHashSatisfiesKnownParent(t *testing.T) {
	bs := openTestBlockStore(t)

	block := &types.Block{Height: 5, StateRoot: types.Hash{5: 5}}
	require.NoError(t, bs.Put(block))

	height, root, ok := bs.BlockByHash(block.Hash())
	require.True(t, ok)
	require.Equal(t, uint64(5), height)
	require.Equal(t, block.StateRoot, root)
}
