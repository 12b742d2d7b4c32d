package nodectx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/cache"
	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/slimlog"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

func newTestContext() *Context {
	full := state.NewFullState(trie.NewMemStore(), state.NewMemCodeStore())
	temp := state.NewTempState(full, 0, trie.EmptyRoot, 16)
	pool := pipeline.NewPool(0)
	return New(full, temp, pool, cache.New(), slimlog.New("test"))
}

func TestNewBundlesCollaborators(t *testing.T) {
	c := newTestContext()
	require.NotNil(t, c.Full)
	require.NotNil(t, c.Temp)
	require.NotNil(t, c.Pool)
	require.NotNil(t, c.Metrics)
	require.NotNil(t, c.Log)
}

func TestHeadDefaultsToZeroValue(t *testing.T) {
	c := newTestContext()
	height, hash, root := c.Head()
	require.Zero(t, height)
	require.Equal(t, types.Hash{}, hash)
	require.Equal(t, types.Hash{}, root)
}

func TestSetHeadIsVisibleToHead(t *testing.T) {
	c := newTestContext()
	hash := types.Hash{1: 1}
	root := types.Hash{2: 2}
	c.SetHead(5, hash, root)

	gotHeight, gotHash, gotRoot := c.Head()
	require.Equal(t, uint64(5), gotHeight)
	require.Equal(t, hash, gotHash)
	require.Equal(t, root, gotRoot)
}

func TestSetHeadIsConcurrencySafe(t *testing.T) {
	c := newTestContext()
	done := make(chan struct{})
	go func() {
		for i := uint64(0); i < 100; i++ {
			c.SetHead(i, types.Hash{}, types.Hash{})
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		c.Head()
	}
	<-done
}
