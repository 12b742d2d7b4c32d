package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

func TestObserveOutcomeIncrementsLabel(t *testing.T) {
	m := New()
	m.ObserveOutcome(pipeline.StatusCommitted)
	m.ObserveOutcome(pipeline.StatusCommitted)
	m.ObserveOutcome(pipeline.StatusConflicted)

	require.Equal(t, float64(2), testutil.ToFloat64(m.txOutcomes.WithLabelValues("committed")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.txOutcomes.WithLabelValues("conflicted")))
}

func TestObserveMempoolReportsSize(t *testing.T) {
	m := New()
	pool := pipeline.NewPool(0)
	pool.Submit(&types.TxProposal{ReqHash: types.Hash{1: 1}})
	pool.Submit(&types.TxProposal{ReqHash: types.Hash{2: 2}})

	m.ObserveMempool(pool)
	require.Equal(t, float64(2), testutil.ToFloat64(m.mempoolDepth))
}

func TestObserveTrieCacheTracksEntriesAndMisses(t *testing.T) {
	m := New()
	store := trie.NewMemStore()
	c := trie.NewCache(store, 1<<16, 16)

	h := types.Keccak256([]byte("leaf"))
	if _, ok := c.Get(h); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(h, []byte("leaf"))
	if _, ok := c.Get(h); !ok {
		t.Fatal("expected hit after put")
	}

	m.ObserveTrieCache(c)
	require.GreaterOrEqual(t, testutil.ToFloat64(m.cacheEntries.WithLabelValues("encoding")), float64(0))
	require.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses))
}
