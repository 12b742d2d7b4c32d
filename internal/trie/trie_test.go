package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/internal/types"
)

func newTestTrie(t *testing.T) (*Trie, *Cache) {
	t.Helper()
	cache := NewCache(NewMemStore(), 1<<16, 64)
	return New(EmptyRoot, cache), cache
}

func TestTriePutGet(t *testing.T) {
	tr, _ := newTestTrie(t)

	_, err := tr.Put([]byte("alpha"), []byte("1"))
	require.NoError(t, err)
	_, err = tr.Put([]byte("alphabet"), []byte("2"))
	require.NoError(t, err)
	root, err := tr.Put([]byte("beta"), []byte("3"))
	require.NoError(t, err)
	require.NotEqual(t, EmptyRoot, root)

	v, found, err := tr.Get([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)

	v, found, err = tr.Get([]byte("alphabet"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("2"), v)

	_, found, err = tr.Get([]byte("nope"))
	require.NoError(t, err)
	require.False(t, found)
}

// TestTrieCanonicalRoot checks invariant I2: the root depends only on the
// key-value multiset, not on the order entries were inserted/deleted in.
func TestTrieCanonicalRoot(t *testing.T) {
	tr1, _ := newTestTrie(t)
	_, err := tr1.Put([]byte("alpha"), []byte("1"))
	require.NoError(t, err)
	_, err = tr1.Put([]byte("beta"), []byte("2"))
	require.NoError(t, err)
	root1, err := tr1.Put([]byte("gamma"), []byte("3"))
	require.NoError(t, err)

	tr2, _ := newTestTrie(t)
	_, err = tr2.Put([]byte("gamma"), []byte("3"))
	require.NoError(t, err)
	_, err = tr2.Put([]byte("alpha"), []byte("1"))
	require.NoError(t, err)
	root2, err := tr2.Put([]byte("beta"), []byte("2"))
	require.NoError(t, err)

	require.Equal(t, root1, root2)

	tr3, _ := newTestTrie(t)
	_, err = tr3.Put([]byte("alpha"), []byte("1"))
	require.NoError(t, err)
	_, err = tr3.Put([]byte("beta"), []byte("2"))
	require.NoError(t, err)
	_, err = tr3.Put([]byte("gamma"), []byte("3"))
	require.NoError(t, err)
	_, err = tr3.Put([]byte("zzz-temporary"), []byte("x"))
	require.NoError(t, err)
	root3, err := tr3.Delete([]byte("zzz-temporary"))
	require.NoError(t, err)
	require.Equal(t, root1, root3)
}

func TestTrieDelete(t *testing.T) {
	tr, _ := newTestTrie(t)
	_, err := tr.Put([]byte("alpha"), []byte("1"))
	require.NoError(t, err)
	emptyAgain, err := tr.Delete([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, EmptyRoot, emptyAgain)

	_, found, err := tr.Get([]byte("alpha"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestProofRoundTrip(t *testing.T) {
	tr, _ := newTestTrie(t)
	_, err := tr.Put([]byte("account/0x01"), []byte("nonce=1"))
	require.NoError(t, err)
	_, err = tr.Put([]byte("account/0x02"), []byte("nonce=7"))
	require.NoError(t, err)
	root, err := tr.Put([]byte("account/0x03"), []byte("nonce=9"))
	require.NoError(t, err)

	proof, err := tr.Prove([][]byte{[]byte("account/0x02")})
	require.NoError(t, err)
	require.NotEmpty(t, proof.Nodes)

	require.True(t, Verify(root, []byte("account/0x02"), []byte("nonce=7"), true, proof))
	require.False(t, Verify(root, []byte("account/0x02"), []byte("nonce=wrong"), true, proof))
}

func TestProofAbsence(t *testing.T) {
	tr, _ := newTestTrie(t)
	_, err := tr.Put([]byte("account/0x01"), []byte("nonce=1"))
	require.NoError(t, err)
	root, err := tr.Put([]byte("account/0x02"), []byte("nonce=7"))
	require.NoError(t, err)

	proof, err := tr.Prove([][]byte{[]byte("account/0xff")})
	require.NoError(t, err)

	require.True(t, Verify(root, []byte("account/0xff"), nil, false, proof))
}

// TestProofCorruptionBreaksVerify covers spec §8's property that any single
// corrupted byte in a proof node causes Verify to reject.
func TestProofCorruptionBreaksVerify(t *testing.T) {
	tr, _ := newTestTrie(t)
	_, err := tr.Put([]byte("account/0x01"), []byte("nonce=1"))
	require.NoError(t, err)
	_, err = tr.Put([]byte("account/0x02"), []byte("nonce=7"))
	require.NoError(t, err)
	root, err := tr.Put([]byte("account/0x03"), []byte("nonce=9"))
	require.NoError(t, err)

	proof, err := tr.Prove([][]byte{[]byte("account/0x02")})
	require.NoError(t, err)
	require.True(t, Verify(root, []byte("account/0x02"), []byte("nonce=7"), true, proof))

	for i := range proof.Nodes {
		if len(proof.Nodes[i]) == 0 {
			continue
		}
		corrupted := &types.ProofNode{Nodes: make([][]byte, len(proof.Nodes))}
		for j, n := range proof.Nodes {
			cp := make([]byte, len(n))
			copy(cp, n)
			corrupted.Nodes[j] = cp
		}
		corrupted.Nodes[i][0] ^= 0xff
		require.False(t, Verify(root, []byte("account/0x02"), []byte("nonce=7"), true, corrupted),
			"corrupting node %d should break verification", i)
	}
}
