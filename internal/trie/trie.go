package trie

import (
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/types"
)

// Trie is a handle onto one version of the hex-nibble trie described in
// spec §4.1. Put/Delete move this handle to the updated trie and return its
// new root hash; the updated trie shares all untouched structure with the
// previous version (invariant I3), whose nodes stay in the backing
// Cache/Store, and new nodes are committed there as they go.
type Trie struct {
	root  Node
	cache *Cache
}

// New opens the trie rooted at root. root == EmptyRoot opens an empty trie.
func New(root types.Hash, cache *Cache) *Trie {
	var rn Node
	if root != EmptyRoot {
		rn = hashNode(root)
	}
	return &Trie{root: rn, cache: cache}
}

func cloneNibbles(n []byte) []byte {
	cp := make([]byte, len(n))
	copy(cp, n)
	return cp
}

func (t *Trie) resolveHash(n hashNode) (Node, error) {
	h := types.Hash(n)
	if h == EmptyRoot {
		return nil, nil
	}
	if cached, ok := t.cache.Decoded(h); ok {
		return cached, nil
	}
	enc, ok := t.cache.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: node %s", errs.ErrStorageCorruption, h)
	}
	node, err := decodeNode(enc)
	if err != nil {
		return nil, err
	}
	t.cache.CacheDecoded(h, node)
	return node, nil
}

// Get performs spec §4.1's `get(root, key)`, returning the stored value
// or found == false for absence.
func (t *Trie) Get(key []byte) ([]byte, bool, error) {
	return t.get(t.root, keyToNibbles(key))
}

func (t *Trie) get(n Node, key []byte) ([]byte, bool, error) {
	switch n := n.(type) {
	case nil:
		return nil, false, nil
	case hashNode:
		rn, err := t.resolveHash(n)
		if err != nil {
			return nil, false, err
		}
		return t.get(rn, key)
	case valueNode:
		if len(key) != 0 {
			return nil, false, nil
		}
		return []byte(n), true, nil
	case *shortNode:
		if !hasPrefix(key, n.Key) {
			return nil, false, nil
		}
		return t.get(n.Val, key[len(n.Key):])
	case *fullNode:
		if len(key) == 0 {
			if vn, ok := n.Val.(valueNode); ok {
				return []byte(vn), true, nil
			}
			return nil, false, nil
		}
		return t.get(n.Children[key[0]], key[1:])
	default:
		return nil, false, fmt.Errorf("trie: get on unexpected node %T", n)
	}
}

// Put performs spec §4.1's `put(root, key, value) -> new_root`.
func (t *Trie) Put(key, value []byte) (types.Hash, error) {
	newRoot, err := t.insert(t.root, keyToNibbles(key), valueNode(value))
	if err != nil {
		return types.Hash{}, err
	}
	t.root = newRoot
	return t.Commit()
}

func (t *Trie) insert(n Node, key []byte, value Node) (Node, error) {
	switch n := n.(type) {
	case nil:
		if len(key) == 0 {
			return value, nil
		}
		return &shortNode{Key: cloneNibbles(key), Val: value}, nil
	case hashNode:
		rn, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.insert(rn, key, value)
	case valueNode:
		if len(key) == 0 {
			return value, nil
		}
		branch := &fullNode{Val: n}
		child, err := t.insert(nil, key[1:], value)
		if err != nil {
			return nil, err
		}
		branch.Children[key[0]] = child
		return branch, nil
	case *shortNode:
		matchlen := commonPrefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			newVal, err := t.insert(n.Val, key[matchlen:], value)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: n.Key, Val: newVal}, nil
		}
		branch := &fullNode{}
		var err error
		if matchlen < len(n.Key) {
			branch.Children[n.Key[matchlen]], err = t.insert(nil, n.Key[matchlen+1:], n.Val)
			if err != nil {
				return nil, err
			}
		}
		if matchlen < len(key) {
			branch.Children[key[matchlen]], err = t.insert(nil, key[matchlen+1:], value)
			if err != nil {
				return nil, err
			}
		} else {
			branch.Val = value
		}
		if matchlen == 0 {
			return branch, nil
		}
		return &shortNode{Key: cloneNibbles(key[:matchlen]), Val: branch}, nil
	case *fullNode:
		nb := n.copy()
		if len(key) == 0 {
			nb.Val = value
			return nb, nil
		}
		child, err := t.insert(n.Children[key[0]], key[1:], value)
		if err != nil {
			return nil, err
		}
		nb.Children[key[0]] = child
		return nb, nil
	default:
		return nil, fmt.Errorf("trie: insert into unexpected node %T", n)
	}
}

// Delete performs spec §4.1's `delete(root, key) -> new_root`. Deleting a
// key that is not present is a no-op that returns the unchanged root.
func (t *Trie) Delete(key []byte) (types.Hash, error) {
	ok, newRoot, err := t.delete(t.root, keyToNibbles(key))
	if err != nil {
		return types.Hash{}, err
	}
	if ok {
		t.root = newRoot
	}
	return t.Commit()
}

func (t *Trie) delete(n Node, key []byte) (bool, Node, error) {
	switch n := n.(type) {
	case nil:
		return false, nil, nil
	case hashNode:
		rn, err := t.resolveHash(n)
		if err != nil {
			return false, nil, err
		}
		return t.delete(rn, key)
	case *shortNode:
		matchlen := commonPrefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil
		}
		if _, ok := n.Val.(valueNode); ok {
			if matchlen == len(key) {
				return true, nil, nil
			}
			return false, n, nil
		}
		ok, newChild, err := t.delete(n.Val, key[matchlen:])
		if err != nil || !ok {
			return ok, n, err
		}
		if newChild == nil {
			return true, nil, nil
		}
		if cn, ok := newChild.(*shortNode); ok {
			return true, &shortNode{Key: append(cloneNibbles(n.Key), cn.Key...), Val: cn.Val}, nil
		}
		return true, &shortNode{Key: n.Key, Val: newChild}, nil
	case *fullNode:
		if len(key) == 0 {
			if n.Val == nil {
				return false, n, nil
			}
			nb := n.copy()
			nb.Val = nil
			collapsed, err := t.collapseFull(nb)
			return true, collapsed, err
		}
		ok, newChild, err := t.delete(n.Children[key[0]], key[1:])
		if err != nil || !ok {
			return ok, n, err
		}
		nb := n.copy()
		nb.Children[key[0]] = newChild
		collapsed, err := t.collapseFull(nb)
		return true, collapsed, err
	default:
		return false, n, fmt.Errorf("trie: delete on unexpected node %T", n)
	}
}

// collapseFull keeps the trie canonical (invariant I2: the root depends
// only on the key-value multiset, never on edit history) by reducing a
// branch that now has at most one remaining entry down to a shortNode,
// merging with its surviving child's key where possible.
func (t *Trie) collapseFull(n *fullNode) (Node, error) {
	count, idx := 0, -1
	for i, c := range n.Children {
		if c != nil {
			count++
			idx = i
		}
	}
	if count == 0 {
		if n.Val == nil {
			return nil, nil
		}
		return &shortNode{Key: []byte{}, Val: n.Val}, nil
	}
	if count == 1 && n.Val == nil {
		child := n.Children[idx]
		if hn, ok := child.(hashNode); ok {
			resolved, err := t.resolveHash(hn)
			if err != nil {
				return nil, err
			}
			child = resolved
		}
		switch c := child.(type) {
		case *shortNode:
			return &shortNode{Key: append([]byte{byte(idx)}, c.Key...), Val: c.Val}, nil
		default:
			return &shortNode{Key: []byte{byte(idx)}, Val: c}, nil
		}
	}
	return n, nil
}

// Commit hashes and persists every dirty node reachable from the current
// in-memory root, returning the resulting root hash. Put/Delete call this
// automatically.
func (t *Trie) Commit() (types.Hash, error) {
	h, err := hashAndStore(t.cache, t.root)
	if err != nil {
		return types.Hash{}, err
	}
	t.root = hashNode(h)
	return h, nil
}

func hashAndStore(cache *Cache, n Node) (types.Hash, error) {
	switch n := n.(type) {
	case nil:
		return EmptyRoot, nil
	case hashNode:
		return types.Hash(n), nil
	case valueNode:
		enc := encodeShort([]byte{}, true, []byte(n))
		h := types.Keccak256(enc)
		cache.Put(h, enc)
		return h, nil
	case *shortNode:
		var payload []byte
		terminator := false
		if vn, ok := n.Val.(valueNode); ok {
			terminator = true
			payload = []byte(vn)
		} else {
			childHash, err := hashAndStore(cache, n.Val)
			if err != nil {
				return types.Hash{}, err
			}
			payload = childHash[:]
		}
		enc := encodeShort(n.Key, terminator, payload)
		h := types.Keccak256(enc)
		cache.Put(h, enc)
		return h, nil
	case *fullNode:
		var children [16][]byte
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			h, err := hashAndStore(cache, c)
			if err != nil {
				return types.Hash{}, err
			}
			hv := h
			children[i] = hv[:]
		}
		var val []byte
		if vn, ok := n.Val.(valueNode); ok {
			val = []byte(vn)
		}
		enc := encodeFull(children, val)
		h := types.Keccak256(enc)
		cache.Put(h, enc)
		return h, nil
	default:
		return types.Hash{}, fmt.Errorf("trie: cannot hash node %T", n)
	}
}
